package msgbus

import (
	"context"
	"runtime"
	"testing"

	"github.com/weakbus/weakbus-go/pkg/msgbus"
)

// registerCollectable registers a subscriber that becomes unreachable when
// this function returns, so a collection cycle leaves its handle stale.
func registerCollectable(t *testing.T, bus *Bus, key msgbus.Key) {
	t.Helper()
	l := &orderLog{}
	h, err := msgbus.NewHandle(l, (*orderLog).onOrder)
	if err != nil {
		t.Fatalf("NewHandle failed: %v", err)
	}
	if _, err := bus.Register(context.Background(), key, h); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
}

func TestBus_WeakLifetime_CollectedSubscriberNeverInvoked(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	key := msgbus.StringKey("orders")

	live := &orderLog{}
	h, err := msgbus.NewHandle(live, (*orderLog).onOrder)
	if err != nil {
		t.Fatalf("NewHandle failed: %v", err)
	}
	if _, err := bus.Register(ctx, key, h); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	registerCollectable(t, bus, key)

	runtime.GC()
	runtime.GC()

	// The key still has a live handler, so publish reports delivery; the
	// collected subscriber is skipped, not resurrected.
	delivered, err := bus.Publish(ctx, key, orderPlaced{ID: "o-1"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !delivered {
		t.Fatal("Expected delivery while a live handler remains")
	}
	if len(live.orders) != 1 {
		t.Errorf("Expected the live handler to fire once, got %d", len(live.orders))
	}

	// The publish pass swept the stale handle out.
	if bus.HandleCount() != 1 {
		t.Errorf("Expected the stale handle to be compacted away, %d handles remain", bus.HandleCount())
	}
	runtime.KeepAlive(live)
}

func TestBus_WeakLifetime_AllHandlersCollected(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	key := msgbus.StringKey("orders")

	registerCollectable(t, bus, key)

	runtime.GC()
	runtime.GC()

	// Legacy semantics, preserved literally: the boolean reports that a
	// subscriber list existed, even though every handle in it was stale and
	// nothing fired.
	delivered, err := bus.Publish(ctx, key, orderPlaced{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if !delivered {
		t.Fatal("Expected true while the subscriber list still existed")
	}

	// The pass compacted the key away, so the next publish sees nothing.
	delivered, err = bus.Publish(ctx, key, orderPlaced{})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if delivered {
		t.Fatal("Expected false once the compacted key is gone")
	}
	if bus.KeyCount() != 0 {
		t.Errorf("Expected an empty table, %d keys remain", bus.KeyCount())
	}
}

func TestBus_WeakLifetime_UnregisterCollectedSubscriber(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	key := msgbus.StringKey("orders")

	registerCollectable(t, bus, key)

	runtime.GC()
	runtime.GC()

	// Defensive teardown of an already-collected subscriber must be a no-op,
	// never an error: removal matches on payload type and method identity,
	// which survive the owner.
	err := bus.Unregister(ctx, key, msgbus.TypeKeyFor[orderPlaced]().PayloadType(), msgbus.MethodIDOf((*orderLog).onOrder))
	if err != nil {
		t.Fatalf("Unregister of a collected subscriber failed: %v", err)
	}
	if bus.KeyCount() != 0 {
		t.Errorf("Expected the key to be gone, %d keys remain", bus.KeyCount())
	}
}
