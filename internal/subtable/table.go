// Package subtable implements the shared subscription registry backing the
// message bus: an ordered mapping from routing key to weak subscription
// handles, built for bounded-time registration and lookup.
package subtable

import (
	"context"
	"errors"
	"reflect"
	"sync"

	"github.com/weakbus/weakbus-go/pkg/msgbus"
)

var (
	// ErrNilHandle is returned when a nil handle is added.
	ErrNilHandle = errors.New("handle cannot be nil")
	// ErrZeroKey is returned when an operation is given the zero key.
	// Key resolution happens in the bus; the table only stores concrete keys.
	ErrZeroKey = errors.New("routing key cannot be zero")
)

// Table maps routing keys to ordered lists of subscription handles.
// Registration order is preserved per key and duplicates are allowed.
// It is safe for concurrent use: every operation holds the table lock, and
// lookups hand out defensive copies so callers never iterate live lists.
type Table struct {
	mu      sync.Mutex
	entries map[msgbus.Key][]*msgbus.Handle
}

// New creates an empty subscription table.
func New() *Table {
	return &Table{
		entries: make(map[msgbus.Key][]*msgbus.Handle),
	}
}

// Add appends the handle to the key's list, creating the list if absent.
//
// Every handle under one key must share a mutually assignable payload type.
// A handle whose payload type is assignable neither to nor from the key's
// existing payload type fails with msgbus.ErrIncompatibleHandlerType and
// leaves the table unchanged. The check runs at registration time only; it is
// never applied retroactively.
func (t *Table) Add(ctx context.Context, key msgbus.Key, h *msgbus.Handle) error {
	if h == nil {
		return ErrNilHandle
	}
	if key.IsZero() {
		return ErrZeroKey
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if existing := t.entries[key]; len(existing) > 0 {
		have := existing[0].PayloadType()
		want := h.PayloadType()
		if !want.AssignableTo(have) && !have.AssignableTo(want) {
			return msgbus.ErrIncompatibleHandlerType
		}
	}

	t.entries[key] = append(t.entries[key], h)
	return nil
}

// RemoveMatching removes every handle under key registered for exactly this
// payload type and method, and reports how many were removed. When the key's
// list empties, the key is dropped from the table entirely. Removing from an
// absent key, or matching nothing, is a no-op.
func (t *Table) RemoveMatching(ctx context.Context, key msgbus.Key, payload reflect.Type, method msgbus.MethodID) (int, error) {
	if key.IsZero() {
		return 0, ErrZeroKey
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	handles, ok := t.entries[key]
	if !ok {
		return 0, nil
	}

	kept := handles[:0]
	removed := 0
	for _, h := range handles {
		if h.Matches(payload, method) {
			removed++
			continue
		}
		kept = append(kept, h)
	}

	if len(kept) == 0 {
		delete(t.entries, key)
		return removed, nil
	}
	t.entries[key] = kept
	return removed, nil
}

// Snapshot returns a defensive copy of the key's current handle list, or an
// empty slice if the key is absent. The copy is taken under the table lock so
// publish iteration never races with concurrent register or unregister calls
// on the same key.
func (t *Table) Snapshot(ctx context.Context, key msgbus.Key) ([]*msgbus.Handle, error) {
	if key.IsZero() {
		return nil, ErrZeroKey
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	handles := t.entries[key]
	if len(handles) == 0 {
		return nil, nil
	}
	snapshot := make([]*msgbus.Handle, len(handles))
	copy(snapshot, handles)
	return snapshot, nil
}

// Compact strips stale handles from the key's list and reports how many were
// dropped. A key whose list empties is removed from the table. Called by the
// bus after each publish pass; removal of dead entries is always swept like
// this, never triggered by the owner's collection itself.
func (t *Table) Compact(key msgbus.Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	handles, ok := t.entries[key]
	if !ok {
		return 0
	}

	kept := handles[:0]
	removed := 0
	for _, h := range handles {
		if h.Stale() {
			removed++
			continue
		}
		kept = append(kept, h)
	}

	if len(kept) == 0 {
		delete(t.entries, key)
		return removed
	}
	t.entries[key] = kept
	return removed
}

// TypeKeysAssignableFrom returns the type keys in the table whose payload
// type the given type is assignable to, in no particular order. String keys
// never participate in this scan.
func (t *Table) TypeKeysAssignableFrom(ctx context.Context, payload reflect.Type) ([]msgbus.Key, error) {
	if payload == nil {
		return nil, msgbus.ErrNilPayload
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []msgbus.Key
	for key := range t.entries {
		if !key.IsTypeKey() {
			continue
		}
		if payload.AssignableTo(key.PayloadType()) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// KeyCount returns the number of keys currently holding handles.
// Useful for monitoring and metrics.
func (t *Table) KeyCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// HandleCount returns the total number of handles across all keys, including
// stale handles not yet swept. Useful for monitoring and metrics.
func (t *Table) HandleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := 0
	for _, handles := range t.entries {
		total += len(handles)
	}
	return total
}
