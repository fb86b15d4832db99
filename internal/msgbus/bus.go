// Package msgbus implements the msgbus.Bus façade over the subscription
// table. One Bus is constructed at process start and shared by reference;
// there is no ambient global instance.
package msgbus

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/weakbus/weakbus-go/internal/subtable"
	"github.com/weakbus/weakbus-go/pkg/msgbus"
)

// Bus implements the msgbus.Bus interface on top of a single subscription
// table. All synchronization lives in the table; the bus itself is stateless
// apart from configuration and never holds the table lock across a
// subscriber invocation.
type Bus struct {
	config *Config
	table  *subtable.Table
	log    zerolog.Logger
}

// New creates a Bus with the given configuration. A nil config uses defaults.
// The bus has no teardown: subscribers come and go via Register/Unregister
// and the table empties itself as keys lose all handles.
func New(config *Config) (*Bus, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Bus{
		config: config,
		table:  subtable.New(),
		log:    config.Logger.With().Str("bus", config.Name).Logger(),
	}, nil
}

// routingKey resolves the key a registration or unregistration files under:
// an explicit key is used as-is, the zero key derives a type key from the
// handler's payload type.
func routingKey(key msgbus.Key, payload reflect.Type) msgbus.Key {
	if key.IsZero() {
		return msgbus.TypeKey(payload)
	}
	return key
}

// Register files the handle under key, or under its payload type when key is
// zero. Table errors propagate unchanged.
func (b *Bus) Register(ctx context.Context, key msgbus.Key, h *msgbus.Handle) (msgbus.Token, error) {
	if h == nil {
		return msgbus.Token{}, msgbus.ErrInvalidSubscriber
	}

	rk := routingKey(key, h.PayloadType())
	if err := b.table.Add(ctx, rk, h); err != nil {
		return msgbus.Token{}, err
	}

	tok := msgbus.Token{
		ID:          uuid.NewString(),
		Key:         rk,
		PayloadType: h.PayloadType(),
		Method:      h.Method(),
	}
	b.log.Debug().
		Str("token", tok.ID).
		Stringer("key", rk).
		Stringer("payload", h.PayloadType()).
		Msg("registered subscription")
	return tok, nil
}

// Unregister removes every handle under the resolved key that matches the
// (payload type, method) pair exactly. Idempotent: removing nothing is fine.
func (b *Bus) Unregister(ctx context.Context, key msgbus.Key, payload reflect.Type, method msgbus.MethodID) error {
	rk := routingKey(key, payload)
	removed, err := b.table.RemoveMatching(ctx, rk, payload, method)
	if err != nil {
		return err
	}
	if removed > 0 {
		b.log.Debug().
			Stringer("key", rk).
			Int("removed", removed).
			Msg("unregistered subscription")
	}
	return nil
}

// UnregisterToken unregisters via the triple recorded at registration time.
func (b *Bus) UnregisterToken(ctx context.Context, tok msgbus.Token) error {
	return b.Unregister(ctx, tok.Key, tok.PayloadType, tok.Method)
}

// Publish delivers payload to the handlers under key in registration order,
// then compacts the key. Subscriber panics are not recovered: they propagate
// to the caller and abort delivery to the handlers not yet invoked.
//
// The boolean reports whether a subscriber list existed for the key, not
// whether any live handler actually fired; a key holding only stale handles
// still returns true on this pass (and false on the next, once the compact
// sweep below has dropped the key).
func (b *Bus) Publish(ctx context.Context, key msgbus.Key, payload any) (bool, error) {
	return b.publishKey(ctx, key, payload, false)
}

// PublishValue routes payload by its runtime type: every type key the type is
// assignable to receives the payload, so handlers registered for an interface
// receive messages for any implementing type. Results fold with OR.
func (b *Bus) PublishValue(ctx context.Context, payload any) (bool, error) {
	if payload == nil {
		return false, msgbus.ErrNilPayload
	}

	keys, err := b.table.TypeKeysAssignableFrom(ctx, reflect.TypeOf(payload))
	if err != nil {
		return false, err
	}

	delivered := false
	for _, key := range keys {
		ok, err := b.publishKey(ctx, key, payload, false)
		if err != nil {
			return delivered, err
		}
		delivered = delivered || ok
	}
	return delivered, nil
}

// PublishAsync schedules the equivalent Publish on its own goroutine and
// discards the outcome. Faults are swallowed per handler, so one faulting
// subscriber does not keep the rest of the pass from running.
func (b *Bus) PublishAsync(key msgbus.Key, payload any) {
	go func() {
		if _, err := b.publishKey(context.Background(), key, payload, true); err != nil {
			b.log.Debug().Err(err).Stringer("key", key).Msg("async publish dropped")
		}
	}()
}

// PublishValueAsync schedules the equivalent PublishValue and discards the
// outcome, with the same per-handler fault swallowing as PublishAsync.
func (b *Bus) PublishValueAsync(payload any) {
	go func() {
		if payload == nil {
			return
		}
		ctx := context.Background()
		keys, err := b.table.TypeKeysAssignableFrom(ctx, reflect.TypeOf(payload))
		if err != nil {
			b.log.Debug().Err(err).Msg("async publish dropped")
			return
		}
		for _, key := range keys {
			if _, err := b.publishKey(ctx, key, payload, true); err != nil {
				b.log.Debug().Err(err).Stringer("key", key).Msg("async publish dropped")
			}
		}
	}()
}

// KeyCount returns the number of keys currently holding subscriptions.
func (b *Bus) KeyCount() int {
	return b.table.KeyCount()
}

// HandleCount returns the total number of registered handles, stale included.
func (b *Bus) HandleCount() int {
	return b.table.HandleCount()
}

// publishKey runs one delivery pass for a single key: snapshot, invoke each
// live handle in registration order, compact. The snapshot decouples
// invocation from the table lock, so a handler may register or unregister
// (including itself) without corrupting the in-flight pass; such mutation
// never affects the pass already underway.
func (b *Bus) publishKey(ctx context.Context, key msgbus.Key, payload any, swallowFaults bool) (bool, error) {
	snapshot, err := b.table.Snapshot(ctx, key)
	if err != nil {
		return false, err
	}
	if len(snapshot) == 0 {
		return false, nil
	}

	for _, h := range snapshot {
		call, ok := h.Resolve()
		if !ok {
			// Stale; swept below.
			continue
		}
		if swallowFaults {
			b.invokeSwallowed(call, key, payload)
		} else {
			call(payload)
		}
	}

	if removed := b.table.Compact(key); removed > 0 {
		b.log.Debug().
			Stringer("key", key).
			Int("removed", removed).
			Msg("compacted stale subscriptions")
	}
	return true, nil
}

// invokeSwallowed invokes one handler and absorbs any panic it raises. The
// async contract promises delivery attempts, never error visibility, so the
// fault goes to the debug log and nowhere else.
func (b *Bus) invokeSwallowed(call func(any), key msgbus.Key, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Debug().
				Stringer("key", key).
				Interface("panic", r).
				Msg("async subscriber fault discarded")
		}
	}()
	call(payload)
}

// Verify that Bus implements the msgbus.Bus interface at compile time
var _ msgbus.Bus = (*Bus)(nil)
