package msgbus

import (
	"context"
	"fmt"
)

// Sink is implemented by types that declare their message subscriptions up
// front. MessageBindings is called once per Attach or Detach with a fresh
// Binder; the implementation adds one binding per handler method.
//
// This is the construction-time replacement for attribute scanning: instead
// of discovering handler methods by reflection at runtime, a type states its
// (key, payload type, endpoint) triples explicitly.
type Sink interface {
	MessageBindings(b *Binder)
}

// binding is one declared (key, handle) pair. A construction error is kept
// alongside and surfaced when the binder is attached, so declaration sites
// stay fluent.
type binding struct {
	key    Key
	handle *Handle
	err    error
}

// Binder collects subscription bindings and attaches or detaches them against
// a Bus as a unit. Binders are not safe for concurrent use; they are meant to
// be filled during construction and then applied.
type Binder struct {
	bindings []binding
}

// NewBinder creates an empty binder.
func NewBinder() *Binder {
	return &Binder{}
}

// Bind declares an instance-bound subscription for owner's method fn under
// key. A zero key routes on the payload type, exactly as Register would.
func Bind[O any, M any](b *Binder, key Key, owner *O, fn func(*O, M)) {
	h, err := NewHandle(owner, fn)
	b.bindings = append(b.bindings, binding{key: key, handle: h, err: err})
}

// BindStatic declares a static subscription for fn under key.
func BindStatic[M any](b *Binder, key Key, fn func(M)) {
	h, err := NewStaticHandle(fn)
	b.bindings = append(b.bindings, binding{key: key, handle: h, err: err})
}

// BindStaticFunc declares a static subscription from an untyped func value.
// The func must take exactly one parameter; anything else surfaces as
// ErrBadHandlerArity when the binder is attached.
func (b *Binder) BindStaticFunc(key Key, fn any) {
	h, err := NewStaticHandleOf(fn)
	b.bindings = append(b.bindings, binding{key: key, handle: h, err: err})
}

// Len returns the number of declared bindings.
func (b *Binder) Len() int {
	return len(b.bindings)
}

// AttachTo registers every declared binding with the bus, returning one token
// per binding in declaration order. On the first failure the bindings already
// registered in this call are unregistered again, so a failed attach leaves
// the bus unchanged.
func (b *Binder) AttachTo(ctx context.Context, bus Bus) ([]Token, error) {
	tokens := make([]Token, 0, len(b.bindings))
	for i, bd := range b.bindings {
		if bd.err == nil {
			tok, err := bus.Register(ctx, bd.key, bd.handle)
			if err == nil {
				tokens = append(tokens, tok)
				continue
			}
			bd.err = err
		}
		// Roll back what this call already registered.
		for _, tok := range tokens {
			_ = bus.UnregisterToken(ctx, tok)
		}
		return nil, fmt.Errorf("binding %d: %w", i, bd.err)
	}
	return tokens, nil
}

// DetachFrom unregisters every declared binding from the bus, using the same
// (key, payload type, method) triple AttachTo registered with. Detaching
// bindings that were never attached is a no-op.
func (b *Binder) DetachFrom(ctx context.Context, bus Bus) error {
	for i, bd := range b.bindings {
		if bd.err != nil {
			// Never registered; nothing to remove.
			continue
		}
		if err := bus.Unregister(ctx, bd.key, bd.handle.PayloadType(), bd.handle.Method()); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
	}
	return nil
}

// Attach wires a Sink's declared subscriptions into the bus.
func Attach(ctx context.Context, bus Bus, s Sink) ([]Token, error) {
	b := NewBinder()
	s.MessageBindings(b)
	return b.AttachTo(ctx, bus)
}

// Detach mirrors Attach: it rebuilds the sink's declarations and unregisters
// each. The triples match what Attach registered because removal compares
// payload type and method identity, not handle instances.
func Detach(ctx context.Context, bus Bus, s Sink) error {
	b := NewBinder()
	s.MessageBindings(b)
	return b.DetachFrom(ctx, bus)
}
