package msgbus

import (
	"context"
	"reflect"
)

// Token identifies one registration. It carries the exact
// (key, payload type, method) triple the registration was filed under, so it
// can be handed back to UnregisterToken later.
type Token struct {
	// ID uniquely identifies this registration, for logs and correlation.
	ID string

	// Key is the resolved routing key the subscription was filed under.
	// When registration used KeyNone this is the derived type key.
	Key Key

	// PayloadType is the handler's declared message type.
	PayloadType reflect.Type

	// Method is the identity of the handler func.
	Method MethodID
}

// Bus is the façade over the subscription table: register, unregister and
// publish are the only entry points. There is deliberately no API to list
// current subscribers; from a producer's perspective the bus is fire-only.
//
// A Bus is constructed once, passed by reference to anything that needs to
// publish or subscribe, and lives for the process's duration. There is no
// teardown: the table empties itself as keys lose all handles.
type Bus interface {
	// Register files the handle under key. A zero key (KeyNone) routes the
	// subscription on the handle's payload type instead. The returned Token
	// can later be passed to UnregisterToken.
	//
	// Fails with ErrIncompatibleHandlerType if the key already holds handlers
	// whose payload type is not mutually assignable with the handle's.
	Register(ctx context.Context, key Key, h *Handle) (Token, error)

	// Unregister removes every handle under the key that was registered for
	// exactly this payload type and method. A zero key resolves the same way
	// Register would. Unregistering a handle that was never registered, or
	// whose owner is already collected, is a no-op.
	Unregister(ctx context.Context, key Key, payload reflect.Type, method MethodID) error

	// UnregisterToken unregisters the registration identified by tok, using
	// the identical triple recorded at registration time. Idempotent.
	UnregisterToken(ctx context.Context, tok Token) error

	// Publish delivers payload to the handlers registered under key, in
	// registration order, then sweeps stale handles from the key.
	//
	// The boolean is true iff a subscriber list existed for the key when the
	// snapshot was taken, even if every handle in it turned out stale. A
	// panic raised by a subscriber is not recovered here; it propagates to
	// the publisher and aborts delivery to the handlers not yet invoked.
	Publish(ctx context.Context, key Key, payload any) (bool, error)

	// PublishValue is the type-routed variant: payload is delivered to every
	// type-keyed subscriber list whose type the payload is assignable to.
	// String-keyed subscriptions are never matched. Results fold with OR.
	PublishValue(ctx context.Context, payload any) (bool, error)

	// PublishAsync schedules the equivalent Publish on its own goroutine and
	// discards the outcome. Subscriber panics are recovered per handler and
	// dropped, so one faulting subscriber does not stop the rest of the pass.
	// There is no cancellation and no error channel; this is fire-and-forget.
	PublishAsync(key Key, payload any)

	// PublishValueAsync schedules the equivalent PublishValue and discards
	// the outcome, with the same fault contract as PublishAsync.
	PublishValueAsync(payload any)

	// KeyCount returns the number of keys currently holding subscriptions.
	// Useful for monitoring and metrics.
	KeyCount() int

	// HandleCount returns the total number of registered handles, including
	// stale ones not yet swept. Useful for monitoring and metrics.
	HandleCount() int
}
