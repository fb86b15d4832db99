// Package msgbus provides the public types and interfaces for the weakbus
// in-process message bus.
//
// This package defines the core abstractions of the bus:
//   - Handle: a subscription endpoint held by weak reference, so that
//     registering for messages never extends the subscriber's lifetime
//   - Key: a routing key, either an explicit string token or a payload type
//   - Bus: the interface for registering, unregistering and publishing
//   - Binder / Sink: declarative, construction-time subscription wiring
//
// Messages are routed by key. A string key matches only publishes addressed
// to that exact key. A type key additionally participates in assignability
// matching: a handler registered for an interface type receives every
// type-routed publish whose payload implements that interface, without
// re-registration per concrete type.
//
// The interfaces use Go idioms:
//   - context.Context on registration and publish entry points
//   - Explicit error returns following Go conventions
//   - Generic constructors so payload types are checked at compile time
//
// Example usage:
//
//	// Register an instance-bound handler. The bus holds the recipient
//	// weakly: this registration does not keep rcpt alive.
//	h, err := msgbus.NewHandle(rcpt, (*Recipient).OnOrderPlaced)
//	if err != nil {
//		return err
//	}
//	tok, err := bus.Register(ctx, msgbus.KeyNone, h)
//	if err != nil {
//		return err
//	}
//
//	// Publish by payload type: every type-keyed handler whose payload
//	// type the message is assignable to receives it.
//	delivered, err := bus.PublishValue(ctx, OrderPlaced{ID: "o-42"})
//
//	// Later, tear the subscription down again.
//	err = bus.UnregisterToken(ctx, tok)
//
// Subscriptions whose owner has been garbage collected become stale and are
// swept out lazily by the next publish or unregister touching their key.
// There is no destructor callback: staleness is only ever observed, never
// signalled.
//
// This package contains no implementation; see internal/msgbus for the bus
// and internal/subtable for the subscription registry.
package msgbus
