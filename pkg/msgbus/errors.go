package msgbus

import "errors"

var (
	// ErrInvalidSubscriber is returned when an endpoint is registered with
	// neither a live owner nor a static func.
	ErrInvalidSubscriber = errors.New("subscriber requires a live owner or a static func")

	// ErrIncompatibleHandlerType is returned when a handler's payload type
	// conflicts with the handlers already registered under the same key.
	ErrIncompatibleHandlerType = errors.New("handler payload type is incompatible with existing handlers for key")

	// ErrBadHandlerArity is returned when a dynamically supplied handler func
	// does not take exactly one payload parameter.
	ErrBadHandlerArity = errors.New("handler func must take exactly one payload parameter")

	// ErrNilPayload is returned by type-routed publishes, which cannot derive
	// a routing key from a nil payload.
	ErrNilPayload = errors.New("payload cannot be nil")
)
