package msgbus

import (
	"reflect"
	"weak"
)

// ReceiverKind distinguishes the two endpoint shapes a Handle can wrap.
type ReceiverKind int

const (
	// InstanceBound is an endpoint bound to an owning object, held weakly.
	InstanceBound ReceiverKind = iota

	// Static is a free func with no owner; it is never stale.
	Static
)

// MethodID is a comparable identity for a handler func. Two registrations of
// the same method expression or func literal share the same MethodID, which
// is what exact-match unregistration compares against.
type MethodID uintptr

// MethodIDOf returns the identity of fn, or zero if fn is not a func.
func MethodIDOf(fn any) MethodID {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return 0
	}
	return MethodID(v.Pointer())
}

// ownerRef is the type-erased view of a weak owner reference.
type ownerRef interface {
	// strong returns the owner and true while it is still reachable.
	strong() (any, bool)
}

// weakOwner holds the typed weak pointer for an instance-bound handle.
type weakOwner[O any] struct {
	ptr weak.Pointer[O]
}

func (w weakOwner[O]) strong() (any, bool) {
	o := w.ptr.Value()
	if o == nil {
		return nil, false
	}
	return o, true
}

// Handle represents one subscription endpoint. An instance-bound handle keeps
// only a weak reference to its owner: the registration never prevents the
// owner from being garbage collected, and the handle becomes stale the moment
// the owner is reclaimed. Stale handles stay in the table until the next
// publish or unregister touching their key sweeps them out.
type Handle struct {
	kind    ReceiverKind
	owner   ownerRef
	payload reflect.Type
	method  MethodID

	// invoke dispatches to an instance-bound endpoint given a resolved owner.
	invoke func(owner, payload any)
	// call dispatches to a static endpoint.
	call func(payload any)
}

// NewHandle creates an instance-bound handle for owner's method fn.
// fn is typically a method expression such as (*Recipient).OnOrderPlaced.
// Returns ErrInvalidSubscriber if owner or fn is nil.
//
// The handle's only strong references are to the method identity and payload
// type metadata, never to owner itself.
func NewHandle[O any, M any](owner *O, fn func(*O, M)) (*Handle, error) {
	if owner == nil || fn == nil {
		return nil, ErrInvalidSubscriber
	}
	return &Handle{
		kind:    InstanceBound,
		owner:   weakOwner[O]{ptr: weak.Make(owner)},
		payload: reflect.TypeOf((*M)(nil)).Elem(),
		method:  MethodID(reflect.ValueOf(fn).Pointer()),
		invoke: func(owner, payload any) {
			fn(owner.(*O), payload.(M))
		},
	}, nil
}

// NewStaticHandle creates a handle for a free func with no owning object.
// Static handles are always live. Returns ErrInvalidSubscriber if fn is nil.
func NewStaticHandle[M any](fn func(M)) (*Handle, error) {
	if fn == nil {
		return nil, ErrInvalidSubscriber
	}
	return &Handle{
		kind:    Static,
		payload: reflect.TypeOf((*M)(nil)).Elem(),
		method:  MethodID(reflect.ValueOf(fn).Pointer()),
		call: func(payload any) {
			fn(payload.(M))
		},
	}, nil
}

// NewStaticHandleOf creates a static handle from an untyped func value.
// This is the dynamic construction path used by declarative binders; the
// payload type is taken from the func's single parameter. Returns
// ErrBadHandlerArity if fn does not take exactly one parameter, and
// ErrInvalidSubscriber if fn is not a func.
func NewStaticHandleOf(fn any) (*Handle, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, ErrInvalidSubscriber
	}
	t := v.Type()
	if t.NumIn() != 1 || t.IsVariadic() {
		return nil, ErrBadHandlerArity
	}
	return &Handle{
		kind:    Static,
		payload: t.In(0),
		method:  MethodID(v.Pointer()),
		call: func(payload any) {
			v.Call([]reflect.Value{reflect.ValueOf(payload)})
		},
	}, nil
}

// Kind returns the receiver kind of the handle.
func (h *Handle) Kind() ReceiverKind {
	return h.kind
}

// PayloadType returns the exact message type this handle expects.
func (h *Handle) PayloadType() reflect.Type {
	return h.payload
}

// Method returns the identity of the handler func.
func (h *Handle) Method() MethodID {
	return h.method
}

// Stale reports whether the handle's owner has been reclaimed.
// Static handles are never stale.
func (h *Handle) Stale() bool {
	if h.kind == Static {
		return false
	}
	_, ok := h.owner.strong()
	return !ok
}

// Resolve returns an invocable bound to the live owner (or the static func),
// or false if the handle is stale. It never panics on a collected owner.
//
// The returned invocable pins the owner for as long as it is held, so a
// publish pass that resolved a handle can safely invoke it even if the last
// outside reference disappears mid-pass.
func (h *Handle) Resolve() (func(payload any), bool) {
	if h.kind == Static {
		return h.call, true
	}
	owner, ok := h.owner.strong()
	if !ok {
		return nil, false
	}
	return func(payload any) {
		h.invoke(owner, payload)
	}, true
}

// Matches reports whether the handle was registered for exactly this payload
// type and method. Used for exact-match removal during unregistration.
func (h *Handle) Matches(payload reflect.Type, method MethodID) bool {
	return h.payload == payload && h.method == method
}
