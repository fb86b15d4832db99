package msgbus

import (
	"fmt"
	"reflect"
)

// Key is a routing key: either an explicit string token or a payload type.
// Keys are immutable comparable values; two keys route to the same slot iff
// they compare equal. Type keys additionally take part in assignability
// matching during type-routed publishes.
type Key struct {
	name string
	typ  reflect.Type
}

// KeyNone is the zero Key. Registering with KeyNone routes the subscription
// on the handler's payload type instead of an explicit token.
var KeyNone = Key{}

// StringKey returns an explicit, opaque routing key.
func StringKey(name string) Key {
	return Key{name: name}
}

// TypeKey returns a routing key identifying the given payload type.
func TypeKey(t reflect.Type) Key {
	return Key{typ: t}
}

// TypeKeyFor returns the routing key for payload type T.
// Unlike reflect.TypeOf on a value, this also works for interface types.
func TypeKeyFor[T any]() Key {
	return Key{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// IsZero reports whether the key is KeyNone.
func (k Key) IsZero() bool {
	return k.name == "" && k.typ == nil
}

// IsTypeKey reports whether the key routes on a payload type.
func (k Key) IsTypeKey() bool {
	return k.typ != nil
}

// PayloadType returns the payload type of a type key, or nil for string keys.
func (k Key) PayloadType() reflect.Type {
	return k.typ
}

// String returns a human-readable form of the key, for logs and errors.
func (k Key) String() string {
	switch {
	case k.typ != nil:
		return fmt.Sprintf("type(%s)", k.typ)
	case k.name != "":
		return fmt.Sprintf("key(%s)", k.name)
	default:
		return "key(none)"
	}
}
