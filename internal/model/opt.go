package model

import (
	"encoding/json"
	"strings"
)

// Opt is a value that is either unset or holds a T.
type Opt[T comparable] struct {
	value T
	set   bool
}

// Some returns a set Opt holding v.
func Some[T comparable](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an unset Opt.
func None[T comparable]() Opt[T] {
	return Opt[T]{}
}

// Get returns the held value and whether it is set.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether o holds a value.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// OrElse returns the held value, or def when unset.
func (o Opt[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// MarshalJSON encodes an unset Opt as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// NormalizeString collapses empty and whitespace-only input to unset.
// Inner whitespace runs are collapsed to a single space.
func NormalizeString(s string) Opt[string] {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return None[string]()
	}
	return Some(s)
}

// NormalizeStringPtr is NormalizeString for optional input; nil is unset.
func NormalizeStringPtr(s *string) Opt[string] {
	if s == nil {
		return None[string]()
	}
	return NormalizeString(*s)
}
