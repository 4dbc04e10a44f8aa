package conflict

import "strings"

// Value is either a concrete T or Any, the wildcard that matches every value.
// The zero Value is Any.
type Value[T comparable] struct {
	v   T
	set bool
}

// Any returns the wildcard value.
func Any[T comparable]() Value[T] { return Value[T]{} }

// Of returns a concrete value.
func Of[T comparable](v T) Value[T] { return Value[T]{v: v, set: true} }

// FromPtr maps nil to Any.
func FromPtr[T comparable](p *T) Value[T] {
	if p == nil {
		return Any[T]()
	}
	return Of(*p)
}

// DiameterOf trims s and treats the empty string as Any.
func DiameterOf(s string) Value[string] {
	s = strings.TrimSpace(s)
	if s == "" {
		return Any[string]()
	}
	return Of(s)
}

// DiameterFromPtr is DiameterOf for nullable columns.
func DiameterFromPtr(p *string) Value[string] {
	if p == nil {
		return Any[string]()
	}
	return DiameterOf(*p)
}

func (v Value[T]) IsAny() bool { return !v.set }

// Get returns the concrete value and true, or the zero T and false for Any.
func (v Value[T]) Get() (T, bool) { return v.v, v.set }

// Ptr returns nil for Any.
func (v Value[T]) Ptr() *T {
	if !v.set {
		return nil
	}
	out := v.v
	return &out
}

// Overlaps reports whether two selectors can match a common value.
// Any overlaps everything, including another Any.
func (v Value[T]) Overlaps(o Value[T]) bool {
	if !v.set || !o.set {
		return true
	}
	return v.v == o.v
}
