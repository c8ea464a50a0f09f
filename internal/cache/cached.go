package cache

// Cached holds the last value successfully applied to the device for one
// variable. The zero value is invalid: the device-side value is unknown.
type Cached[T comparable] struct {
	value T
	valid bool
}

// Invalidate forgets the cached value.
func (c *Cached[T]) Invalidate() {
	var zero T
	c.value, c.valid = zero, false
}

// Set stores v without calling the device and returns the previous value.
func (c *Cached[T]) Set(v T) (prev T, ok bool) {
	prev, ok = c.value, c.valid
	c.value, c.valid = v, true
	return prev, ok
}

// Get returns the cached value, if any.
func (c *Cached[T]) Get() (T, bool) {
	return c.value, c.valid
}

// Exists reports whether a value is cached, whatever it is.
func (c *Cached[T]) Exists() bool {
	return c.valid
}

// IsInvalid reports whether v must be applied: nothing is cached, or the
// cached value differs from v.
func (c *Cached[T]) IsInvalid(v T) bool {
	return !c.valid || c.value != v
}

// SetIfInvalid calls apply when v is invalid and caches v once apply
// succeeds. It reports whether apply was called successfully. A failed
// apply leaves the cached value untouched.
func (c *Cached[T]) SetIfInvalid(v T, apply func() error) (bool, error) {
	if !c.IsInvalid(v) {
		return false, nil
	}
	if err := apply(); err != nil {
		return false, err
	}
	c.value, c.valid = v, true
	return true, nil
}
