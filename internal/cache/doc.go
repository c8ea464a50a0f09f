// Package cache holds the device-wide state cache.
//
// The cache remembers three things about a device:
//
// # Pipeline variables
//
// The last value successfully applied for each pipeline variable (blending,
// depth test, viewport, ...). SetIfInvalid only calls the device when the
// requested value differs from the cached one:
//
//	changed, err := cache.SetIfInvalid(c, cache.Viewport, vp, func() error {
//	    return b.CmdBufViewport(cb, vp)
//	})
//
// # Tracked resources
//
// A duplicate handle for every live device object, keyed by scarce index.
// Untrack drops the device object exactly once; Close drops everything still
// tracked.
//
// # Queries
//
// Backend metadata (name, version, unit limits, ...) fetched once and kept
// for the lifetime of the cache.
//
// # Thread Safety
//
// Every operation runs under a single mutex. If a callback panics while the
// lock is held the cache is poisoned: the panic propagates, and every later
// operation returns backend.ErrPoisonedLock.
package cache
