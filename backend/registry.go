package backend

import (
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Factory creates a new backend instance.
type Factory func() Backend

// Well-known backend names, in selection priority order.
const (
	NameGL46      = "gl46"
	NameGL33      = "gl33"
	NameWebGL2    = "webgl2"
	NameRecording = "recording"
)

var backends = gpucontext.NewRegistry[Backend](
	gpucontext.WithPriority(NameGL46, NameGL33, NameWebGL2, NameRecording),
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
//
// Register panics if factory is nil or if the name is already taken, so
// duplicate registrations are caught during program initialization.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if backends.Has(name) {
		panic("backend: Register called twice for " + name)
	}
	backends.Register(name, factory)
}

// Unregister removes a backend from the registry.
// This is primarily useful for testing.
func Unregister(name string) {
	backends.Unregister(name)
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return backends.Has(name)
}

// Available returns the names of every registered backend.
func Available() []string {
	return backends.Available()
}

// BestName returns the name of the backend Open("") would select, or "" if
// none is registered.
func BestName() string {
	return backends.BestName()
}

// Open creates a backend instance. An empty name selects the best available
// backend by priority.
func Open(name string) (Backend, error) {
	if name == "" {
		b := backends.Best()
		if b == nil {
			return nil, ErrBackendNotAvailable
		}
		return b, nil
	}
	if !backends.Has(name) {
		return nil, fmt.Errorf("%w: %q (forgotten import?)", ErrBackendNotAvailable, name)
	}
	b := backends.Get(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %q factory returned nil", ErrBackendNotAvailable, name)
	}
	return b, nil
}
