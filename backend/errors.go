package backend

import (
	"errors"
	"fmt"
)

// Errors shared by every backend and by gpustate itself.
var (
	// ErrNoMoreUnits is returned when every texture or uniform-buffer unit is
	// in use by an active group scope.
	ErrNoMoreUnits = errors.New("backend: no more units available")

	// ErrPoisonedLock is returned when the shared state cache was left in an
	// unknown state by a holder that panicked.
	ErrPoisonedLock = errors.New("backend: poisoned lock")

	// ErrExtensionCheck matches every *ExtensionCheckError through errors.Is.
	ErrExtensionCheck = errors.New("backend: extension check failed")

	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// ExtensionCheckError reports a capability precondition that failed while a
// device was being set up.
type ExtensionCheckError struct {
	Extension string
	Reason    string
	Err       error
}

func (e *ExtensionCheckError) Error() string {
	msg := fmt.Sprintf("backend: extension %q check failed", e.Extension)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *ExtensionCheckError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtensionCheck.
func (e *ExtensionCheckError) Is(target error) bool {
	return target == ErrExtensionCheck
}
