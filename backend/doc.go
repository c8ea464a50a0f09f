// Package backend defines the capability interface that concrete graphics
// backends implement for gpustate.
//
// A backend exposes an immediate-mode device: resources are created and
// destroyed through explicit calls, and every state change is issued onto a
// command buffer. gpustate sits on top of this interface and removes the
// redundant calls, so backends are free to forward every call to the device.
//
// # Handles
//
// Every device object is represented by a small value type embedding
// [Handle]. Its [ScarceIndex] identifies the device object: two handles with
// equal indices refer to the same object. Share duplicates a handle without
// duplicating the device allocation.
//
// # Backend Registration
//
// Backends register a factory in init(), following the database/sql driver
// pattern:
//
//	func init() {
//	    backend.Register("gl33", func() backend.Backend {
//	        return NewGL33()
//	    })
//	}
//
// Applications then pick a backend by name or by priority:
//
//	b, err := backend.Open("")   // best available
//	b, err := backend.Open("gl33")
package backend
