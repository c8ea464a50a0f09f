// Package recording provides an in-memory backend that records every
// capability call as a typed command.
//
// The recording backend owns no device. It hands out scarce indices from a
// pool, validates the lifecycle of every object (use after drop, double
// drop, commands after finish, out-of-range units) and keeps an ordered log
// of commands that can be inspected afterwards. It is the reference
// implementation of the backend contract and the test double used by
// gpustate itself.
//
// # Example
//
//	rec := recording.New(recording.WithMaxTextureUnits(2))
//	dev, err := gpustate.NewDevice(rec)
//	...
//	fmt.Println(rec.Count(recording.CmdBindTexture))
//
// The backend registers itself under backend.NameRecording, so it can be
// selected by name:
//
//	import _ "github.com/gogpu/gpustate/recording"
//
//	b, err := backend.Open(backend.NameRecording)
package recording
