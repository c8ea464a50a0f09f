package recording

import "github.com/gogpu/gpustate/backend"

func init() {
	backend.Register(backend.NameRecording, func() backend.Backend {
		return New()
	})
}
