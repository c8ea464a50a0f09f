// Package gpustate is a state-caching runtime layer over immediate-mode
// graphics backends.
//
// # Overview
//
// Immediate-mode graphics APIs expose one implicit state machine mutated by
// sequential calls, and every call costs. gpustate sits between rendering
// code and such a backend and does three things:
//
//   - it remembers the last value applied for every pipeline variable and
//     skips calls that would not change anything;
//   - it hands out the scarce texture and uniform-buffer units, recycling
//     idle ones and skipping rebinds of units that already hold the resource;
//   - it builds each command buffer through typed stages, so drawing before a
//     shader is bound, or binding a shader before render targets, cannot be
//     written.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/gpustate"
//	    _ "github.com/gogpu/gpustate/recording" // or a real backend
//	)
//
//	dev, err := gpustate.Open(gpustate.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	tex, _ := dev.NewTexture(desc)
//	defer tex.Destroy()
//
//	layers, _ := dev.NewLayers()
//	rt, _ := layers.RenderTargets(targets)
//	sh, _ := rt.Shader(shader)
//	err = sh.Group().Scope(func(g *gpustate.Group[*gpustate.ShaderLayer]) error {
//	    if _, err := g.Texture(tex, point); err != nil {
//	        return err
//	    }
//	    return sh.Draw(quad)
//	})
//	sh.Done().Done().Finish()
//
// # Resources
//
// Resources are created by a [Device] and tracked in its state cache until
// Destroy is called. Destroy is idempotent. Closing the device destroys every
// resource still alive, after which Destroy on a wrapper does nothing.
// Resources that are never destroyed are released when garbage collected.
//
// # Layers
//
// A [Layers] session records one command buffer. Its stages are
// [Layers] (nothing bound), [RenderTargetsLayer] and [ShaderLayer]. Every
// stage and every [Group] exposes the pipeline setters (Blending, DepthTest,
// Viewport, ...). Groups borrow texture and uniform-buffer units until Done;
// Scope runs a function inside a group and always calls Done.
//
// Stages must be used in order: using a stage after moving past it, or
// closing groups out of order, panics.
//
// # Errors
//
// Backend errors are wrapped and returned. Unit exhaustion returns
// [backend.ErrNoMoreUnits]; a state cache left inconsistent by a panic
// returns [backend.ErrPoisonedLock]; failed extension checks return a
// [*backend.ExtensionCheckError].
//
// # Logging
//
// gpustate is silent by default. See [SetLogger] and [WithLogger].
package gpustate
