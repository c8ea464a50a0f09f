package gpustate

import (
	"fmt"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/internal/cache"
	"github.com/gogpu/gpustate/internal/units"
)

// Group is a scope in which textures and uniform buffers are bound to
// units. Done marks every unit the group bound as idle: the resource stays
// bound on the device and a later group binding the same resource reuses
// the unit without rebinding.
//
// The stage S the group was opened on stays usable while the group is
// open, so draws see the group's bindings. Groups nest; only the innermost
// open group may bind or be closed.
//
// Example:
//
//	g := shaderLayer.Group()
//	unit, err := g.Texture(tex, point)
//	...
//	err = g.Layer().Draw(va)
//	shaderLayer = g.Done()
type Group[S any] struct {
	stage
	layer S
}

// openGroup pushes a new scope record for the stage st.
func openGroup[S any](st stage, layer S) *Group[S] {
	s := st.s
	rec := &scopeRecord{}
	s.groups = append(s.groups, rec)
	s.log.Debug("gpustate: group opened", "depth", len(s.groups))
	return &Group[S]{
		stage: stage{s: s, token: st.token, back: st.token, depth: len(s.groups), group: rec},
		layer: layer,
	}
}

// Layer returns the stage the group was opened on.
func (g *Group[S]) Layer() S {
	g.assert("Layer")
	return g.layer
}

// Group opens a nested group. Its Done returns the same stage.
func (g *Group[S]) Group() *Group[S] {
	g.assert("Group")
	return openGroup(g.stage, g.layer)
}

// Done releases the units bound in the group and returns the stage it was
// opened on.
func (g *Group[S]) Done() S {
	g.assert("Done")
	g.s.closeGroups(g.depth)
	return g.layer
}

// Scope runs fn with the group open, then closes it. The group is closed
// on every exit path, panics included. Groups nested in it that fn left
// open are closed too, and the stage the group was opened on is current
// again when Scope returns.
func (g *Group[S]) Scope(fn func(g *Group[S]) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.unwind()
			panic(r)
		}
	}()
	err = fn(g)
	g.unwind()
	return err
}

func (g *Group[S]) open() bool {
	groups := g.s.groups
	return len(groups) >= g.depth && groups[g.depth-1] == g.group
}

// unwind closes g and everything nested in it, and makes its stage current
// again.
func (g *Group[S]) unwind() {
	if g.s.finished || !g.open() {
		return
	}
	g.s.stage = g.token
	g.s.closeGroups(g.depth)
}

// closeGroups pops every scope record from the innermost down to depth,
// marking their units idle.
func (s *session) closeGroups(depth int) {
	for len(s.groups) >= depth {
		n := len(s.groups)
		rec := s.groups[n-1]
		s.groups[n-1] = nil
		s.groups = s.groups[:n-1]
		for _, b := range rec.textures {
			s.textures.Idle(b.unit, b.index)
		}
		for _, b := range rec.uniformBuffers {
			s.uniformBuffers.Idle(b.unit, b.index)
		}
		s.log.Debug("gpustate: group closed",
			"depth", n,
			"textures", len(rec.textures),
			"uniform_buffers", len(rec.uniformBuffers))
	}
}

// boundIn returns the unit idx is bound to by an open group.
func (s *session) boundIn(idx backend.ScarceIndex, list func(*scopeRecord) []binding) (backend.Unit, bool) {
	for _, rec := range s.groups {
		for _, b := range list(rec) {
			if b.index == idx {
				return b.unit, true
			}
		}
	}
	return 0, false
}

// acquire returns a unit holding idx, binding it if needed. The unit is
// recorded in the innermost group.
func (s *session) acquire(
	kind string,
	a *units.Allocator,
	idx backend.ScarceIndex,
	list func(*scopeRecord) []binding,
	record func(*scopeRecord, binding),
	bind func(backend.Unit) error,
) (backend.Unit, error) {
	if unit, ok := s.boundIn(idx, list); ok {
		return unit, nil
	}
	e, err := a.GetFor(idx)
	if err != nil {
		s.log.Warn("gpustate: out of units", "kind", kind, "max", a.Max())
		return 0, fmt.Errorf("gpustate: bind %s %d: %w", kind, idx, err)
	}
	if e.Holds(idx) {
		s.log.Debug("gpustate: unit reused", "kind", kind, "unit", e.Unit, "index", idx)
	} else {
		if err := bind(e.Unit); err != nil {
			a.Release(e)
			return 0, fmt.Errorf("gpustate: bind %s %d to unit %d: %w", kind, idx, e.Unit, err)
		}
		s.log.Debug("gpustate: unit bound", "kind", kind, "unit", e.Unit, "index", idx)
	}
	record(s.groups[len(s.groups)-1], binding{unit: e.Unit, index: idx})
	return e.Unit, nil
}

// Texture binds tex to a texture unit and associates the unit with every
// given shader binding point. It returns the unit.
//
// Binding fails with backend.ErrNoMoreUnits when every texture unit is
// held by an open group.
func (g *Group[S]) Texture(tex *Texture, points ...backend.ShaderTextureBindingPoint) (backend.Unit, error) {
	g.assert("Texture")
	if _, err := tex.alive(); err != nil {
		return 0, err
	}
	s := g.s
	h := tex.Handle()
	unit, err := s.acquire("texture", s.textures, h.ScarceIndex(),
		func(r *scopeRecord) []binding { return r.textures },
		func(r *scopeRecord, b binding) { r.textures = append(r.textures, b) },
		func(u backend.Unit) error { return s.b.CmdBufBindTexture(s.cb, h, u) },
	)
	if err != nil {
		return 0, err
	}
	for _, p := range points {
		if err := s.b.CmdBufAssociateTextureUnit(s.cb, unit, p); err != nil {
			return unit, fmt.Errorf("gpustate: associate texture unit %d with %v: %w", unit, p, err)
		}
	}
	return unit, nil
}

// UniformBuffer binds ub to a uniform-buffer unit and associates the unit
// with every given shader binding point. It returns the unit.
//
// ub must come from a live Shader.
func (g *Group[S]) UniformBuffer(ub backend.UniformBuffer, points ...backend.ShaderUniformBufferBindingPoint) (backend.Unit, error) {
	g.assert("UniformBuffer")
	s := g.s
	idx := ub.ScarceIndex()
	ok, err := cache.IsTracked(s.dev.cache, cache.UniformBuffers, idx)
	if err != nil {
		return 0, err
	}
	if !ok {
		if s.dev.cache.Closed() {
			return 0, ErrDeviceClosed
		}
		return 0, fmt.Errorf("gpustate: uniform buffer %d: %w", idx, ErrDestroyed)
	}
	unit, err := s.acquire("uniform buffer", s.uniformBuffers, idx,
		func(r *scopeRecord) []binding { return r.uniformBuffers },
		func(r *scopeRecord, b binding) { r.uniformBuffers = append(r.uniformBuffers, b) },
		func(u backend.Unit) error { return s.b.CmdBufBindUniformBuffer(s.cb, ub, u) },
	)
	if err != nil {
		return 0, err
	}
	for _, p := range points {
		if err := s.b.CmdBufAssociateUniformBufferUnit(s.cb, unit, p); err != nil {
			return unit, fmt.Errorf("gpustate: associate uniform buffer unit %d with %v: %w", unit, p, err)
		}
	}
	return unit, nil
}
