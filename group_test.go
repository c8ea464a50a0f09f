package gpustate

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gpustate/backend"
	"github.com/gogpu/gpustate/recording"
)

func TestGroupUnitExhaustionAndReuse(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(2))
	t1, t2, t3 := newTestTexture(t, d), newTestTexture(t, d), newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}

	g := l.Group()
	for i, tex := range []*Texture{t1, t2} {
		unit, err := g.Texture(tex)
		if err != nil {
			t.Fatalf("Texture(T%d) error = %v", i+1, err)
		}
		if unit != backend.Unit(i) {
			t.Errorf("Texture(T%d) unit = %d, want %d", i+1, unit, i)
		}
	}
	if _, err := g.Texture(t3); !errors.Is(err, backend.ErrNoMoreUnits) {
		t.Fatalf("Texture(T3) error = %v, want ErrNoMoreUnits", err)
	}
	if got := g.Done(); got != l {
		t.Errorf("Done() = %p, want %p", got, l)
	}

	g = l.Group()
	unit, err := g.Texture(t3)
	if err != nil {
		t.Fatalf("Texture(T3) in new group error = %v", err)
	}
	if unit != 0 && unit != 1 {
		t.Errorf("Texture(T3) unit = %d, want a reused unit 0 or 1", unit)
	}
	g.Done()
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupDoneIdlesExactlyItsUnits(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(4))
	outerTex := newTestTexture(t, d)
	a, b := newTestTexture(t, d), newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}
	outer := l.Group()
	if _, err := outer.Texture(outerTex); err != nil {
		t.Fatalf("outer Texture() error = %v", err)
	}

	inner := outer.Group()
	ua, err := inner.Texture(a)
	if err != nil {
		t.Fatalf("inner Texture(a) error = %v", err)
	}
	ub, err := inner.Texture(b)
	if err != nil {
		t.Fatalf("inner Texture(b) error = %v", err)
	}
	inner.Done()

	if got, want := l.s.textures.IdleUnits(), []backend.Unit{ua, ub}; !slices.Equal(got, want) {
		t.Errorf("IdleUnits() after inner Done = %v, want %v", got, want)
	}

	outer.Done()
	if got := len(l.s.textures.IdleUnits()); got != 3 {
		t.Errorf("len(IdleUnits()) after outer Done = %d, want 3", got)
	}
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupRebindsOnlyWhenNeeded(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(2))
	t1 := newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}

	g := l.Group()
	u1, err := g.Texture(t1)
	if err != nil {
		t.Fatalf("Texture() error = %v", err)
	}
	// Binding the same texture twice in open groups shares the unit.
	inner := g.Group()
	again, err := inner.Texture(t1)
	if err != nil {
		t.Fatalf("nested Texture() error = %v", err)
	}
	if again != u1 {
		t.Errorf("nested Texture() unit = %d, want %d", again, u1)
	}
	inner.Done()
	g.Done()

	// Fill the fresh unit so the next bind has to pick an idle one.
	g = l.Group()
	if _, err := g.Texture(newTestTexture(t, d)); err != nil {
		t.Fatalf("Texture() error = %v", err)
	}
	u2, err := g.Texture(t1)
	if err != nil {
		t.Fatalf("Texture() error = %v", err)
	}
	g.Done()

	if u2 != u1 {
		t.Errorf("rebind unit = %d, want %d", u2, u1)
	}
	if got := rec.Count(recording.CmdBindTexture); got != 2 {
		t.Errorf("Count(BindTexture) = %d, want 2", got)
	}
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupBindFailureReleasesUnit(t *testing.T) {
	boom := errors.New("boom")
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(1))
	tex := newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}
	g := l.Group()
	rec.FailNext(recording.CmdBindTexture, boom)
	if _, err := g.Texture(tex); !errors.Is(err, boom) {
		t.Fatalf("Texture() error = %v, want boom", err)
	}
	unit, err := g.Texture(tex)
	if err != nil {
		t.Fatalf("Texture() retry error = %v", err)
	}
	if unit != 0 {
		t.Errorf("Texture() retry unit = %d, want 0", unit)
	}
	g.Done()
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupAssociatesBindingPoints(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec)
	rt := newTestRenderTargets(t, d)
	sh := newTestShader(t, d)
	va := newTestVertexArray(t, d)
	tex := newTestTexture(t, d)

	albedo, err := sh.TextureBindingPoint("albedo")
	if err != nil {
		t.Fatalf("TextureBindingPoint() error = %v", err)
	}
	normal, err := sh.TextureBindingPoint("normal")
	if err != nil {
		t.Fatalf("TextureBindingPoint() error = %v", err)
	}
	lights, err := sh.UniformBuffer("Lights")
	if err != nil {
		t.Fatalf("UniformBuffer() error = %v", err)
	}
	lightsPoint, err := sh.UniformBufferBindingPoint("Lights")
	if err != nil {
		t.Fatalf("UniformBufferBindingPoint() error = %v", err)
	}

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}
	rtl, err := l.RenderTargets(rt)
	if err != nil {
		t.Fatalf("RenderTargets() error = %v", err)
	}
	sl, err := rtl.Shader(sh)
	if err != nil {
		t.Fatalf("Shader() error = %v", err)
	}

	g := sl.Group()
	if _, err := g.Texture(tex, albedo, normal); err != nil {
		t.Fatalf("Texture() error = %v", err)
	}
	if _, err := g.UniformBuffer(lights, lightsPoint); err != nil {
		t.Fatalf("UniformBuffer() error = %v", err)
	}
	if err := g.Layer().Draw(va); err != nil {
		t.Fatalf("Draw() inside group error = %v", err)
	}
	if err := g.Done().Done().Done().Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	want := []recording.CommandType{
		recording.CmdBindRenderTargets,
		recording.CmdBindShader,
		recording.CmdBindTexture,
		recording.CmdAssociateTextureUnit,
		recording.CmdAssociateTextureUnit,
		recording.CmdBindUniformBuffer,
		recording.CmdAssociateUniformBufferUnit,
		recording.CmdDrawVertexArray,
		recording.CmdFinish,
	}
	if got := cmdTypes(rec, l.CmdBuf()); !slices.Equal(got, want) {
		t.Errorf("commands = %v, want %v", got, want)
	}
}

func TestGroupUniformBufferOfDestroyedShader(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec)
	sh := newTestShader(t, d)
	ub, err := sh.UniformBuffer("Block")
	if err != nil {
		t.Fatalf("UniformBuffer() error = %v", err)
	}
	sh.Destroy()

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}
	g := l.Group()
	if _, err := g.UniformBuffer(ub); !errors.Is(err, ErrDestroyed) {
		t.Errorf("UniformBuffer() error = %v, want ErrDestroyed", err)
	}
	g.Done()
}

func TestGroupNestingDiscipline(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec)
	rt := newTestRenderTargets(t, d)
	tex := newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}
	outer := l.Group()
	inner := outer.Group()

	mustPanic(t, "outer.Texture while inner is open", func() {
		_, _ = outer.Texture(tex)
	})
	mustPanic(t, "outer.Done while inner is open", func() {
		outer.Done()
	})
	mustPanic(t, "Finish with open groups", func() {
		_ = l.Finish()
	})

	// The stage stays usable inside groups, but must be left before the
	// group closes.
	rtl, err := inner.Layer().RenderTargets(rt)
	if err != nil {
		t.Fatalf("RenderTargets() inside group error = %v", err)
	}
	mustPanic(t, "inner.Done while a deeper stage is current", func() {
		inner.Done()
	})
	rtGroup := rtl.Group()
	mustPanic(t, "RenderTargetsLayer.Done with its group open", func() {
		rtl.Done()
	})
	rtGroup.Done()
	rtl.Done()

	inner.Done()
	mustPanic(t, "inner.Texture after Done", func() {
		_, _ = inner.Texture(tex)
	})
	outer.Done()
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupScope(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(2))
	tex := newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}

	errStop := errors.New("stop")
	err = l.Group().Scope(func(g *Group[*Layers]) error {
		if _, err := g.Texture(tex); err != nil {
			return err
		}
		return errStop
	})
	if !errors.Is(err, errStop) {
		t.Fatalf("Scope() error = %v, want stop", err)
	}
	if got := len(l.s.groups); got != 0 {
		t.Errorf("open groups after Scope = %d, want 0", got)
	}
	if got := len(l.s.textures.IdleUnits()); got != 1 {
		t.Errorf("idle units after Scope = %d, want 1", got)
	}

	// Scope tolerates fn closing the group itself.
	err = l.Group().Scope(func(g *Group[*Layers]) error {
		g.Done()
		return nil
	})
	if err != nil {
		t.Fatalf("Scope() error = %v", err)
	}
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
}

func TestGroupScopeReleasesOnPanic(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(2))
	rt := newTestRenderTargets(t, d)
	t1, t2 := newTestTexture(t, d), newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}

	mustPanic(t, "Scope", func() {
		_ = l.Group().Scope(func(g *Group[*Layers]) error {
			if _, err := g.Texture(t1); err != nil {
				return err
			}
			rtl, err := g.Layer().RenderTargets(rt)
			if err != nil {
				return err
			}
			nested := rtl.Group()
			if _, err := nested.Texture(t2); err != nil {
				return err
			}
			panic("draw failed")
		})
	})

	if got := len(l.s.groups); got != 0 {
		t.Errorf("open groups after panic = %d, want 0", got)
	}
	if got := len(l.s.textures.IdleUnits()); got != 2 {
		t.Errorf("idle units after panic = %d, want 2", got)
	}
	// The top stage is current again.
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() after panic error = %v", err)
	}
}

func TestGroupScopeClosesGroupsLeftOpen(t *testing.T) {
	rec := recording.New()
	d := newTestDevice(t, rec, WithMaxTextureUnits(2))
	rt := newTestRenderTargets(t, d)
	t1, t2 := newTestTexture(t, d), newTestTexture(t, d)

	l, err := d.NewLayers()
	if err != nil {
		t.Fatalf("NewLayers() error = %v", err)
	}

	err = l.Group().Scope(func(g *Group[*Layers]) error {
		if _, err := g.Texture(t1); err != nil {
			return err
		}
		// Neither the nested group nor the render targets stage is closed.
		rtl, err := g.Layer().RenderTargets(rt)
		if err != nil {
			return err
		}
		_, err = rtl.Group().Texture(t2)
		return err
	})
	if err != nil {
		t.Fatalf("Scope() error = %v", err)
	}

	if got := len(l.s.groups); got != 0 {
		t.Errorf("open groups after Scope = %d, want 0", got)
	}
	if got := len(l.s.textures.IdleUnits()); got != 2 {
		t.Errorf("idle units after Scope = %d, want 2", got)
	}
	if err := l.Finish(); err != nil {
		t.Fatalf("Finish() after Scope error = %v", err)
	}
}
