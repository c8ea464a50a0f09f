package recording

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpustate/backend"
)

// Lifecycle errors reported by the recording backend.
var (
	ErrUnknownObject = errors.New("recording: unknown object")
	ErrDoubleDrop    = errors.New("recording: object dropped twice")
	ErrWrongKind     = errors.New("recording: object has the wrong kind")
	ErrNotOwned      = errors.New("recording: object is owned by another object")
	ErrFinished      = errors.New("recording: command buffer already finished")
	ErrUnitRange     = errors.New("recording: unit out of range")
)

// objectKind classifies pooled objects.
type objectKind uint8

const (
	kindVertexArray objectKind = iota
	kindRenderTargets
	kindColorAttachment
	kindDepthStencilAttachment
	kindShader
	kindUniform
	kindUniformBuffer
	kindTextureBindingPoint
	kindUniformBufferBindingPoint
	kindTexture
	kindCmdBuf
	kindSwapChain
)

var objectKindNames = [...]string{
	kindVertexArray:               "vertex array",
	kindRenderTargets:             "render targets",
	kindColorAttachment:           "color attachment",
	kindDepthStencilAttachment:    "depth/stencil attachment",
	kindShader:                    "shader",
	kindUniform:                   "uniform",
	kindUniformBuffer:             "uniform buffer",
	kindTextureBindingPoint:       "texture binding point",
	kindUniformBufferBindingPoint: "uniform buffer binding point",
	kindTexture:                   "texture",
	kindCmdBuf:                    "command buffer",
	kindSwapChain:                 "swap chain",
}

func (k objectKind) String() string {
	if int(k) < len(objectKindNames) {
		return objectKindNames[k]
	}
	return "unknown"
}

// object is the recorded state of one device object.
type object struct {
	kind     objectKind
	owner    backend.ScarceIndex // non-zero for objects owned by another object
	drops    int
	desc     any
	finished bool
}

// objectPool hands out scarce indices and remembers every object ever
// created. Indices start at 1 and are never reused.
//
// objectPool is not safe for concurrent use; Backend serializes access.
type objectPool struct {
	objects map[backend.ScarceIndex]*object
	next    backend.ScarceIndex
	// children memoizes owned lookups so a name resolves to one index.
	children map[string]backend.ScarceIndex
}

func newObjectPool() *objectPool {
	return &objectPool{
		objects:  make(map[backend.ScarceIndex]*object),
		children: make(map[string]backend.ScarceIndex),
	}
}

func (p *objectPool) add(kind objectKind, owner backend.ScarceIndex, desc any) backend.ScarceIndex {
	p.next++
	p.objects[p.next] = &object{kind: kind, owner: owner, desc: desc}
	return p.next
}

// child returns the object of the given kind that owner exposes under key,
// creating it on first use.
func (p *objectPool) child(kind objectKind, owner backend.ScarceIndex, key string) backend.ScarceIndex {
	k := fmt.Sprintf("%d/%d/%s", owner, kind, key)
	if idx, ok := p.children[k]; ok {
		return idx
	}
	idx := p.add(kind, owner, key)
	p.children[k] = idx
	return idx
}

// live returns the object at idx if it exists, has the given kind and has
// not been dropped.
func (p *objectPool) live(idx backend.ScarceIndex, kind objectKind) (*object, error) {
	o, ok := p.objects[idx]
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrUnknownObject, kind, idx)
	}
	if o.kind != kind {
		return nil, fmt.Errorf("%w: %d is a %s, want %s", ErrWrongKind, idx, o.kind, kind)
	}
	if o.drops > 0 {
		return nil, fmt.Errorf("%w: %s %d used after drop", ErrUnknownObject, kind, idx)
	}
	if o.owner != 0 {
		if _, err := p.live(o.owner, p.objects[o.owner].kind); err != nil {
			return nil, fmt.Errorf("%s %d: owner: %w", kind, idx, err)
		}
	}
	return o, nil
}

// drop marks idx dropped. Dropping twice is reported and counted.
func (p *objectPool) drop(idx backend.ScarceIndex, kind objectKind) error {
	o, ok := p.objects[idx]
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrUnknownObject, kind, idx)
	}
	if o.kind != kind {
		return fmt.Errorf("%w: %d is a %s, want %s", ErrWrongKind, idx, o.kind, kind)
	}
	if o.owner != 0 {
		return fmt.Errorf("%w: %s %d", ErrNotOwned, kind, idx)
	}
	o.drops++
	if o.drops > 1 {
		return fmt.Errorf("%w: %s %d", ErrDoubleDrop, kind, idx)
	}
	return nil
}

func (p *objectPool) alive(kind objectKind) int {
	n := 0
	for _, o := range p.objects {
		if o.kind == kind && o.drops == 0 && o.owner == 0 {
			n++
		}
	}
	return n
}
