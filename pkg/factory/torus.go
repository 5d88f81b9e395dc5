package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
)

var _ Composable = (*TorusFactory)(nil)

// TorusFactory builds a Z-axis torus primitive. The minor (tube) radius
// must stay strictly below the major (ring) radius for the surface to be
// well-formed; the cross-field constraint is enforced by validation rather
// than the individual setters.
type TorusFactory struct {
	*Base

	pos         kernel.Position
	majorRadius float64
	minorRadius float64

	previewID kernel.ShapeID // guarded by Base.hookMu
}

// NewTorus creates a torus factory with a 10mm ring and 2mm tube.
func NewTorus(ops kernel.Operations, opts ...Option) *TorusFactory {
	f := &TorusFactory{majorRadius: 10, minorRadius: 2}
	f.Base = newBase("torus", ops, f, opts...)

	return f
}

func (f *TorusFactory) Position() kernel.Position { return f.pos }
func (f *TorusFactory) MajorRadius() float64      { return f.majorRadius }
func (f *TorusFactory) MinorRadius() float64      { return f.minorRadius }

// SetPosition moves the torus. Returns true if the value changed.
func (f *TorusFactory) SetPosition(pos kernel.Position) bool {
	return setPosition(f.Base, &f.pos, pos)
}

// SetMajorRadius assigns the ring radius. Non-positive values are rejected.
func (f *TorusFactory) SetMajorRadius(v float64) bool {
	return setDimension(f.Base, "majorRadius", &f.majorRadius, v)
}

// SetMinorRadius assigns the tube radius. Non-positive values are rejected.
func (f *TorusFactory) SetMinorRadius(v float64) bool {
	return setDimension(f.Base, "minorRadius", &f.minorRadius, v)
}

func (f *TorusFactory) valid() bool {
	return f.majorRadius > 0 && f.minorRadius > 0 && f.minorRadius < f.majorRadius
}

func (f *TorusFactory) params() Params {
	return mergeParams(positionParams(f.pos), Params{
		"majorRadius": f.majorRadius,
		"minorRadius": f.minorRadius,
	})
}

func (f *TorusFactory) snapshot() (kernel.Position, float64, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos, f.majorRadius, f.minorRadius
}

func (f *TorusFactory) regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	pos, major, minor := f.snapshot()

	discardPreview(ctx, f.ops, &f.previewID, f.log)

	created, err := f.ops.CreateTorus(ctx, pos, major, minor)
	if err != nil {
		return nil, err
	}

	f.previewID = created.ID

	return f.ops.Tessellate(ctx, created.ID, opts)
}

func (f *TorusFactory) create(ctx context.Context, opts kernel.Options) (*Result, error) {
	if f.previewID != "" {
		return promotePreview(ctx, f.ops, &f.previewID, opts)
	}

	pos, major, minor := f.snapshot()

	created, err := f.ops.CreateTorus(ctx, pos, major, minor)
	if err != nil {
		return nil, err
	}

	return tessellateResult(ctx, f.ops, created.ID, opts)
}

func (f *TorusFactory) cleanup(ctx context.Context) {
	discardPreview(ctx, f.ops, &f.previewID, f.log)
}
