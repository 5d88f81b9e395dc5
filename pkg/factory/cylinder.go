package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
)

var _ Composable = (*CylinderFactory)(nil)

// CylinderFactory builds a Z-axis cylinder primitive.
type CylinderFactory struct {
	*Base

	pos    kernel.Position
	radius float64
	height float64

	previewID kernel.ShapeID // guarded by Base.hookMu
}

// NewCylinder creates a cylinder factory with 5mm radius and 10mm height.
func NewCylinder(ops kernel.Operations, opts ...Option) *CylinderFactory {
	f := &CylinderFactory{radius: 5, height: 10}
	f.Base = newBase("cylinder", ops, f, opts...)

	return f
}

func (f *CylinderFactory) Position() kernel.Position { return f.pos }
func (f *CylinderFactory) Radius() float64           { return f.radius }
func (f *CylinderFactory) Height() float64           { return f.height }

// SetPosition moves the cylinder. Returns true if the value changed.
func (f *CylinderFactory) SetPosition(pos kernel.Position) bool {
	return setPosition(f.Base, &f.pos, pos)
}

// SetRadius assigns the radius. Non-positive values are rejected.
func (f *CylinderFactory) SetRadius(v float64) bool {
	return setDimension(f.Base, "radius", &f.radius, v)
}

// SetHeight assigns the height. Non-positive values are rejected.
func (f *CylinderFactory) SetHeight(v float64) bool {
	return setDimension(f.Base, "height", &f.height, v)
}

func (f *CylinderFactory) valid() bool {
	return f.radius > 0 && f.height > 0
}

func (f *CylinderFactory) params() Params {
	return mergeParams(positionParams(f.pos), Params{
		"radius": f.radius,
		"height": f.height,
	})
}

func (f *CylinderFactory) snapshot() (kernel.Position, float64, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos, f.radius, f.height
}

func (f *CylinderFactory) regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	pos, r, h := f.snapshot()

	discardPreview(ctx, f.ops, &f.previewID, f.log)

	created, err := f.ops.CreateCylinder(ctx, pos, r, h)
	if err != nil {
		return nil, err
	}

	f.previewID = created.ID

	return f.ops.Tessellate(ctx, created.ID, opts)
}

func (f *CylinderFactory) create(ctx context.Context, opts kernel.Options) (*Result, error) {
	if f.previewID != "" {
		return promotePreview(ctx, f.ops, &f.previewID, opts)
	}

	pos, r, h := f.snapshot()

	created, err := f.ops.CreateCylinder(ctx, pos, r, h)
	if err != nil {
		return nil, err
	}

	return tessellateResult(ctx, f.ops, created.ID, opts)
}

func (f *CylinderFactory) cleanup(ctx context.Context) {
	discardPreview(ctx, f.ops, &f.previewID, f.log)
}
