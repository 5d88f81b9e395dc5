package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
)

var _ Composable = (*SphereFactory)(nil)

// SphereFactory builds a sphere primitive centered on its position.
type SphereFactory struct {
	*Base

	pos    kernel.Position
	radius float64

	previewID kernel.ShapeID // guarded by Base.hookMu
}

// NewSphere creates a sphere factory with a 5mm radius.
func NewSphere(ops kernel.Operations, opts ...Option) *SphereFactory {
	f := &SphereFactory{radius: 5}
	f.Base = newBase("sphere", ops, f, opts...)

	return f
}

func (f *SphereFactory) Position() kernel.Position { return f.pos }
func (f *SphereFactory) Radius() float64           { return f.radius }

// SetPosition moves the sphere. Returns true if the value changed.
func (f *SphereFactory) SetPosition(pos kernel.Position) bool {
	return setPosition(f.Base, &f.pos, pos)
}

// SetRadius assigns the radius. Non-positive values are rejected.
func (f *SphereFactory) SetRadius(v float64) bool {
	return setDimension(f.Base, "radius", &f.radius, v)
}

func (f *SphereFactory) valid() bool {
	return f.radius > 0
}

func (f *SphereFactory) params() Params {
	return mergeParams(positionParams(f.pos), Params{"radius": f.radius})
}

func (f *SphereFactory) snapshot() (kernel.Position, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos, f.radius
}

func (f *SphereFactory) regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	pos, r := f.snapshot()

	discardPreview(ctx, f.ops, &f.previewID, f.log)

	created, err := f.ops.CreateSphere(ctx, pos, r)
	if err != nil {
		return nil, err
	}

	f.previewID = created.ID

	return f.ops.Tessellate(ctx, created.ID, opts)
}

func (f *SphereFactory) create(ctx context.Context, opts kernel.Options) (*Result, error) {
	if f.previewID != "" {
		return promotePreview(ctx, f.ops, &f.previewID, opts)
	}

	pos, r := f.snapshot()

	created, err := f.ops.CreateSphere(ctx, pos, r)
	if err != nil {
		return nil, err
	}

	return tessellateResult(ctx, f.ops, created.ID, opts)
}

func (f *SphereFactory) cleanup(ctx context.Context) {
	discardPreview(ctx, f.ops, &f.previewID, f.log)
}
