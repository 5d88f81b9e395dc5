package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
)

var _ Composable = (*ConeFactory)(nil)

// ConeFactory builds a Z-axis cone frustum primitive. Either radius may be
// zero — a zero top radius is a full cone, a zero base radius an inverted
// one — but not both.
type ConeFactory struct {
	*Base

	pos        kernel.Position
	baseRadius float64
	topRadius  float64
	height     float64

	previewID kernel.ShapeID // guarded by Base.hookMu
}

// NewCone creates a cone factory with a 5mm base, pointed top and 10mm
// height.
func NewCone(ops kernel.Operations, opts ...Option) *ConeFactory {
	f := &ConeFactory{baseRadius: 5, topRadius: 0, height: 10}
	f.Base = newBase("cone", ops, f, opts...)

	return f
}

func (f *ConeFactory) Position() kernel.Position { return f.pos }
func (f *ConeFactory) BaseRadius() float64       { return f.baseRadius }
func (f *ConeFactory) TopRadius() float64        { return f.topRadius }
func (f *ConeFactory) Height() float64           { return f.height }

// SetPosition moves the cone. Returns true if the value changed.
func (f *ConeFactory) SetPosition(pos kernel.Position) bool {
	return setPosition(f.Base, &f.pos, pos)
}

// SetBaseRadius assigns the base radius. Zero is allowed; negative values
// are rejected.
func (f *ConeFactory) SetBaseRadius(v float64) bool {
	return setRadiusAllowZero(f.Base, "baseRadius", &f.baseRadius, v)
}

// SetTopRadius assigns the top radius. Zero is allowed; negative values are
// rejected.
func (f *ConeFactory) SetTopRadius(v float64) bool {
	return setRadiusAllowZero(f.Base, "topRadius", &f.topRadius, v)
}

// SetHeight assigns the height. Non-positive values are rejected.
func (f *ConeFactory) SetHeight(v float64) bool {
	return setDimension(f.Base, "height", &f.height, v)
}

func (f *ConeFactory) valid() bool {
	return f.height > 0 && (f.baseRadius > 0 || f.topRadius > 0)
}

func (f *ConeFactory) params() Params {
	return mergeParams(positionParams(f.pos), Params{
		"baseRadius": f.baseRadius,
		"topRadius":  f.topRadius,
		"height":     f.height,
	})
}

func (f *ConeFactory) snapshot() (kernel.Position, float64, float64, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos, f.baseRadius, f.topRadius, f.height
}

func (f *ConeFactory) regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	pos, r0, r1, h := f.snapshot()

	discardPreview(ctx, f.ops, &f.previewID, f.log)

	created, err := f.ops.CreateCone(ctx, pos, r0, r1, h)
	if err != nil {
		return nil, err
	}

	f.previewID = created.ID

	return f.ops.Tessellate(ctx, created.ID, opts)
}

func (f *ConeFactory) create(ctx context.Context, opts kernel.Options) (*Result, error) {
	if f.previewID != "" {
		return promotePreview(ctx, f.ops, &f.previewID, opts)
	}

	pos, r0, r1, h := f.snapshot()

	created, err := f.ops.CreateCone(ctx, pos, r0, r1, h)
	if err != nil {
		return nil, err
	}

	return tessellateResult(ctx, f.ops, created.ID, opts)
}

func (f *ConeFactory) cleanup(ctx context.Context) {
	discardPreview(ctx, f.ops, &f.previewID, f.log)
}
