package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
)

// Compile-time capability check.
var _ Composable = (*BoxFactory)(nil)

// BoxFactory builds an axis-aligned box primitive. Width spans X, depth
// spans Y, height spans Z.
type BoxFactory struct {
	*Base

	pos    kernel.Position
	width  float64
	height float64
	depth  float64

	// previewID is the transient uncommitted shape backing the current
	// preview mesh. Owned exclusively by this factory until discarded or
	// promoted at commit. Guarded by Base.hookMu.
	previewID kernel.ShapeID
}

// NewBox creates a box factory with 10mm default dimensions.
func NewBox(ops kernel.Operations, opts ...Option) *BoxFactory {
	f := &BoxFactory{width: 10, height: 10, depth: 10}
	f.Base = newBase("box", ops, f, opts...)

	return f
}

func (f *BoxFactory) Position() kernel.Position { return f.pos }
func (f *BoxFactory) Width() float64            { return f.width }
func (f *BoxFactory) Height() float64           { return f.height }
func (f *BoxFactory) Depth() float64            { return f.depth }

// SetPosition moves the box. Returns true if the value changed.
func (f *BoxFactory) SetPosition(pos kernel.Position) bool {
	return setPosition(f.Base, &f.pos, pos)
}

// SetWidth assigns the X extent. Non-positive values are rejected.
func (f *BoxFactory) SetWidth(v float64) bool {
	return setDimension(f.Base, "width", &f.width, v)
}

// SetHeight assigns the Z extent. Non-positive values are rejected.
func (f *BoxFactory) SetHeight(v float64) bool {
	return setDimension(f.Base, "height", &f.height, v)
}

// SetDepth assigns the Y extent. Non-positive values are rejected.
func (f *BoxFactory) SetDepth(v float64) bool {
	return setDimension(f.Base, "depth", &f.depth, v)
}

func (f *BoxFactory) valid() bool {
	return f.width > 0 && f.height > 0 && f.depth > 0
}

func (f *BoxFactory) params() Params {
	return mergeParams(positionParams(f.pos), Params{
		"width":  f.width,
		"height": f.height,
		"depth":  f.depth,
	})
}

func (f *BoxFactory) snapshot() (kernel.Position, float64, float64, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.pos, f.width, f.height, f.depth
}

func (f *BoxFactory) regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	pos, w, h, d := f.snapshot()

	discardPreview(ctx, f.ops, &f.previewID, f.log)

	created, err := f.ops.CreateBox(ctx, pos, w, d, h)
	if err != nil {
		return nil, err
	}

	f.previewID = created.ID

	return f.ops.Tessellate(ctx, created.ID, opts)
}

func (f *BoxFactory) create(ctx context.Context, opts kernel.Options) (*Result, error) {
	if f.previewID != "" {
		return promotePreview(ctx, f.ops, &f.previewID, opts)
	}

	pos, w, h, d := f.snapshot()

	created, err := f.ops.CreateBox(ctx, pos, w, d, h)
	if err != nil {
		return nil, err
	}

	return tessellateResult(ctx, f.ops, created.ID, opts)
}

func (f *BoxFactory) cleanup(ctx context.Context) {
	discardPreview(ctx, f.ops, &f.previewID, f.log)
}
