package factory

import (
	"context"

	"github.com/cadhy/cadhy/pkg/kernel"
	"go.uber.org/zap"
)

// Shared helpers for positioned factories: parameter mutation and preview
// handle management. Every accepted mutation routes through Base.noteChange
// so moving an in-progress primitive regenerates exactly the way resizing it
// does.

// setPosition assigns a position triple. Returns true if the value changed.
func setPosition(b *Base, dst *kernel.Position, pos kernel.Position) bool {
	b.mu.Lock()

	if *dst == pos {
		b.mu.Unlock()
		return false
	}

	*dst = pos
	b.mu.Unlock()

	b.noteChange("position", pos)

	return true
}

// setDimension assigns a strictly positive dimension. Non-positive values
// are rejected silently, leaving the previous value; unchanged values do not
// mark the factory dirty. Returns true if the value changed.
func setDimension(b *Base, name string, dst *float64, v float64) bool {
	if v <= 0 {
		return false
	}

	b.mu.Lock()

	if *dst == v {
		b.mu.Unlock()
		return false
	}

	*dst = v
	b.mu.Unlock()

	b.noteChange(name, v)

	return true
}

// setRadiusAllowZero assigns a radius that may legitimately be zero (a cone
// frustum degenerating to a full cone). Negative values are rejected.
func setRadiusAllowZero(b *Base, name string, dst *float64, v float64) bool {
	if v < 0 {
		return false
	}

	b.mu.Lock()

	if *dst == v {
		b.mu.Unlock()
		return false
	}

	*dst = v
	b.mu.Unlock()

	b.noteChange(name, v)

	return true
}

// promotePreview commits the live preview shape directly: it is tessellated
// at commit quality and ownership passes to the caller, avoiding a second
// creation call. The handle is surrendered only after tessellation succeeds.
func promotePreview(ctx context.Context, ops kernel.Operations, id *kernel.ShapeID, opts kernel.Options) (*Result, error) {
	mesh, err := ops.Tessellate(ctx, *id, opts)
	if err != nil {
		return nil, err
	}

	shape := *id
	*id = ""

	return &Result{ShapeID: shape, Mesh: mesh, Success: true}, nil
}

// tessellateResult finishes a fresh-creation commit by tessellating the
// newly created shape.
func tessellateResult(ctx context.Context, ops kernel.Operations, id kernel.ShapeID, opts kernel.Options) (*Result, error) {
	mesh, err := ops.Tessellate(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	return &Result{ShapeID: id, Mesh: mesh, Success: true}, nil
}

// discardPreview deletes an outstanding preview shape, best effort. The
// shape may already be gone engine-side; deletion errors are logged and
// swallowed. The handle is cleared either way.
func discardPreview(ctx context.Context, ops kernel.Operations, id *kernel.ShapeID, log *zap.Logger) {
	if *id == "" {
		return
	}

	if err := ops.DeleteShape(ctx, *id); err != nil {
		log.Debug("preview shape delete failed", zap.String("shape", string(*id)), zap.Error(err))
	}

	*id = ""
}
