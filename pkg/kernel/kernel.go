// Package kernel defines the operation contract between the factory
// framework and the geometry engine. Implementations (sdfx, occt) provide
// shape creation, tessellation and deletion behind this interface. The
// contract is deliberately narrow: the engine's internal solid representation
// never crosses it, only opaque shape handles and renderer-ready triangle
// meshes.
package kernel

import (
	"context"
	"errors"
)

// ErrShapeNotFound reports an operation against a shape id the engine does
// not hold. DeleteShape never returns it; tessellation does.
var ErrShapeNotFound = errors.New("shape not found")

// ShapeID is an opaque handle to a shape owned by the geometry engine.
type ShapeID string

// Position is a 3D placement for a primitive, in model units (mm).
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Analysis is engine-specific metadata reported at shape creation. The
// factory framework ignores it; the UI displays it.
type Analysis struct {
	BBoxMin [3]float64 `json:"bboxMin"`
	BBoxMax [3]float64 `json:"bboxMax"`
	Volume  float64    `json:"volume"` // approximate, engine-dependent
}

// Created is the result of a shape-creation call.
type Created struct {
	ID       ShapeID  `json:"id"`
	Analysis Analysis `json:"analysis"`
}

// DefaultDeflection is the linear deflection used when tessellation options
// leave it unset. Matches the engine's interactive-preview preset.
const DefaultDeflection = 0.1

// Options configures tessellation quality. The zero value selects the
// preview preset.
type Options struct {
	// Deflection is the maximum distance between the mesh and the exact
	// surface. Smaller values produce denser meshes.
	Deflection float64 `json:"deflection"`
}

// DeflectionOrDefault returns the configured deflection, or
// DefaultDeflection when unset or non-positive.
func (o Options) DeflectionOrDefault() float64 {
	if o.Deflection > 0 {
		return o.Deflection
	}
	return DefaultDeflection
}

// Operations is the contract through which factories ask the engine to
// create shapes, produce meshes, and release shapes. Every call is a
// suspension point from the factory's perspective and may be expensive.
//
// Implementations must tolerate DeleteShape on an id that no longer exists;
// callers treat deletion as best-effort.
type Operations interface {
	// CreateBox creates an axis-aligned box with its minimum corner at pos.
	// Argument order (width, depth, height) follows the engine contract:
	// width spans X, depth spans Y, height spans Z.
	CreateBox(ctx context.Context, pos Position, width, depth, height float64) (Created, error)

	// CreateCylinder creates a Z-axis cylinder with its base centered at pos.
	CreateCylinder(ctx context.Context, pos Position, radius, height float64) (Created, error)

	// CreateSphere creates a sphere centered at pos.
	CreateSphere(ctx context.Context, pos Position, radius float64) (Created, error)

	// CreateCone creates a Z-axis cone frustum with its base centered at pos.
	// A zero topRadius produces a full cone.
	CreateCone(ctx context.Context, pos Position, baseRadius, topRadius, height float64) (Created, error)

	// CreateTorus creates a Z-axis torus centered at pos. The minor radius
	// must be strictly less than the major radius.
	CreateTorus(ctx context.Context, pos Position, majorRadius, minorRadius float64) (Created, error)

	// Tessellate produces a triangle mesh for an existing shape.
	Tessellate(ctx context.Context, id ShapeID, opts Options) (*Mesh, error)

	// DeleteShape releases a shape. Deleting an unknown id is not an error.
	DeleteShape(ctx context.Context, id ShapeID) error
}
