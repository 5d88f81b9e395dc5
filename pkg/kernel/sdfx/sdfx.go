// Package sdfx implements the kernel.Operations contract using the
// github.com/deadsy/sdfx SDF-based CAD library. Shapes live in an in-memory
// registry keyed by opaque ids; tessellation runs marching cubes at a
// resolution derived from the requested deflection.
package sdfx

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/cadhy/cadhy/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time contract check.
var _ kernel.Operations = (*Engine)(nil)

// Marching cubes cell-count bounds. The cell count scales with the shape's
// largest extent divided by the requested deflection; outside these bounds
// the mesh is either too coarse to preview or too dense to ship to the UI.
const (
	minMeshCells = 16
	maxMeshCells = 300
)

// shape is a registered solid plus the metadata reported at creation.
type shape struct {
	solid    sdf.SDF3
	analysis kernel.Analysis
}

// Option configures the engine at construction time.
type Option func(*Engine)

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine is an SDF-backed geometry engine. All methods are safe for
// concurrent use: creation and deletion take the write lock, tessellation
// reads the registry and then works on an immutable solid.
type Engine struct {
	log *zap.Logger

	mu     sync.RWMutex
	shapes map[kernel.ShapeID]shape
}

// New returns an empty engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:    zap.NewNop(),
		shapes: make(map[kernel.ShapeID]shape),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ShapeCount returns the number of live shapes.
func (e *Engine) ShapeCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.shapes)
}

// register stores a solid under a fresh id and derives its analysis. The
// volume is analytic, supplied by the caller; the bounding box comes from
// the solid itself.
func (e *Engine) register(kind string, solid sdf.SDF3, volume float64) kernel.Created {
	bb := solid.BoundingBox()

	created := kernel.Created{
		ID: kernel.ShapeID(uuid.NewString()),
		Analysis: kernel.Analysis{
			BBoxMin: [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z},
			BBoxMax: [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z},
			Volume:  volume,
		},
	}

	e.mu.Lock()
	e.shapes[created.ID] = shape{solid: solid, analysis: created.Analysis}
	e.mu.Unlock()

	e.log.Debug("shape created",
		zap.String("kind", kind),
		zap.String("id", string(created.ID)),
		zap.Float64("volume", volume))

	return created
}

// translate moves a solid to its placement position.
func translate(s sdf.SDF3, x, y, z float64) sdf.SDF3 {
	return sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z}))
}

// CreateBox creates an axis-aligned box with its minimum corner at pos.
// sdf.Box3D centers the box at the origin, so the placement translation
// includes the half-dimension shift to min-corner convention.
func (e *Engine) CreateBox(ctx context.Context, pos kernel.Position, width, depth, height float64) (kernel.Created, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Created{}, err
	}

	s, err := sdf.Box3D(v3.Vec{X: width, Y: depth, Z: height}, 0)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("box: %w", err)
	}

	s = translate(s, pos.X+width/2, pos.Y+depth/2, pos.Z+height/2)

	return e.register("box", s, width*depth*height), nil
}

// CreateCylinder creates a Z-axis cylinder with its base centered at pos.
func (e *Engine) CreateCylinder(ctx context.Context, pos kernel.Position, radius, height float64) (kernel.Created, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Created{}, err
	}

	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("cylinder: %w", err)
	}

	// Cylinder3D centers on the origin; shift so the base sits at pos.
	s = translate(s, pos.X, pos.Y, pos.Z+height/2)

	return e.register("cylinder", s, math.Pi*radius*radius*height), nil
}

// CreateSphere creates a sphere centered at pos.
func (e *Engine) CreateSphere(ctx context.Context, pos kernel.Position, radius float64) (kernel.Created, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Created{}, err
	}

	s, err := sdf.Sphere3D(radius)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("sphere: %w", err)
	}

	s = translate(s, pos.X, pos.Y, pos.Z)

	return e.register("sphere", s, 4.0/3.0*math.Pi*math.Pow(radius, 3)), nil
}

// CreateCone creates a Z-axis cone frustum with its base centered at pos. A
// zero topRadius produces a full cone, a zero baseRadius an inverted one.
func (e *Engine) CreateCone(ctx context.Context, pos kernel.Position, baseRadius, topRadius, height float64) (kernel.Created, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Created{}, err
	}

	s, err := sdf.Cone3D(height, baseRadius, topRadius, 0)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("cone: %w", err)
	}

	// Cone3D centers on the origin; shift so the base sits at pos.
	s = translate(s, pos.X, pos.Y, pos.Z+height/2)

	// Frustum volume: (pi*h/3) * (r0^2 + r0*r1 + r1^2).
	volume := math.Pi * height / 3 * (baseRadius*baseRadius + baseRadius*topRadius + topRadius*topRadius)

	return e.register("cone", s, volume), nil
}

// CreateTorus creates a Z-axis torus centered at pos, built by revolving a
// tube cross-section offset to the ring radius.
func (e *Engine) CreateTorus(ctx context.Context, pos kernel.Position, majorRadius, minorRadius float64) (kernel.Created, error) {
	if err := ctx.Err(); err != nil {
		return kernel.Created{}, err
	}

	if minorRadius >= majorRadius {
		return kernel.Created{}, fmt.Errorf("torus: minor radius %g must be less than major radius %g", minorRadius, majorRadius)
	}

	circle, err := sdf.Circle2D(minorRadius)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("torus: %w", err)
	}

	profile := sdf.Transform2D(circle, sdf.Translate2d(v2.Vec{X: majorRadius, Y: 0}))

	s, err := sdf.Revolve3D(profile)
	if err != nil {
		return kernel.Created{}, fmt.Errorf("torus: %w", err)
	}

	s = translate(s, pos.X, pos.Y, pos.Z)

	// Pappus: V = 2 * pi^2 * R * r^2.
	volume := 2 * math.Pi * math.Pi * majorRadius * minorRadius * minorRadius

	return e.register("torus", s, volume), nil
}

// Tessellate produces a triangle mesh for an existing shape using marching
// cubes. The cell count is derived from the requested deflection relative to
// the shape's largest extent, clamped to a usable range.
func (e *Engine) Tessellate(ctx context.Context, id kernel.ShapeID, opts kernel.Options) (*kernel.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	sh, ok := e.shapes[id]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tessellate %s: %w", id, kernel.ErrShapeNotFound)
	}

	cells := meshCells(sh.solid, opts.DeflectionOrDefault())

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sh.solid, renderer)

	mesh := trianglesToMesh(triangles)

	e.log.Debug("tessellated",
		zap.String("id", string(id)),
		zap.Int("cells", cells),
		zap.Int("triangles", mesh.TriangleCount()))

	return mesh, nil
}

// DeleteShape releases a shape. Deleting an unknown id is not an error;
// factories discard previews best-effort and may race a prior cleanup.
func (e *Engine) DeleteShape(ctx context.Context, id kernel.ShapeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	_, ok := e.shapes[id]
	delete(e.shapes, id)
	e.mu.Unlock()

	if !ok {
		e.log.Debug("delete of unknown shape", zap.String("id", string(id)))
	}

	return nil
}

// Analysis returns the stored creation analysis for a live shape.
func (e *Engine) Analysis(id kernel.ShapeID) (kernel.Analysis, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sh, ok := e.shapes[id]
	if !ok {
		return kernel.Analysis{}, fmt.Errorf("analysis %s: %w", id, kernel.ErrShapeNotFound)
	}

	return sh.analysis, nil
}

// meshCells derives a marching cubes resolution from the deflection: one
// cell per deflection-length along the largest bounding box extent.
func meshCells(s sdf.SDF3, deflection float64) int {
	bb := s.BoundingBox()
	size := bb.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))

	cells := int(math.Ceil(extent / deflection))

	if cells < minMeshCells {
		return minMeshCells
	}
	if cells > maxMeshCells {
		return maxMeshCells
	}

	return cells
}

// trianglesToMesh flattens marching cubes output into the renderer-ready
// layout, with per-face normals.
func trianglesToMesh(triangles []*sdf.Triangle3) *kernel.Mesh {
	numVerts := len(triangles) * 3

	mesh := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}

	for i, tri := range triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			mesh.Vertices = append(mesh.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			mesh.Normals = append(mesh.Normals, nx, ny, nz)
			mesh.Indices = append(mesh.Indices, uint32(i*3+j))
		}
	}

	return mesh
}
