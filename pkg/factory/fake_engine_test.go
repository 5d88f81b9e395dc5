package factory

import (
	"context"
	"fmt"
	"sync"

	"github.com/cadhy/cadhy/pkg/kernel"
)

// createCall records one shape-creation call with its arguments in engine
// order.
type createCall struct {
	kind string
	pos  kernel.Position
	args []float64
}

// fakeEngine is a recording kernel.Operations implementation. Creation can
// be gated on a channel to exercise supersession, or forced to fail.
type fakeEngine struct {
	mu          sync.Mutex
	nextID      int
	creates     []createCall
	tessellated []kernel.ShapeID
	deleted     []kernel.ShapeID

	failCreate     error
	failTessellate error
	failDelete     error

	// When started is non-nil, each creation call signals it and then
	// blocks until gate is closed.
	started chan struct{}
	gate    chan struct{}
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{}
}

func (e *fakeEngine) create(kind string, pos kernel.Position, args ...float64) (kernel.Created, error) {
	if e.started != nil {
		e.started <- struct{}{}
		<-e.gate
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failCreate != nil {
		return kernel.Created{}, e.failCreate
	}

	e.nextID++
	id := kernel.ShapeID(fmt.Sprintf("%s-%d", kind, e.nextID))
	e.creates = append(e.creates, createCall{kind: kind, pos: pos, args: args})

	return kernel.Created{ID: id}, nil
}

func (e *fakeEngine) CreateBox(_ context.Context, pos kernel.Position, width, depth, height float64) (kernel.Created, error) {
	return e.create("box", pos, width, depth, height)
}

func (e *fakeEngine) CreateCylinder(_ context.Context, pos kernel.Position, radius, height float64) (kernel.Created, error) {
	return e.create("cylinder", pos, radius, height)
}

func (e *fakeEngine) CreateSphere(_ context.Context, pos kernel.Position, radius float64) (kernel.Created, error) {
	return e.create("sphere", pos, radius)
}

func (e *fakeEngine) CreateCone(_ context.Context, pos kernel.Position, baseRadius, topRadius, height float64) (kernel.Created, error) {
	return e.create("cone", pos, baseRadius, topRadius, height)
}

func (e *fakeEngine) CreateTorus(_ context.Context, pos kernel.Position, majorRadius, minorRadius float64) (kernel.Created, error) {
	return e.create("torus", pos, majorRadius, minorRadius)
}

func (e *fakeEngine) Tessellate(_ context.Context, id kernel.ShapeID, _ kernel.Options) (*kernel.Mesh, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failTessellate != nil {
		return nil, e.failTessellate
	}

	e.tessellated = append(e.tessellated, id)

	// One deterministic triangle is enough for the framework's purposes.
	return &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}, nil
}

func (e *fakeEngine) DeleteShape(_ context.Context, id kernel.ShapeID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failDelete != nil {
		return e.failDelete
	}

	e.deleted = append(e.deleted, id)

	return nil
}

func (e *fakeEngine) createCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.creates)
}

func (e *fakeEngine) deletedShapes() []kernel.ShapeID {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]kernel.ShapeID, len(e.deleted))
	copy(out, e.deleted)

	return out
}

func (e *fakeEngine) lastCreate() createCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.creates[len(e.creates)-1]
}

func (e *fakeEngine) setFailCreate(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failCreate = err
}
