// Package scene holds the committed model: every shape a factory has made
// permanent, with the metadata the UI needs to list, select and re-render
// it. The scene owns its shapes' engine handles; removing an object releases
// the native shape.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cadhy/cadhy/pkg/kernel"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrObjectNotFound reports an operation against an object id the scene does
// not hold.
var ErrObjectNotFound = fmt.Errorf("scene object not found")

// ObjectID identifies a scene object. Distinct from the engine's shape id:
// the scene id is stable UI currency, the shape id is an engine handle.
type ObjectID string

// Object is one committed shape in the model.
type Object struct {
	ID        ObjectID        `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	ShapeID   kernel.ShapeID  `json:"shapeId"`
	Mesh      *kernel.Mesh    `json:"mesh"`
	Params    map[string]any  `json:"params"`
	Analysis  kernel.Analysis `json:"analysis"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Option configures a scene at construction time.
type Option func(*Scene)

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(log *zap.Logger) Option {
	return func(s *Scene) {
		if log != nil {
			s.log = log
		}
	}
}

// Scene is an ordered registry of committed objects. Safe for concurrent
// use.
type Scene struct {
	ops kernel.Operations
	log *zap.Logger

	mu      sync.RWMutex
	objects map[ObjectID]Object
	order   []ObjectID
	serial  map[string]int // per-kind counter for generated names
}

// New creates an empty scene bound to the engine that owns its shapes.
func New(ops kernel.Operations, opts ...Option) *Scene {
	s := &Scene{
		ops:     ops,
		log:     zap.NewNop(),
		objects: make(map[ObjectID]Object),
		serial:  make(map[string]int),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Add registers a committed shape and returns the stored object. An empty
// name gets a generated one ("box 1", "box 2", ...). The scene takes over
// ownership of the shape handle.
func (s *Scene) Add(kind, name string, shapeID kernel.ShapeID, mesh *kernel.Mesh, params map[string]any, analysis kernel.Analysis) Object {
	s.mu.Lock()

	if name == "" {
		s.serial[kind]++
		name = fmt.Sprintf("%s %d", kind, s.serial[kind])
	}

	obj := Object{
		ID:        ObjectID(uuid.NewString()),
		Name:      name,
		Kind:      kind,
		ShapeID:   shapeID,
		Mesh:      mesh,
		Params:    params,
		Analysis:  analysis,
		CreatedAt: time.Now(),
	}

	s.objects[obj.ID] = obj
	s.order = append(s.order, obj.ID)
	s.mu.Unlock()

	s.log.Info("object added",
		zap.String("id", string(obj.ID)),
		zap.String("kind", kind),
		zap.String("name", name))

	return obj
}

// Get returns an object by id.
func (s *Scene) Get(id ObjectID) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]

	return obj, ok
}

// List returns every object in insertion order.
func (s *Scene) List() []Object {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(s.order, func(id ObjectID, _ int) Object { return s.objects[id] })
}

// Count returns the number of objects.
func (s *Scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

// Rename changes an object's display name.
func (s *Scene) Rename(id ObjectID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return fmt.Errorf("rename %s: %w", id, ErrObjectNotFound)
	}

	obj.Name = name
	s.objects[id] = obj

	return nil
}

// Remove deletes an object and releases its engine shape. The engine
// tolerates deleting ids it no longer holds, so removal only fails for
// unknown scene objects.
func (s *Scene) Remove(ctx context.Context, id ObjectID) error {
	s.mu.Lock()

	obj, ok := s.objects[id]
	if !ok {
		s.mu.Unlock()

		return fmt.Errorf("remove %s: %w", id, ErrObjectNotFound)
	}

	delete(s.objects, id)
	s.order = lo.Without(s.order, id)
	s.mu.Unlock()

	if err := s.ops.DeleteShape(ctx, obj.ShapeID); err != nil {
		s.log.Warn("engine shape delete failed",
			zap.String("object", string(id)),
			zap.String("shape", string(obj.ShapeID)),
			zap.Error(err))
	}

	s.log.Info("object removed", zap.String("id", string(id)))

	return nil
}

// Clear removes every object and releases every engine shape. The scene is
// empty afterwards even when some deletions fail; those failures come back
// joined.
func (s *Scene) Clear(ctx context.Context) error {
	s.mu.Lock()
	removed := lo.Map(s.order, func(id ObjectID, _ int) Object { return s.objects[id] })
	s.objects = make(map[ObjectID]Object)
	s.order = nil
	s.mu.Unlock()

	var errs []error

	for _, obj := range removed {
		if err := s.ops.DeleteShape(ctx, obj.ShapeID); err != nil {
			errs = append(errs, fmt.Errorf("delete shape %s: %w", obj.ShapeID, err))
		}
	}

	s.log.Info("scene cleared", zap.Int("removed", len(removed)), zap.Int("failed", len(errs)))

	return errors.Join(errs...)
}
