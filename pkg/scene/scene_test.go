package scene

import (
	"context"
	"sync"
	"testing"

	"github.com/cadhy/cadhy/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deleteRecorder implements the engine contract recording only deletions;
// the scene never creates shapes itself.
type deleteRecorder struct {
	mu      sync.Mutex
	deleted []kernel.ShapeID
}

var _ kernel.Operations = (*deleteRecorder)(nil)

func (r *deleteRecorder) CreateBox(context.Context, kernel.Position, float64, float64, float64) (kernel.Created, error) {
	panic("scene must not create shapes")
}

func (r *deleteRecorder) CreateCylinder(context.Context, kernel.Position, float64, float64) (kernel.Created, error) {
	panic("scene must not create shapes")
}

func (r *deleteRecorder) CreateSphere(context.Context, kernel.Position, float64) (kernel.Created, error) {
	panic("scene must not create shapes")
}

func (r *deleteRecorder) CreateCone(context.Context, kernel.Position, float64, float64, float64) (kernel.Created, error) {
	panic("scene must not create shapes")
}

func (r *deleteRecorder) CreateTorus(context.Context, kernel.Position, float64, float64) (kernel.Created, error) {
	panic("scene must not create shapes")
}

func (r *deleteRecorder) Tessellate(context.Context, kernel.ShapeID, kernel.Options) (*kernel.Mesh, error) {
	panic("scene must not tessellate")
}

func (r *deleteRecorder) DeleteShape(_ context.Context, id kernel.ShapeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deleted = append(r.deleted, id)

	return nil
}

func (r *deleteRecorder) deletions() []kernel.ShapeID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]kernel.ShapeID, len(r.deleted))
	copy(out, r.deleted)

	return out
}

func TestAddAssignsIDsAndGeneratedNames(t *testing.T) {
	t.Parallel()

	s := New(&deleteRecorder{})

	first := s.Add("box", "", "shape-1", nil, nil, kernel.Analysis{})
	second := s.Add("box", "", "shape-2", nil, nil, kernel.Analysis{})
	named := s.Add("sphere", "bearing", "shape-3", nil, nil, kernel.Analysis{})

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "box 1", first.Name)
	assert.Equal(t, "box 2", second.Name)
	assert.Equal(t, "bearing", named.Name)
	assert.Equal(t, 3, s.Count())
}

func TestListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	s := New(&deleteRecorder{})

	s.Add("box", "a", "shape-1", nil, nil, kernel.Analysis{})
	s.Add("sphere", "b", "shape-2", nil, nil, kernel.Analysis{})
	s.Add("torus", "c", "shape-3", nil, nil, kernel.Analysis{})

	names := make([]string, 0, 3)
	for _, obj := range s.List() {
		names = append(names, obj.Name)
	}

	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRemoveReleasesEngineShape(t *testing.T) {
	t.Parallel()

	rec := &deleteRecorder{}
	s := New(rec)

	obj := s.Add("box", "a", "shape-1", nil, nil, kernel.Analysis{})
	keep := s.Add("box", "b", "shape-2", nil, nil, kernel.Analysis{})

	require.NoError(t, s.Remove(context.Background(), obj.ID))

	assert.Equal(t, []kernel.ShapeID{"shape-1"}, rec.deletions())
	assert.Equal(t, 1, s.Count())

	_, ok := s.Get(obj.ID)
	assert.False(t, ok)

	_, ok = s.Get(keep.ID)
	assert.True(t, ok)

	// Removing twice reports the missing object.
	err := s.Remove(context.Background(), obj.ID)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestRename(t *testing.T) {
	t.Parallel()

	s := New(&deleteRecorder{})

	obj := s.Add("box", "draft", "shape-1", nil, nil, kernel.Analysis{})

	require.NoError(t, s.Rename(obj.ID, "final"))

	got, ok := s.Get(obj.ID)
	require.True(t, ok)
	assert.Equal(t, "final", got.Name)

	assert.ErrorIs(t, s.Rename("missing", "x"), ErrObjectNotFound)
}

func TestClearReleasesEverything(t *testing.T) {
	t.Parallel()

	rec := &deleteRecorder{}
	s := New(rec)

	s.Add("box", "a", "shape-1", nil, nil, kernel.Analysis{})
	s.Add("box", "b", "shape-2", nil, nil, kernel.Analysis{})

	require.NoError(t, s.Clear(context.Background()))

	assert.Zero(t, s.Count())
	assert.Empty(t, s.List())
	assert.ElementsMatch(t, []kernel.ShapeID{"shape-1", "shape-2"}, rec.deletions())
}
