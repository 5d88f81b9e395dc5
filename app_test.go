package main

import (
	"sync"
	"testing"
	"time"

	"github.com/cadhy/cadhy/pkg/kernel/sdfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// eventRecorder captures emitted frontend events.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ch: make(chan string, 32)}
}

func (r *eventRecorder) emit(event string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	select {
	case r.ch <- event:
	default:
	}
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.events))
	copy(out, r.events)

	return out
}

func (r *eventRecorder) waitFor(t *testing.T, event string) {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-r.ch:
			if got == event {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %q, saw %v", event, r.names())
		}
	}
}

func newTestApp() (*App, *sdfx.Engine, *eventRecorder) {
	eng := sdfx.New()
	app := newApp(eng, zap.NewNop())

	rec := newEventRecorder()
	app.emit = rec.emit

	return app, eng, rec
}

func TestStartOperationUnknownKind(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp()

	_, err := app.StartOperation("dodecahedron")
	assert.Error(t, err)
}

func TestOperationLifecycle(t *testing.T) {
	t.Parallel()

	app, eng, rec := newTestApp()

	info, err := app.StartOperation("box")
	require.NoError(t, err)
	assert.Equal(t, "box", info.Kind)
	assert.Equal(t, "idle", info.State)
	assert.True(t, info.Valid)
	assert.Equal(t, 10.0, info.Params["width"])

	changed, err := app.SetParameter(info.ID, "width", 25)
	require.NoError(t, err)
	assert.True(t, changed)

	// Same value again: no change.
	changed, err = app.SetParameter(info.ID, "width", 25)
	require.NoError(t, err)
	assert.False(t, changed)

	mesh, err := app.Preview(info.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, mesh.Vertices)
	assert.NotEmpty(t, mesh.Color)

	obj, err := app.CommitOperation(info.ID, "base plate")
	require.NoError(t, err)
	assert.Equal(t, "base plate", obj.Name)
	assert.Equal(t, "box", obj.Kind)
	assert.InDelta(t, 25*10*10, obj.Analysis.Volume, 0.01)

	// The session is closed; the shape lives on in the scene.
	_, err = app.SessionState(info.ID)
	assert.Error(t, err)

	require.Len(t, app.ListScene(), 1)
	assert.Equal(t, 1, eng.ShapeCount())
	assert.Contains(t, rec.names(), eventSceneChanged)
}

func TestSetParameterUnknownName(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp()

	info, err := app.StartOperation("sphere")
	require.NoError(t, err)

	_, err = app.SetParameter(info.ID, "girth", 4)
	assert.Error(t, err)
}

func TestSetPositionMovesPreview(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp()

	info, err := app.StartOperation("cylinder")
	require.NoError(t, err)

	changed, err := app.SetPosition(info.ID, 5, 0, 0)
	require.NoError(t, err)
	assert.True(t, changed)

	state, err := app.SessionState(info.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"x": 5, "y": 0, "z": 0}, state.Params["position"])

	require.NoError(t, app.CancelOperation(info.ID))
}

func TestCancelOperationReleasesPreview(t *testing.T) {
	t.Parallel()

	app, eng, _ := newTestApp()

	info, err := app.StartOperation("sphere")
	require.NoError(t, err)

	_, err = app.Preview(info.ID)
	require.NoError(t, err)
	require.Equal(t, 1, eng.ShapeCount())

	require.NoError(t, app.CancelOperation(info.ID))

	assert.Zero(t, eng.ShapeCount())
	assert.Empty(t, app.ListScene())

	_, err = app.SessionState(info.ID)
	assert.Error(t, err)
}

func TestDebouncedPreviewEmitsEvent(t *testing.T) {
	t.Parallel()

	app, _, rec := newTestApp()

	info, err := app.StartOperation("box")
	require.NoError(t, err)

	_, err = app.SetParameter(info.ID, "width", 12)
	require.NoError(t, err)

	rec.waitFor(t, eventPreviewUpdated)

	require.NoError(t, app.CancelOperation(info.ID))
}

func TestRunScriptCommitsObjects(t *testing.T) {
	t.Parallel()

	app, eng, rec := newTestApp()

	result, err := app.RunScript(`
(box 10 10 10)
(sphere 5 :at (vec3 30 0 0))
`)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Objects, 2)

	assert.Equal(t, "box", result.Objects[0].Kind)
	assert.Equal(t, "sphere", result.Objects[1].Kind)
	assert.NotEmpty(t, result.Objects[0].Mesh.Vertices)

	assert.Len(t, app.ListScene(), 2)
	assert.Equal(t, 2, eng.ShapeCount())
	assert.Contains(t, rec.names(), eventSceneChanged)
}

func TestRunScriptReportsErrors(t *testing.T) {
	t.Parallel()

	app, eng, _ := newTestApp()

	result, err := app.RunScript(`(torus 5 8)`)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Objects)
	assert.Zero(t, eng.ShapeCount())
}

func TestRemoveAndClearScene(t *testing.T) {
	t.Parallel()

	app, eng, _ := newTestApp()

	result, err := app.RunScript(`(box 10 10 10) (cylinder 5 10)`)
	require.NoError(t, err)
	require.Len(t, result.Objects, 2)
	require.Equal(t, 2, eng.ShapeCount())

	require.NoError(t, app.RemoveObject(result.Objects[0].ID))
	assert.Equal(t, 1, eng.ShapeCount())
	assert.Len(t, app.ListScene(), 1)

	assert.Error(t, app.RemoveObject("missing"))

	require.NoError(t, app.ClearScene())
	assert.Zero(t, eng.ShapeCount())
	assert.Empty(t, app.ListScene())
}

func TestRenameObject(t *testing.T) {
	t.Parallel()

	app, _, _ := newTestApp()

	result, err := app.RunScript(`(box 10 10 10)`)
	require.NoError(t, err)
	require.Len(t, result.Objects, 1)

	// Script objects get generated names.
	assert.Equal(t, "box 1", result.Objects[0].Name)

	require.NoError(t, app.RenameObject(result.Objects[0].ID, "chassis"))
	assert.Equal(t, "chassis", app.ListScene()[0].Name)
}
