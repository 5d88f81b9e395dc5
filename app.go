package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/cadhy/cadhy/pkg/factory"
	"github.com/cadhy/cadhy/pkg/kernel"
	"github.com/cadhy/cadhy/pkg/kernel/sdfx"
	"github.com/cadhy/cadhy/pkg/scene"
	"github.com/cadhy/cadhy/pkg/script"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

// Frontend event names.
const (
	eventPreviewUpdated = "preview:updated"
	eventSceneChanged   = "scene:changed"
	eventOperationError = "operation:error"
)

// previewDebounce is how long parameter edits settle before a background
// preview regeneration fires. Slider drags produce a burst of changes; one
// regeneration at the end is enough.
const previewDebounce = 60 * time.Millisecond

// colorPalette assigns distinct colors to scene objects and previews.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// analyzer is the optional engine capability for retrieving stored creation
// analysis. The sdfx engine provides it; fakes may not.
type analyzer interface {
	Analysis(id kernel.ShapeID) (kernel.Analysis, error)
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Color    string    `json:"color"`
}

// SessionInfo describes a live operation session to the frontend.
type SessionInfo struct {
	ID     string         `json:"id"`
	Kind   string         `json:"kind"`
	State  string         `json:"state"`
	Valid  bool           `json:"valid"`
	Params map[string]any `json:"params"`
}

// ObjectData is the JSON-serializable form of a committed scene object.
type ObjectData struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Kind     string          `json:"kind"`
	Mesh     MeshData        `json:"mesh"`
	Params   map[string]any  `json:"params"`
	Analysis kernel.Analysis `json:"analysis"`
}

// EvalErrorData is a JSON-serializable script error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// ScriptResult is the outcome of running a script: either the committed
// objects or the script's errors.
type ScriptResult struct {
	Objects []ObjectData    `json:"objects"`
	Errors  []EvalErrorData `json:"errors"`
}

// session is one live, uncommitted operation driven from the frontend.
type session struct {
	id       string
	kind     string
	factory  factory.Composable
	debounce func(func())
}

// App is the Wails backend: it owns the geometry engine, the scene, the
// script engine, and the live operation sessions.
type App struct {
	ctx    context.Context
	log    *zap.Logger
	ops    kernel.Operations
	scene  *scene.Scene
	script *script.Engine

	// emit publishes an event to the frontend. Injected so tests can
	// observe events without a Wails runtime.
	emit func(event string, payload any)

	mu       sync.Mutex
	sessions map[string]*session
}

// NewApp wires the application with the sdfx engine.
func NewApp(log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}

	eng := sdfx.New(sdfx.WithLogger(log))

	return newApp(eng, log)
}

// newApp wires the application around an arbitrary engine.
func newApp(ops kernel.Operations, log *zap.Logger) *App {
	a := &App{
		log:      log,
		ops:      ops,
		scene:    scene.New(ops, scene.WithLogger(log)),
		script:   script.NewEngine(ops, script.WithLogger(log)),
		sessions: make(map[string]*session),
	}

	a.emit = a.runtimeEmit

	return a
}

// startup is called by Wails when the application starts.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.log.Info("application started")
}

// shutdown disposes every live session.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	sessions := lo.Values(a.sessions)
	a.sessions = make(map[string]*session)
	a.mu.Unlock()

	for _, s := range sessions {
		s.factory.Dispose()
	}

	a.log.Info("application stopped", zap.Int("sessions_disposed", len(sessions)))
}

// runtimeEmit publishes through the Wails event bridge.
func (a *App) runtimeEmit(event string, payload any) {
	if a.ctx == nil {
		return
	}

	runtime.EventsEmit(a.ctx, event, payload)
}

// opContext returns the context background work runs under.
func (a *App) opContext() context.Context {
	if a.ctx != nil {
		return a.ctx
	}

	return context.Background()
}

// lookup finds a live session.
func (a *App) lookup(sessionID string) (*session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no operation session %q", sessionID)
	}

	return s, nil
}

// info snapshots a session for the frontend.
func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:     s.id,
		Kind:   s.kind,
		State:  s.factory.State().String(),
		Valid:  s.factory.IsValid(),
		Params: s.factory.Params(),
	}
}

// StartOperation opens a new operation session for the given primitive kind
// and returns its id and default parameters.
func (a *App) StartOperation(kind string) (SessionInfo, error) {
	var f factory.Composable

	switch kind {
	case "box":
		f = factory.NewBox(a.ops, factory.WithLogger(a.log))
	case "cylinder":
		f = factory.NewCylinder(a.ops, factory.WithLogger(a.log))
	case "sphere":
		f = factory.NewSphere(a.ops, factory.WithLogger(a.log))
	case "cone":
		f = factory.NewCone(a.ops, factory.WithLogger(a.log))
	case "torus":
		f = factory.NewTorus(a.ops, factory.WithLogger(a.log))
	default:
		return SessionInfo{}, fmt.Errorf("unknown primitive kind %q", kind)
	}

	s := &session{
		id:       uuid.NewString(),
		kind:     kind,
		factory:  f,
		debounce: debounce.New(previewDebounce),
	}

	a.mu.Lock()
	a.sessions[s.id] = s
	a.mu.Unlock()

	a.log.Info("operation started", zap.String("session", s.id), zap.String("kind", kind))

	return s.info(), nil
}

// SetParameter applies one named parameter to a session's factory. Returns
// whether the value actually changed; a change schedules a debounced
// background preview.
func (a *App) SetParameter(sessionID, name string, value float64) (bool, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return false, err
	}

	changed, err := applyParameter(s.factory, name, value)
	if err != nil {
		return false, err
	}

	if changed {
		a.schedulePreview(s)
	}

	return changed, nil
}

// SetPosition moves a session's primitive. A change schedules a debounced
// background preview.
func (a *App) SetPosition(sessionID string, x, y, z float64) (bool, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return false, err
	}

	changed, err := applyPosition(s.factory, kernel.Position{X: x, Y: y, Z: z})
	if err != nil {
		return false, err
	}

	if changed {
		a.schedulePreview(s)
	}

	return changed, nil
}

// schedulePreview regenerates the session's preview after edits settle and
// pushes it to the frontend.
func (a *App) schedulePreview(s *session) {
	s.debounce(func() {
		mesh, err := s.factory.UpdateWithCache(a.opContext(), kernel.Options{})
		if err != nil {
			a.emit(eventOperationError, map[string]any{
				"session": s.id,
				"message": err.Error(),
			})

			return
		}

		a.emit(eventPreviewUpdated, map[string]any{
			"session": s.id,
			"mesh":    toMeshData(mesh, 0),
		})
	})
}

// Preview regenerates (or serves from cache) the session's preview mesh
// immediately.
func (a *App) Preview(sessionID string) (MeshData, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return MeshData{}, err
	}

	mesh, err := s.factory.UpdateWithCache(a.opContext(), kernel.Options{})
	if err != nil {
		return MeshData{}, err
	}

	return toMeshData(mesh, 0), nil
}

// SessionState returns the current state of a session.
func (a *App) SessionState(sessionID string) (SessionInfo, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}

	return s.info(), nil
}

// CommitOperation makes the session's shape permanent, moves it into the
// scene, and closes the session.
func (a *App) CommitOperation(sessionID, name string) (ObjectData, error) {
	s, err := a.lookup(sessionID)
	if err != nil {
		return ObjectData{}, err
	}

	result, err := s.factory.Commit(a.opContext(), kernel.Options{})
	if err != nil {
		return ObjectData{}, err
	}

	obj := a.addToScene(s.kind, name, s.factory.Params(), result)

	a.closeSession(s)
	a.emit(eventSceneChanged, nil)

	return obj, nil
}

// CancelOperation abandons a session, discarding its preview.
func (a *App) CancelOperation(sessionID string) error {
	s, err := a.lookup(sessionID)
	if err != nil {
		return err
	}

	s.factory.Cancel()
	a.closeSession(s)

	a.log.Info("operation cancelled", zap.String("session", s.id))

	return nil
}

// closeSession disposes the factory and forgets the session.
func (a *App) closeSession(s *session) {
	a.mu.Lock()
	delete(a.sessions, s.id)
	a.mu.Unlock()

	s.factory.Dispose()
}

// addToScene registers a committed shape, attaching engine analysis when the
// engine exposes it.
func (a *App) addToScene(kind, name string, params map[string]any, result *factory.Result) ObjectData {
	var analysis kernel.Analysis
	if an, ok := a.ops.(analyzer); ok {
		if got, err := an.Analysis(result.ShapeID); err == nil {
			analysis = got
		}
	}

	obj := a.scene.Add(kind, name, result.ShapeID, result.Mesh, params, analysis)

	return a.toObjectData(obj)
}

// RunScript evaluates a script, commits every factory it produced as one
// composite operation, and registers the results in the scene.
func (a *App) RunScript(source string) (ScriptResult, error) {
	factories, evalErrs, err := a.script.Evaluate(source)
	if err != nil {
		return ScriptResult{}, err
	}

	if len(evalErrs) > 0 {
		return ScriptResult{
			Errors: lo.Map(evalErrs, func(e script.EvalError, _ int) EvalErrorData {
				return EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
			}),
		}, nil
	}

	if len(factories) == 0 {
		return ScriptResult{}, nil
	}

	// The factories commit as one composite: sequential, fail-fast. The
	// multi-factory takes ownership and disposes them.
	multi := factory.NewMulti("script", factory.WithMultiLogger(a.log))
	defer multi.Dispose()

	for _, f := range factories {
		multi.AddFactory(f)
	}

	result, err := multi.Commit(a.opContext(), kernel.Options{})
	if err != nil {
		// Fail-fast leaves shapes committed before the failure permanent;
		// register them so they are not orphaned in the engine.
		if result != nil {
			for i, res := range result.Results {
				if res.Success {
					a.addToScene(factories[i].Name(), "", factories[i].Params(), res)
				}
			}
			a.emit(eventSceneChanged, nil)
		}

		return ScriptResult{}, fmt.Errorf("script commit: %w", err)
	}

	objects := make([]ObjectData, 0, len(result.Results))
	for i, res := range result.Results {
		objects = append(objects, a.addToScene(factories[i].Name(), "", factories[i].Params(), res))
	}

	a.emit(eventSceneChanged, nil)
	a.log.Info("script committed", zap.Int("objects", len(objects)))

	return ScriptResult{Objects: objects}, nil
}

// ListScene returns every committed object in insertion order.
func (a *App) ListScene() []ObjectData {
	return lo.Map(a.scene.List(), func(obj scene.Object, _ int) ObjectData {
		return a.toObjectData(obj)
	})
}

// RemoveObject deletes a committed object and its engine shape.
func (a *App) RemoveObject(objectID string) error {
	if err := a.scene.Remove(a.opContext(), scene.ObjectID(objectID)); err != nil {
		return err
	}

	a.emit(eventSceneChanged, nil)

	return nil
}

// RenameObject changes a committed object's display name.
func (a *App) RenameObject(objectID, name string) error {
	if err := a.scene.Rename(scene.ObjectID(objectID), name); err != nil {
		return err
	}

	a.emit(eventSceneChanged, nil)

	return nil
}

// ClearScene removes every committed object. The scene empties even when
// some engine-side deletions fail; the joined failure is returned.
func (a *App) ClearScene() error {
	err := a.scene.Clear(a.opContext())
	a.emit(eventSceneChanged, nil)

	return err
}

// toObjectData converts a scene object for the frontend, coloring it by its
// position in the scene.
func (a *App) toObjectData(obj scene.Object) ObjectData {
	idx := lo.IndexOf(lo.Map(a.scene.List(), func(o scene.Object, _ int) scene.ObjectID { return o.ID }), obj.ID)
	if idx < 0 {
		idx = 0
	}

	return ObjectData{
		ID:       string(obj.ID),
		Name:     obj.Name,
		Kind:     obj.Kind,
		Mesh:     toMeshData(obj.Mesh, idx),
		Params:   obj.Params,
		Analysis: obj.Analysis,
	}
}

// toMeshData converts a kernel mesh for the frontend.
func toMeshData(mesh *kernel.Mesh, colorIndex int) MeshData {
	data := MeshData{Color: colorPalette[colorIndex%len(colorPalette)]}

	if mesh != nil {
		data.Vertices = mesh.Vertices
		data.Normals = mesh.Normals
		data.Indices = mesh.Indices
	}

	return data
}

// applyParameter routes a named parameter to the concrete factory's setter.
// Explicit switches instead of reflection: the setters carry the validation.
func applyParameter(f factory.Composable, name string, value float64) (bool, error) {
	switch fac := f.(type) {
	case *factory.BoxFactory:
		switch name {
		case "width":
			return fac.SetWidth(value), nil
		case "height":
			return fac.SetHeight(value), nil
		case "depth":
			return fac.SetDepth(value), nil
		}
	case *factory.CylinderFactory:
		switch name {
		case "radius":
			return fac.SetRadius(value), nil
		case "height":
			return fac.SetHeight(value), nil
		}
	case *factory.SphereFactory:
		if name == "radius" {
			return fac.SetRadius(value), nil
		}
	case *factory.ConeFactory:
		switch name {
		case "baseRadius":
			return fac.SetBaseRadius(value), nil
		case "topRadius":
			return fac.SetTopRadius(value), nil
		case "height":
			return fac.SetHeight(value), nil
		}
	case *factory.TorusFactory:
		switch name {
		case "majorRadius":
			return fac.SetMajorRadius(value), nil
		case "minorRadius":
			return fac.SetMinorRadius(value), nil
		}
	}

	return false, fmt.Errorf("unknown parameter %q for %s", name, f.Name())
}

// applyPosition routes a placement to the concrete factory's setter.
func applyPosition(f factory.Composable, pos kernel.Position) (bool, error) {
	switch fac := f.(type) {
	case *factory.BoxFactory:
		return fac.SetPosition(pos), nil
	case *factory.CylinderFactory:
		return fac.SetPosition(pos), nil
	case *factory.SphereFactory:
		return fac.SetPosition(pos), nil
	case *factory.ConeFactory:
		return fac.SetPosition(pos), nil
	case *factory.TorusFactory:
		return fac.SetPosition(pos), nil
	}

	return false, fmt.Errorf("%s does not support placement", f.Name())
}
