package factory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cadhy/cadhy/pkg/future"
	"github.com/cadhy/cadhy/pkg/kernel"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Composable is the capability surface a multi-factory depends on. Every
// factory in this package satisfies it.
type Composable interface {
	Name() string
	State() State
	IsValid() bool
	UpdateWithCache(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error)
	Params() Params
	Commit(ctx context.Context, opts kernel.Options) (*Result, error)
	Cancel()
	Dispose()
}

// Result is the authoritative record of a commit.
type Result struct {
	ShapeID kernel.ShapeID `json:"shapeId"`
	Mesh    *kernel.Mesh   `json:"mesh"`
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
}

// generator is the hook surface a concrete factory supplies to the base
// state machine. Hooks run serialized (never two at once for one factory).
//
// regenerate must dispose the factory's previous preview handle before
// requesting a new one, so at most one live preview handle exists at any
// time.
type generator interface {
	// regenerate produces a fresh preview mesh from current parameters.
	regenerate(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error)

	// create produces the committed result, promoting the live preview
	// handle when one exists instead of issuing a second creation call.
	create(ctx context.Context, opts kernel.Options) (*Result, error)

	// cleanup releases any outstanding preview handle, best effort.
	cleanup(ctx context.Context)

	// params snapshots current parameters.
	params() Params

	// valid reports whether every domain constraint holds.
	valid() bool
}

// Option configures a factory at construction time.
type Option func(*Base)

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(log *zap.Logger) Option {
	return func(b *Base) {
		if log != nil {
			b.log = log
		}
	}
}

// WithName overrides the factory's display name.
func WithName(name string) Option {
	return func(b *Base) {
		if name != "" {
			b.name = name
		}
	}
}

// Base is the single-operation state machine shared by all concrete
// factories. It owns lifecycle state, the preview cache, and in-flight
// update supersession; geometry itself is delegated to the generator hooks.
type Base struct {
	name string
	ops  kernel.Operations
	log  *zap.Logger
	gen  generator

	// generation implements last-write-wins for previews: each update and
	// each cancel bumps it, and a preview result is delivered only if its
	// generation is still current.
	generation *atomic.Uint64

	// hookMu serializes generator hook execution. A superseded update's
	// goroutine may still be running its engine call; the next regeneration
	// waits for it so preview-handle ownership stays single-threaded.
	hookMu sync.Mutex

	mu           sync.Mutex
	state        State
	dirty        bool
	disposed     bool
	cachedMesh   *kernel.Mesh
	cachedParams Params
	inflight     *future.Future[*kernel.Mesh]
	resultID     kernel.ShapeID
	events       Events
}

// newBase wires a base state machine for the given generator. The operation
// contract is injected explicitly; there is no process-wide engine instance.
func newBase(name string, ops kernel.Operations, gen generator, opts ...Option) *Base {
	b := &Base{
		name:       name,
		ops:        ops,
		log:        zap.NewNop(),
		gen:        gen,
		generation: atomic.NewUint64(0),
		state:      StateIdle,
		dirty:      true,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.log = b.log.With(zap.String("factory", b.name))

	return b
}

// Name returns the factory's display name.
func (b *Base) Name() string { return b.name }

// State returns the current lifecycle state.
func (b *Base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// IsValid reports whether every domain constraint on current parameters
// holds. It is cheap and side-effect-free.
func (b *Base) IsValid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.gen.valid()
}

// CanUpdate reports whether a preview update may be issued right now.
func (b *Base) CanUpdate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state == StateIdle && !b.disposed && b.gen.valid()
}

// CanCommit reports whether a commit may be issued right now.
func (b *Base) CanCommit() bool {
	return b.CanUpdate()
}

// Params snapshots the current parameters.
func (b *Base) Params() Params {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.gen.params()
}

// ResultShapeID returns the committed shape id, or "" before commit.
func (b *Base) ResultShapeID() kernel.ShapeID {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.resultID
}

// SetEvents installs the observer callbacks. Intended to be called once,
// before the factory is driven.
func (b *Base) SetEvents(events Events) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = events
}

// noteChange marks the factory dirty and raises the parameter-change
// notification. Concrete setters route every accepted mutation through it.
func (b *Base) noteChange(name string, value any) {
	b.mu.Lock()
	b.dirty = true
	handler := b.events.OnParameterChange
	b.mu.Unlock()

	if handler != nil {
		handler(name, value)
	}
}

// Update regenerates the preview mesh from current parameters.
//
// Issuing a new update supersedes any in-flight one: the stale update's
// result is discarded at delivery, so a slow preview can never overwrite a
// newer one arriving out of order. The engine call itself is not aborted.
//
// On success the mesh is cached against a parameter snapshot and the factory
// returns to idle. On failure the factory also returns to idle — a failed
// preview is recoverable by adjusting parameters — and the error is both
// reported through OnError and returned.
func (b *Base) Update(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	started := time.Now()

	b.mu.Lock()

	if b.disposed || b.state.terminal() || b.state == StateCommitting {
		state := b.state
		b.mu.Unlock()

		return nil, fmt.Errorf("%w: cannot update %s factory in state %s", ErrInvalidState, b.name, state)
	}

	if !b.gen.valid() {
		b.mu.Unlock()

		return nil, fmt.Errorf("%w: %s factory parameters failed validation", ErrInvalidParameters, b.name)
	}

	// Supersede any in-flight preview.
	if b.inflight != nil {
		b.inflight.Cancel()
	}

	gen := b.generation.Inc()
	b.state = StateUpdating
	snapshot := b.gen.params()

	fut, promise := future.New[*kernel.Mesh]()
	b.inflight = fut
	b.mu.Unlock()

	go func() {
		b.hookMu.Lock()
		defer b.hookMu.Unlock()

		// Superseded while queued behind an older hook: skip the engine
		// call entirely.
		if gen != b.generation.Load() {
			promise.Failure(future.ErrCancelled)
			return
		}

		promise.Complete(b.gen.regenerate(ctx, opts))
	}()

	mesh, err := fut.Wait(ctx)

	b.mu.Lock()

	stale := gen != b.generation.Load()

	if errors.Is(err, future.ErrCancelled) || (stale && err == nil) {
		// A newer update or a cancel owns the state machine now; this
		// result is simply discarded.
		b.mu.Unlock()

		return nil, fmt.Errorf("%w: preview superseded by a newer update", future.ErrCancelled)
	}

	if err != nil {
		b.state = StateIdle
		handler := b.events.OnError
		b.mu.Unlock()

		b.log.Debug("preview generation failed", zap.Error(err))
		wrapped := fmt.Errorf("preview generation failed: %w", err)

		if handler != nil {
			handler(wrapped)
		}

		return nil, wrapped
	}

	b.cachedMesh = mesh
	b.cachedParams = snapshot
	b.dirty = false
	b.state = StateIdle
	handler := b.events.OnPreviewUpdate
	b.mu.Unlock()

	previewRegenerations.WithLabelValues(b.name).Inc()
	updateDuration.WithLabelValues(b.name).Observe(time.Since(started).Seconds())
	b.log.Debug("preview updated",
		zap.Int("vertices", mesh.VertexCount()),
		zap.Duration("took", time.Since(started)))

	if handler != nil {
		handler(mesh)
	}

	return mesh, nil
}

// UpdateWithCache behaves like Update but returns the cached mesh without
// touching the engine when parameters are unchanged since the last
// successful preview. Interactive edits arrive far faster than the engine
// can regenerate; the cache collapses the redundant work.
func (b *Base) UpdateWithCache(ctx context.Context, opts kernel.Options) (*kernel.Mesh, error) {
	b.mu.Lock()

	// Structural parameter comparison governs the hit; the dirty flag only
	// short-circuits the deep comparison when nothing was touched at all.
	if b.state == StateIdle && !b.disposed && b.cachedMesh != nil &&
		(!b.dirty || ParamsEqual(b.gen.params(), b.cachedParams)) {
		mesh := b.cachedMesh
		b.mu.Unlock()

		previewCacheHits.WithLabelValues(b.name).Inc()

		return mesh, nil
	}

	b.mu.Unlock()

	return b.Update(ctx, opts)
}

// Commit makes the operation's result permanent. When a live preview handle
// exists it is promoted directly; otherwise the shape is created fresh. On
// success the factory reaches its terminal committed state and releases
// ownership of the shape to the caller.
func (b *Base) Commit(ctx context.Context, opts kernel.Options) (*Result, error) {
	b.mu.Lock()

	if b.disposed || b.state != StateIdle {
		state := b.state
		b.mu.Unlock()

		commitsTotal.WithLabelValues(b.name, outcomeError).Inc()

		return nil, fmt.Errorf("%w: cannot commit %s factory in state %s", ErrInvalidState, b.name, state)
	}

	if !b.gen.valid() {
		b.mu.Unlock()

		commitsTotal.WithLabelValues(b.name, outcomeError).Inc()

		return nil, fmt.Errorf("%w: %s factory parameters failed validation", ErrInvalidParameters, b.name)
	}

	b.state = StateCommitting
	b.mu.Unlock()

	b.hookMu.Lock()
	result, err := b.gen.create(ctx, opts)
	b.hookMu.Unlock()

	b.mu.Lock()

	if err != nil {
		b.state = StateIdle
		handler := b.events.OnError
		b.mu.Unlock()

		commitsTotal.WithLabelValues(b.name, outcomeError).Inc()
		b.log.Debug("commit failed", zap.Error(err))

		wrapped := fmt.Errorf("commit failed: %w", err)
		if handler != nil {
			handler(wrapped)
		}

		return nil, wrapped
	}

	b.state = StateCommitted
	b.resultID = result.ShapeID
	handler := b.events.OnCommit
	b.mu.Unlock()

	commitsTotal.WithLabelValues(b.name, outcomeSuccess).Inc()
	b.log.Info("committed", zap.String("shape", string(result.ShapeID)))

	if handler != nil {
		handler(result)
	}

	return result, nil
}

// Cancel abandons the operation from any non-terminal state. It is
// immediate: the in-flight preview's result, if any, is discarded when it
// eventually arrives. Idempotent; a no-op once committed.
func (b *Base) Cancel() {
	b.mu.Lock()

	if b.state.terminal() {
		b.mu.Unlock()
		return
	}

	b.generation.Inc()

	if b.inflight != nil {
		b.inflight.Cancel()
		b.inflight = nil
	}

	b.state = StateCancelled
	b.cachedMesh = nil
	b.cachedParams = nil
	b.dirty = true
	handler := b.events.OnCancel
	b.mu.Unlock()

	cancellationsTotal.WithLabelValues(b.name).Inc()
	b.log.Debug("cancelled")

	if handler != nil {
		handler()
	}
}

// Reset returns a committed or cancelled factory to idle, clearing the
// committed shape id so the parameters can be reused for a new operation.
func (b *Base) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.disposed || !b.state.terminal() {
		return
	}

	b.state = StateIdle
	b.resultID = ""
	b.dirty = true
}

// Dispose releases any outstanding preview handle and renders the factory
// inert. It cancels first, then runs the generator's best-effort cleanup.
// Safe to call multiple times.
func (b *Base) Dispose() {
	b.mu.Lock()

	if b.disposed {
		b.mu.Unlock()
		return
	}

	b.mu.Unlock()

	b.Cancel()

	b.hookMu.Lock()
	b.gen.cleanup(context.Background())
	b.hookMu.Unlock()

	b.mu.Lock()
	b.disposed = true
	b.mu.Unlock()

	b.log.Debug("disposed")
}
