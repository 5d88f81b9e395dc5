package factory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/cadhy/cadhy/pkg/future"
	"github.com/cadhy/cadhy/pkg/kernel"
	"go.uber.org/zap"
)

// defaultPreviewParallelism bounds concurrent sub-factory previews. The
// engine tolerates concurrent reads; commits stay sequential regardless.
const defaultPreviewParallelism = 4

// IndexedMesh pairs a sub-factory's preview mesh with its source index, so
// the UI can map combined previews back to the operations that produced
// them.
type IndexedMesh struct {
	Index int          `json:"index"`
	Name  string       `json:"name"`
	Mesh  *kernel.Mesh `json:"mesh"`
}

// MultiResult is the outcome of a composite commit. On partial failure it
// carries the results completed before the failure plus the failing entry.
type MultiResult struct {
	Results []*Result `json:"results"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// MultiOption configures a multi-factory at construction time.
type MultiOption func(*Multi)

// WithMultiLogger sets the logger. Nil keeps the no-op default.
func WithMultiLogger(log *zap.Logger) MultiOption {
	return func(m *Multi) {
		if log != nil {
			m.log = log
		}
	}
}

// WithPreviewParallelism bounds how many sub-factory previews run at once.
func WithPreviewParallelism(n int) MultiOption {
	return func(m *Multi) {
		if n > 0 {
			m.parallelism = n
		}
	}
}

// Multi treats a set of independently valid sub-factories as one logical
// operation: previews fan out in parallel, commits run sequentially with
// fail-fast semantics, and cancel/dispose fan out to every member.
//
// Commits are sequential because committed shapes may have model-level
// ordering dependencies, and because engine mutation under concurrent
// commits is not assumed safe.
type Multi struct {
	name        string
	log         *zap.Logger
	parallelism int
	pool        pond.Pool

	mu        sync.Mutex
	state     State
	disposed  bool
	factories []Composable
	events    MultiEvents
}

// NewMulti creates an empty multi-factory. Sub-factories are attached with
// AddFactory; an empty multi-factory is invalid.
func NewMulti(name string, opts ...MultiOption) *Multi {
	m := &Multi{
		name:        name,
		log:         zap.NewNop(),
		parallelism: defaultPreviewParallelism,
		state:       StateIdle,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.log = m.log.With(zap.String("factory", m.name))
	m.pool = pond.NewPool(m.parallelism)

	return m
}

// Name returns the composite operation's display name.
func (m *Multi) Name() string { return m.name }

// State returns the composite lifecycle state.
func (m *Multi) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// SetEvents installs the observer callbacks.
func (m *Multi) SetEvents(events MultiEvents) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = events
}

// AddFactory attaches a sub-factory. Order is preserved and determines
// commit order.
func (m *Multi) AddFactory(f Composable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.factories = append(m.factories, f)
}

// RemoveFactory detaches a sub-factory and disposes it. Returns true if the
// factory was present.
func (m *Multi) RemoveFactory(f Composable) bool {
	m.mu.Lock()

	idx := slices.IndexFunc(m.factories, func(c Composable) bool { return c == f })
	if idx < 0 {
		m.mu.Unlock()
		return false
	}

	m.factories = slices.Delete(m.factories, idx, idx+1)
	m.mu.Unlock()

	f.Dispose()

	return true
}

// ClearFactories detaches and disposes every sub-factory.
func (m *Multi) ClearFactories() {
	m.mu.Lock()
	detached := m.factories
	m.factories = nil
	m.mu.Unlock()

	for _, f := range detached {
		f.Dispose()
	}
}

// Factories returns the attached sub-factories in order.
func (m *Multi) Factories() []Composable {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.factories)
}

// IsValid reports whether the composite may update or commit: it must be
// non-empty and every sub-factory must be valid.
func (m *Multi) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.validLocked()
}

func (m *Multi) validLocked() bool {
	if len(m.factories) == 0 {
		return false
	}

	for _, f := range m.factories {
		if !f.IsValid() {
			return false
		}
	}

	return true
}

// Params returns each sub-factory's parameter snapshot, order preserved.
func (m *Multi) Params() []Params {
	m.mu.Lock()
	defer m.mu.Unlock()

	params := make([]Params, 0, len(m.factories))
	for _, f := range m.factories {
		params = append(params, f.Params())
	}

	return params
}

// Update regenerates every sub-factory's preview concurrently and returns
// the meshes paired with their source indices. Sub-previews are independent,
// so there is no ordering dependency to respect; each sub-factory still
// benefits from its own parameter cache.
func (m *Multi) Update(ctx context.Context, opts kernel.Options) ([]IndexedMesh, error) {
	m.mu.Lock()

	if m.disposed || m.state.terminal() || m.state == StateCommitting {
		state := m.state
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: cannot update %s multi-factory in state %s", ErrInvalidState, m.name, state)
	}

	if !m.validLocked() {
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: %s multi-factory is empty or has invalid sub-factories", ErrInvalidState, m.name)
	}

	factories := slices.Clone(m.factories)
	m.state = StateUpdating
	m.mu.Unlock()

	futs := make([]*future.Future[*kernel.Mesh], len(factories))

	for i, f := range factories {
		fut, promise := future.New[*kernel.Mesh]()
		futs[i] = fut

		sub := f
		m.pool.Submit(func() {
			promise.Complete(sub.UpdateWithCache(ctx, opts))
		})
	}

	combined := make([]IndexedMesh, len(factories))

	var firstErr error

	for i, fut := range futs {
		mesh, err := fut.Wait(ctx)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("sub-factory %s: %w", factories[i].Name(), err)
		}

		combined[i] = IndexedMesh{Index: i, Name: factories[i].Name(), Mesh: mesh}
	}

	m.mu.Lock()

	if m.state == StateUpdating {
		m.state = StateIdle
	}

	onError := m.events.OnError
	onPreview := m.events.OnPreviewUpdate
	m.mu.Unlock()

	if firstErr != nil {
		m.log.Debug("combined preview failed", zap.Error(firstErr))

		if onError != nil {
			onError(firstErr)
		}

		return nil, firstErr
	}

	if onPreview != nil {
		onPreview(combined)
	}

	return combined, nil
}

// Commit commits every sub-factory sequentially, in attachment order,
// stopping at the first failure. On failure the returned MultiResult holds
// the results completed so far plus the failing entry; sub-factories after
// the failure point are never attempted.
func (m *Multi) Commit(ctx context.Context, opts kernel.Options) (*MultiResult, error) {
	m.mu.Lock()

	if m.disposed || m.state != StateIdle {
		state := m.state
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: cannot commit %s multi-factory in state %s", ErrInvalidState, m.name, state)
	}

	if !m.validLocked() {
		m.mu.Unlock()

		return nil, fmt.Errorf("%w: %s multi-factory is empty or has invalid sub-factories", ErrInvalidState, m.name)
	}

	factories := slices.Clone(m.factories)
	m.state = StateCommitting
	m.mu.Unlock()

	results := make([]*Result, 0, len(factories))

	for _, f := range factories {
		res, err := f.Commit(ctx, opts)
		if err != nil {
			results = append(results, &Result{Success: false, Error: err.Error()})

			m.mu.Lock()
			m.state = StateIdle
			onError := m.events.OnError
			m.mu.Unlock()

			failure := fmt.Errorf("%w: sub-factory %s: %v", ErrPartialCommit, f.Name(), err)
			m.log.Warn("composite commit failed partway",
				zap.String("sub", f.Name()),
				zap.Int("completed", len(results)-1),
				zap.Error(err))

			if onError != nil {
				onError(failure)
			}

			return &MultiResult{Results: results, Success: false, Error: err.Error()}, failure
		}

		results = append(results, res)
	}

	m.mu.Lock()
	m.state = StateCommitted
	onCommit := m.events.OnCommit
	m.mu.Unlock()

	outcome := &MultiResult{Results: results, Success: true}

	m.log.Info("composite committed", zap.Int("shapes", len(results)))

	if onCommit != nil {
		onCommit(outcome)
	}

	return outcome, nil
}

// Cancel cancels every sub-factory and marks the composite cancelled.
// Always succeeds; idempotent.
func (m *Multi) Cancel() {
	m.mu.Lock()

	if m.state.terminal() {
		m.mu.Unlock()
		return
	}

	factories := slices.Clone(m.factories)
	m.state = StateCancelled
	onCancel := m.events.OnCancel
	m.mu.Unlock()

	for _, f := range factories {
		f.Cancel()
	}

	cancellationsTotal.WithLabelValues(m.name).Inc()

	if onCancel != nil {
		onCancel()
	}
}

// Reset returns a committed or cancelled composite to idle. Sub-factories
// in a terminal state are reset as well where they support it.
func (m *Multi) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed || !m.state.terminal() {
		return
	}

	m.state = StateIdle
}

// Dispose cancels and disposes every sub-factory, then releases the
// composite's worker pool. Safe to call multiple times.
func (m *Multi) Dispose() {
	m.mu.Lock()

	if m.disposed {
		m.mu.Unlock()
		return
	}

	m.disposed = true
	factories := m.factories
	m.factories = nil
	m.mu.Unlock()

	for _, f := range factories {
		f.Dispose()
	}

	m.pool.StopAndWait()
	m.log.Debug("disposed")
}
