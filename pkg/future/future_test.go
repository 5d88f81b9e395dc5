package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitReturnsValue(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()
	go promise.Success(42)

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWaitReturnsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	fut, promise := New[string]()
	promise.Failure(boom)

	_, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCancelSettlesImmediately(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()
	fut.Cancel()

	assert.True(t, fut.IsCancelled())

	_, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCancelDiscardsLateCompletion(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()
	fut.Cancel()

	// The underlying work completes after cancellation; its result must be
	// discarded rather than delivered.
	promise.Success(99)

	v, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, v)
}

func TestFirstSettlementWins(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()
	promise.Success(1)
	promise.Success(2)
	promise.Failure(errors.New("ignored"))

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	fut, _ := New[int]()
	fut.Cancel()
	fut.Cancel()

	_, err := fut.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestGoDeliversResult(t *testing.T) {
	t.Parallel()

	fut := Go(func() (string, error) {
		return "done", nil
	})

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()

	fut := Go(func() (int, error) {
		panic("kaboom")
	})

	_, err := fut.Wait(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestWaitHonorsContext(t *testing.T) {
	t.Parallel()

	fut, promise := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := fut.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The future is still pending and can settle for other waiters.
	promise.Success(7)

	v, err := fut.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
