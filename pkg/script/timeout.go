package script

import (
	"fmt"
	"time"

	"github.com/cadhy/cadhy/pkg/factory"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalOutcome passes evaluation results through the completion channel.
type evalOutcome struct {
	factories []factory.Composable
	errors    []EvalError
	err       error
}

// waitWithTimeout waits for an evaluation result, bounded by EvalTimeout.
// The generation counter discards stale results: on timeout or supersession
// the evaluation goroutine may still be running, and when it eventually
// completes its factories are disposed rather than delivered.
func (e *Engine) waitWithTimeout(ch <-chan evalOutcome, gen uint64) ([]factory.Composable, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			for _, f := range res.factories {
				f.Dispose()
			}

			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}

		return res.factories, res.errors, res.err

	case <-timer.C:
		// Drain the eventual result so the stale factories are released.
		go func() {
			res := <-ch
			for _, f := range res.factories {
				f.Dispose()
			}
		}()

		return nil, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}
