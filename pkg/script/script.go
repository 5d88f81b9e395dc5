// Package script provides the Lisp scripting surface: a sandboxed zygomys
// environment whose builtins construct geometry operation factories bound to
// the injected engine. Evaluating a script yields live factories; the caller
// drives their preview/commit lifecycle and owns their disposal.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/cadhy/cadhy/pkg/factory"
	"github.com/cadhy/cadhy/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError is a non-fatal error from user code: a parse error or a runtime
// error inside the script.
type EvalError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Option configures the script engine at construction time.
type Option func(*Engine)

// WithLogger sets the logger. Nil keeps the no-op default.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine evaluates scripts into factories. It is safe for concurrent use;
// each Evaluate call runs in a fresh sandboxed environment for determinism.
type Engine struct {
	ops kernel.Operations
	log *zap.Logger

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a script engine whose builtins target the given geometry
// engine.
func NewEngine(ops kernel.Operations, opts ...Option) *Engine {
	e := &Engine{
		ops: ops,
		log: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate runs a script and returns the factories its top-level primitive
// calls produced, in source order. The caller owns the returned factories.
//
// Return semantics:
//   - on success: factories + nil errors + nil error
//   - on parse/eval failure: nil + eval errors + nil error
//   - on fatal failure (timeout, panic, supersession): nil + nil + error
//
// A newer Evaluate call supersedes an in-flight one: the stale call's
// factories are disposed and its result discarded when it eventually lands.
func (e *Engine) Evaluate(source string) ([]factory.Composable, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalOutcome{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		factories, evalErrs, err := e.evaluate(source)
		ch <- evalOutcome{factories: factories, errors: evalErrs, err: err}
	}()

	return e.waitWithTimeout(ch, gen)
}

// evaluate runs the script in a fresh sandbox.
func (e *Engine) evaluate(source string) ([]factory.Composable, []EvalError, error) {
	// An empty script is a valid program producing no factories.
	if strings.TrimSpace(source) == "" {
		return nil, nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	collector := &factoryCollector{}
	registerBuiltins(env, e.ops, collector)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		collector.disposeAll()
		return nil, parseZygoError(err), nil
	}

	if _, err := env.Run(); err != nil {
		collector.disposeAll()
		return nil, parseZygoError(err), nil
	}

	e.log.Debug("script evaluated", zap.Int("factories", len(collector.factories)))

	return collector.factories, nil, nil
}

// linePattern matches zygomys messages of the form "Error on line N: ...".
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches plain "line N: ..." messages.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into EvalError values, extracting
// line information when the message carries it.
func parseZygoError(err error) []EvalError {
	msg := err.Error()

	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
