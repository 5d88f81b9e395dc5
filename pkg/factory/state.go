// Package factory implements the geometry operation factory framework: the
// lifecycle state machine, preview caching discipline, cancellation
// semantics, and multi-operation composition that move a CAD operation from
// "parameters being edited" to "committed shape in the model".
//
// A factory owns one operation's parameters, produces cheap disposable
// preview meshes while the user edits, and commits exactly one authoritative
// shape when the user confirms. All engine access goes through the injected
// kernel.Operations contract.
package factory

// State enumerates the lifecycle states of a factory.
type State int

const (
	StateIdle       State = iota // parameters editable, ready to preview or commit
	StateUpdating                // preview generation in flight
	StateCommitting              // authoritative commit in flight
	StateCommitted               // terminal: result owned by the model
	StateCancelled               // terminal: operation abandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUpdating:
		return "updating"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// terminal reports whether no further geometry-producing call is permitted.
func (s State) terminal() bool {
	return s == StateCommitted || s == StateCancelled
}
