package vm

import (
	"context"

	"github.com/candor-lang/candor/object"
)

// Option is a configuration function for a Machine.
type Option func(*Machine)

// ExternalFunc is a host function callable from compiled programs.
// Unknown call names dispatch here at run time with their arguments
// collected into a slice.
type ExternalFunc func(ctx context.Context, args []object.Value) (object.Value, error)

// Policy answers security checks. Returning false (or an error) fails
// the check; the program then stops with a security error quoting the
// original check text.
type Policy interface {
	// CheckPredicate answers "Check that <subject> is <predicate>."
	CheckPredicate(subject object.Value, predicate string) (bool, error)

	// CheckCapability answers "Check that <subject> can <capability>
	// <object>." The object is Nothing when the check names none.
	CheckCapability(subject object.Value, capability string, obj object.Value) (bool, error)
}

// WithFuel caps execution at n backward jumps. Loops charge fuel only
// when they jump back, so straight-line code is never metered.
func WithFuel(n int64) Option {
	return func(m *Machine) {
		m.fuelLimited = true
		m.fuel = n
	}
}

// WithGlobals seeds global variables before execution.
func WithGlobals(globals map[string]object.Value) Option {
	return func(m *Machine) {
		for name, value := range globals {
			m.globals[name] = value
		}
	}
}

// WithOutput registers a callback invoked for each output line, in
// addition to the machine's output log.
func WithOutput(fn func(line string)) Option {
	return func(m *Machine) {
		m.onOutput = fn
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer Observer) Option {
	return func(m *Machine) {
		m.observer = observer
	}
}

// WithPolicy sets the security policy consulted by check statements.
// Without a policy every check fails.
func WithPolicy(policy Policy) Option {
	return func(m *Machine) {
		m.policy = policy
	}
}

// WithExternal registers a host function under the given name.
func WithExternal(name string, fn ExternalFunc) Option {
	return func(m *Machine) {
		m.externals[name] = fn
	}
}

// WithContextCheckInterval sets how often the machine polls ctx.Done(),
// in instructions. Zero disables polling. The default is
// DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(m *Machine) {
		m.checkInterval = interval
	}
}
