// Package candor compiles and executes programs written in the Candor
// language. Parsing happens upstream; this package takes syntax trees,
// compiles them to register bytecode, and runs them on a virtual
// machine.
//
// Programs that use asynchronous forms (file and network effects,
// tasks, message passing) cannot run on the synchronous machine. Exec
// routes them to a configured AsyncEvaluator instead of failing
// mid-compile.
package candor

import (
	"context"

	"github.com/candor-lang/candor/ast"
	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/compiler"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/vm"
)

// AsyncEvaluator executes programs that need asynchronous effects. The
// returned lines correspond to the machine's output log.
type AsyncEvaluator interface {
	Eval(ctx context.Context, program *ast.Program) ([]string, error)
}

// Option configures a compilation or execution.
type Option func(*options)

type options struct {
	filename  string
	source    string
	globals   map[string]object.Value
	externals map[string]vm.ExternalFunc
	observer  vm.Observer
	policy    vm.Policy
	output    func(string)
	fuel      *int64
	async     AsyncEvaluator
}

func collectOptions(opts ...Option) *options {
	o := &options{
		globals:   map[string]object.Value{},
		externals: map[string]vm.ExternalFunc{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerConfig() compiler.Config {
	return compiler.Config{
		Filename: o.filename,
		Source:   o.source,
	}
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if len(o.globals) > 0 {
		opts = append(opts, vm.WithGlobals(o.globals))
	}
	for name, fn := range o.externals {
		opts = append(opts, vm.WithExternal(name, fn))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.policy != nil {
		opts = append(opts, vm.WithPolicy(o.policy))
	}
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.fuel != nil {
		opts = append(opts, vm.WithFuel(*o.fuel))
	}
	return opts
}

// WithFilename sets the filename used in error messages.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithSource provides the original source text, enabling error messages
// to quote the offending line.
func WithSource(source string) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithGlobals seeds global variables before execution. This option is
// additive; on duplicate names the last value wins.
func WithGlobals(globals map[string]object.Value) Option {
	return func(o *options) {
		for name, value := range globals {
			o.globals[name] = value
		}
	}
}

// WithExternal registers a host function callable from programs.
func WithExternal(name string, fn vm.ExternalFunc) Option {
	return func(o *options) {
		o.externals[name] = fn
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithPolicy sets the security policy consulted by check statements.
func WithPolicy(policy vm.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithOutput registers a callback invoked for each output line as it is
// produced.
func WithOutput(fn func(line string)) Option {
	return func(o *options) {
		o.output = fn
	}
}

// WithFuel caps execution at n backward jumps.
func WithFuel(n int64) Option {
	return func(o *options) {
		o.fuel = &n
	}
}

// WithAsyncEvaluator routes programs that use asynchronous forms to the
// given evaluator instead of rejecting them.
func WithAsyncEvaluator(evaluator AsyncEvaluator) Option {
	return func(o *options) {
		o.async = evaluator
	}
}

// Compile translates a syntax tree into an executable program. The
// result is immutable and may be executed by many machines.
func Compile(program *ast.Program, opts ...Option) (*bytecode.Program, error) {
	o := collectOptions(opts...)
	return compiler.Compile(program, o.compilerConfig())
}

// Run executes a compiled program and returns its output lines. Each
// call creates fresh runtime state, so the same program can run
// concurrently.
func Run(ctx context.Context, prog *bytecode.Program, opts ...Option) ([]string, error) {
	o := collectOptions(opts...)
	m, err := vm.New(prog, o.vmOpts()...)
	if err != nil {
		return nil, err
	}
	if err := m.Run(ctx); err != nil {
		return m.Output(), err
	}
	return m.Output(), nil
}

// Exec compiles and runs a syntax tree. Programs that need asynchronous
// effects are delegated to the configured AsyncEvaluator; without one
// they are rejected.
func Exec(ctx context.Context, program *ast.Program, opts ...Option) ([]string, error) {
	o := collectOptions(opts...)
	if compiler.RequiresAsync(program) {
		if o.async == nil {
			return nil, errz.Newf(errz.ErrCompile, "program requires the asynchronous evaluator")
		}
		return o.async.Eval(ctx, program)
	}
	prog, err := compiler.Compile(program, o.compilerConfig())
	if err != nil {
		return nil, err
	}
	return Run(ctx, prog, opts...)
}
