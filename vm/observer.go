package vm

import (
	"github.com/rs/zerolog"

	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/op"
)

// Observer receives execution events. Methods are called synchronously
// from the dispatch loop, so implementations should be fast. Returning
// false from any method halts execution immediately.
//
// Embed NoOpObserver to implement only the methods you need.
type Observer interface {
	// OnStep is called before each instruction executes.
	OnStep(event StepEvent) bool

	// OnCall is called when a function frame is pushed.
	OnCall(event CallEvent) bool

	// OnReturn is called when a function frame is popped.
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes one instruction about to execute.
type StepEvent struct {
	IP         int
	Opcode     op.Code
	OpcodeName string
	Location   bytecode.Location
	FrameDepth int
}

// CallEvent describes a function invocation.
type CallEvent struct {
	FunctionName string
	TailCall     bool
	FrameDepth   int
}

// ReturnEvent describes a function return.
type ReturnEvent struct {
	FunctionName string
	FrameDepth   int
}

// NoOpObserver does nothing. Embed it to get default implementations.
type NoOpObserver struct{}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}

// TraceObserver logs every event at trace level. Attach it with
// WithObserver when debugging compiled programs.
type TraceObserver struct {
	log zerolog.Logger
}

// NewTraceObserver returns an observer that writes to the given logger.
func NewTraceObserver(log zerolog.Logger) *TraceObserver {
	return &TraceObserver{log: log}
}

func (t *TraceObserver) OnStep(event StepEvent) bool {
	t.log.Trace().
		Int("ip", event.IP).
		Str("op", event.OpcodeName).
		Int32("line", event.Location.Line).
		Int("depth", event.FrameDepth).
		Msg("step")
	return true
}

func (t *TraceObserver) OnCall(event CallEvent) bool {
	t.log.Trace().
		Str("function", event.FunctionName).
		Bool("tail", event.TailCall).
		Int("depth", event.FrameDepth).
		Msg("call")
	return true
}

func (t *TraceObserver) OnReturn(event ReturnEvent) bool {
	t.log.Trace().
		Str("function", event.FunctionName).
		Int("depth", event.FrameDepth).
		Msg("return")
	return true
}

var _ Observer = (*TraceObserver)(nil)
