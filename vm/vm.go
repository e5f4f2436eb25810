// Package vm executes compiled register bytecode.
//
// The machine holds one flat register buffer. Each call frame owns a
// window into it, and a callee's window starts at the caller's argument
// block, so calls pass arguments without copying. Execution is a single
// dispatch loop with one switch over the opcode; fuel, when enabled, is
// charged only on backward jumps.
package vm

import (
	"context"

	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/errz"
	"github.com/candor-lang/candor/object"
	"github.com/candor-lang/candor/op"
)

// DefaultContextCheckInterval is how often the machine polls the
// context for cancellation, in instructions.
const DefaultContextCheckInterval = 1000

// Machine executes one program. All state is scoped to the instance,
// so independent machines never interfere.
type Machine struct {
	prog   *bytecode.Program
	consts []object.Value
	fnIdx  map[string]int

	regs    []object.Value
	frames  []frame
	globals map[string]object.Value
	zones   []string

	fuelLimited bool
	fuel        int64

	output    []string
	onOutput  func(string)
	observer  Observer
	policy    Policy
	externals map[string]ExternalFunc

	checkInterval int
	halted        bool
}

// New prepares a machine for the given program. Constants are decoded
// once here so the dispatch loop only ever touches values.
func New(prog *bytecode.Program, opts ...Option) (*Machine, error) {
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	consts := make([]object.Value, len(prog.Constants))
	for i, c := range prog.Constants {
		v, err := c.Value()
		if err != nil {
			return nil, errz.Newf(errz.ErrRuntime, "bad constant %d: %s", i, err)
		}
		consts[i] = v
	}
	fnIdx := make(map[string]int, len(prog.Functions))
	for i, fn := range prog.Functions {
		fnIdx[fn.Name] = i
	}
	m := &Machine{
		prog:          prog,
		consts:        consts,
		fnIdx:         fnIdx,
		regs:          make([]object.Value, prog.Registers),
		globals:       map[string]object.Value{},
		externals:     map[string]ExternalFunc{},
		checkInterval: DefaultContextCheckInterval,
	}
	m.frames = append(m.frames, frame{base: 0, returnDst: -1, fn: -1})
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Output returns the lines produced by show statements so far.
func (m *Machine) Output() []string {
	out := make([]string, len(m.output))
	copy(out, m.output)
	return out
}

// Global returns a global variable's current value.
func (m *Machine) Global(name string) (object.Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// FrameDepth returns the current call stack depth.
func (m *Machine) FrameDepth() int {
	return len(m.frames)
}

func (m *Machine) emitOutput(line string) {
	m.output = append(m.output, line)
	if m.onOutput != nil {
		m.onOutput(line)
	}
}

// ensure grows the register buffer to at least size registers.
func (m *Machine) ensure(size int) {
	for len(m.regs) < size {
		m.regs = append(m.regs, object.Value{})
	}
}

func (m *Machine) frameExtent(f frame) int {
	if f.fn < 0 {
		return f.base + m.prog.Registers
	}
	return f.base + m.prog.Functions[f.fn].Registers
}

// truncateRegs shrinks the register buffer to the widest live window
// after a frame pops. A deeper window can extend past its callee's, so
// the extent is taken over the whole stack. The dropped region is
// cleared so aggregate handles do not outlive their frame.
func (m *Machine) truncateRegs() {
	extent := 0
	for _, f := range m.frames {
		if e := m.frameExtent(f); e > extent {
			extent = e
		}
	}
	if extent >= len(m.regs) {
		return
	}
	for i := extent; i < len(m.regs); i++ {
		m.regs[i] = object.Value{}
	}
	m.regs = m.regs[:extent]
}

// Run executes the program from its entry point. A machine can run only
// once; create a new one per execution.
func (m *Machine) Run(ctx context.Context) error {
	if m.halted {
		return errz.Newf(errz.ErrRuntime, "machine already ran")
	}
	m.halted = true

	ins := m.prog.Instructions
	names := m.prog.Names
	ip := m.prog.Entry
	steps := 0

	for ip < len(ins) {
		steps++
		if m.checkInterval > 0 && steps%m.checkInterval == 0 {
			select {
			case <-ctx.Done():
				return m.failf(ip, errz.ErrRuntime, "execution cancelled: %s", ctx.Err())
			default:
			}
		}

		instr := ins[ip]
		if m.observer != nil {
			ok := m.observer.OnStep(StepEvent{
				IP:         ip,
				Opcode:     instr.Op,
				OpcodeName: op.GetInfo(instr.Op).Name,
				Location:   m.prog.LocationAt(ip),
				FrameDepth: len(m.frames),
			})
			if !ok {
				return m.failf(ip, errz.ErrRuntime, "execution halted by observer")
			}
		}

		cur := ip
		ip++
		f := &m.frames[len(m.frames)-1]
		base := f.base

		switch instr.Op {

		case op.Nop:

		case op.Halt:
			return nil

		case op.Call, op.GiveCall:
			fn := &m.prog.Functions[instr.B]
			calleeBase := base + int(instr.C)
			if len(m.frames) >= MaxCallDepth {
				return m.failf(cur, errz.ErrRuntime, "call depth exceeds %d frames", MaxCallDepth)
			}
			m.ensure(calleeBase + fn.Registers)
			m.frames = append(m.frames, frame{
				base:       calleeBase,
				returnAddr: ip,
				returnDst:  base + int(instr.A),
				fn:         int(instr.B),
			})
			if m.observer != nil && !m.observer.OnCall(CallEvent{FunctionName: fn.Name, FrameDepth: len(m.frames)}) {
				return m.failf(cur, errz.ErrRuntime, "execution halted by observer")
			}
			ip = fn.Entry

		case op.TailCall:
			fn := &m.prog.Functions[instr.B]
			argStart := base + int(instr.C)
			copy(m.regs[base:base+fn.Params], m.regs[argStart:argStart+fn.Params])
			m.ensure(base + fn.Registers)
			f.fn = int(instr.B)
			// The replaced activation never resumes, so its iterator
			// snapshots can be released.
			for i := range f.iters {
				f.iters[i].stop()
			}
			if m.observer != nil && !m.observer.OnCall(CallEvent{FunctionName: fn.Name, TailCall: true, FrameDepth: len(m.frames)}) {
				return m.failf(cur, errz.ErrRuntime, "execution halted by observer")
			}
			ip = fn.Entry

		case op.Return, op.ReturnNone:
			if len(m.frames) == 1 {
				return m.failf(cur, errz.ErrRuntime, "return outside of a function")
			}
			result := object.Nothing()
			if instr.Op == op.Return {
				result = m.regs[base+int(instr.A)]
			}
			popped := m.frames[len(m.frames)-1]
			m.frames = m.frames[:len(m.frames)-1]
			m.truncateRegs()
			if popped.returnDst >= 0 {
				m.regs[popped.returnDst] = result
			}
			if m.observer != nil {
				name := ""
				if popped.fn >= 0 {
					name = m.prog.Functions[popped.fn].Name
				}
				if !m.observer.OnReturn(ReturnEvent{FunctionName: name, FrameDepth: len(m.frames)}) {
					return m.failf(cur, errz.ErrRuntime, "execution halted by observer")
				}
			}
			ip = popped.returnAddr

		case op.CallBuiltin:
			info := bytecode.Builtins[instr.B]
			argStart := base + int(instr.C)
			result, err := m.callBuiltin(int(instr.B), m.regs[argStart:argStart+info.Arity])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = result

		case op.CallNamed:
			name := names[instr.B]
			idx, ok := m.fnIdx[name]
			if !ok {
				return m.failf(cur, errz.ErrName, "unknown function %q", name)
			}
			fn := &m.prog.Functions[idx]
			calleeBase := base + int(instr.C)
			if len(m.frames) >= MaxCallDepth {
				return m.failf(cur, errz.ErrRuntime, "call depth exceeds %d frames", MaxCallDepth)
			}
			m.ensure(calleeBase + fn.Registers)
			m.frames = append(m.frames, frame{
				base:       calleeBase,
				returnAddr: ip,
				returnDst:  base + int(instr.A),
				fn:         idx,
			})
			ip = fn.Entry

		case op.CallExternal:
			name := names[instr.B]
			ext, ok := m.externals[name]
			if !ok {
				return m.failf(cur, errz.ErrName, "unknown function %q", name)
			}
			list := m.regs[base+int(instr.C)].List()
			if list == nil {
				return m.failf(cur, errz.ErrRuntime, "external call arguments must be a list")
			}
			result, err := ext(ctx, list.Items())
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = result

		case op.Jump:
			ip = int(instr.A)

		case op.JumpIfFalse:
			if !m.regs[base+int(instr.A)].Truthy() {
				ip = int(instr.B)
			}

		case op.JumpIfTrue:
			if m.regs[base+int(instr.A)].Truthy() {
				ip = int(instr.B)
			}

		case op.JumpBack:
			if m.fuelLimited {
				if m.fuel <= 0 {
					return m.failf(cur, errz.ErrFuel, "fuel exhausted")
				}
				m.fuel--
			}
			ip = int(instr.A)

		case op.MatchJump:
			variant := m.regs[base+int(instr.A)].Variant()
			if variant == nil {
				return m.failf(cur, errz.ErrType, "inspect needs a variant, got %s", m.regs[base+int(instr.A)].Kind())
			}
			table := m.prog.JumpTables[instr.B]
			ip = table.Default
			for _, entry := range table.Entries {
				if entry.Ctor == variant.Ctor() {
					ip = entry.Target
					break
				}
			}

		case op.LoadConst:
			m.regs[base+int(instr.A)] = m.consts[instr.B]

		case op.LoadNone:
			m.regs[base+int(instr.A)] = object.Nothing()

		case op.LoadTrue:
			m.regs[base+int(instr.A)] = object.Bool(true)

		case op.LoadFalse:
			m.regs[base+int(instr.A)] = object.Bool(false)

		case op.Move:
			m.regs[base+int(instr.A)] = m.regs[base+int(instr.B)]

		case op.LoadGlobal:
			name := names[instr.B]
			v, ok := m.globals[name]
			if !ok {
				return m.failf(cur, errz.ErrName, "undefined variable %q", name)
			}
			m.regs[base+int(instr.A)] = v

		case op.StoreGlobal:
			m.globals[names[instr.A]] = m.regs[base+int(instr.B)]

		case op.Add:
			v, err := object.Add(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Sub:
			v, err := object.Sub(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Mul:
			v, err := object.Mul(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Div:
			v, err := object.Div(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Mod:
			v, err := object.Mod(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.AddInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				m.regs[base+int(instr.A)] = object.Int(a + b)
				break
			}
			v, err := object.Add(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.SubInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				m.regs[base+int(instr.A)] = object.Int(a - b)
				break
			}
			v, err := object.Sub(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.MulInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				m.regs[base+int(instr.A)] = object.Int(a * b)
				break
			}
			v, err := object.Mul(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Negate:
			v, err := object.Negate(m.regs[base+int(instr.B)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Equal:
			m.regs[base+int(instr.A)] = object.Bool(object.Equals(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]))

		case op.NotEqual:
			m.regs[base+int(instr.A)] = object.Bool(!object.Equals(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]))

		case op.Less, op.LessEq, op.Greater, op.GreaterEq:
			a, b := m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]
			cmp, ok := object.Compare(a, b)
			if !ok {
				return m.failf(cur, errz.ErrType, "cannot order %s and %s", a.Kind(), b.Kind())
			}
			m.regs[base+int(instr.A)] = object.Bool(orderHolds(instr.Op, cmp))

		case op.EqualInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				m.regs[base+int(instr.A)] = object.Bool(a == b)
				break
			}
			m.regs[base+int(instr.A)] = object.Bool(object.Equals(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]))

		case op.NotEqualInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				m.regs[base+int(instr.A)] = object.Bool(a != b)
				break
			}
			m.regs[base+int(instr.A)] = object.Bool(!object.Equals(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]))

		case op.LessInt, op.LessEqInt, op.GreaterInt, op.GreaterEqInt:
			a, okA := m.regs[base+int(instr.B)].AsInt()
			b, okB := m.regs[base+int(instr.C)].AsInt()
			if okA && okB {
				cmp := 0
				if a < b {
					cmp = -1
				} else if a > b {
					cmp = 1
				}
				m.regs[base+int(instr.A)] = object.Bool(orderHolds(genericCompare(instr.Op), cmp))
				break
			}
			va, vb := m.regs[base+int(instr.B)], m.regs[base+int(instr.C)]
			cmp, ok := object.Compare(va, vb)
			if !ok {
				return m.failf(cur, errz.ErrType, "cannot order %s and %s", va.Kind(), vb.Kind())
			}
			m.regs[base+int(instr.A)] = object.Bool(orderHolds(genericCompare(instr.Op), cmp))

		case op.Not:
			m.regs[base+int(instr.A)] = object.Bool(!m.regs[base+int(instr.B)].Truthy())

		case op.MakeList:
			m.regs[base+int(instr.A)] = object.NewList(m.copyRegs(base+int(instr.B), int(instr.C)))

		case op.MakeTuple:
			m.regs[base+int(instr.A)] = object.NewTuple(m.copyRegs(base+int(instr.B), int(instr.C)))

		case op.MakeSet:
			m.regs[base+int(instr.A)] = object.NewSet(m.copyRegs(base+int(instr.B), int(instr.C)))

		case op.MakeMap:
			v := object.NewMap()
			mp := v.Map()
			start := base + int(instr.B)
			for i := 0; i < int(instr.C); i++ {
				key, ok := m.regs[start+2*i].AsText()
				if !ok {
					return m.failf(cur, errz.ErrType, "map keys are text, got %s", m.regs[start+2*i].Kind())
				}
				mp.Set(key, m.regs[start+2*i+1])
			}
			m.regs[base+int(instr.A)] = v

		case op.MakeRange:
			low, okLow := m.regs[base+int(instr.B)].AsInt()
			high, okHigh := m.regs[base+int(instr.C)].AsInt()
			if !okLow || !okHigh {
				return m.failf(cur, errz.ErrType, "range bounds must be integers")
			}
			m.regs[base+int(instr.A)] = object.NewRange(low, high)

		case op.IndexGet:
			v, err := object.Index(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.IndexSet:
			err := object.SetIndex(m.regs[base+int(instr.A)], m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}

		case op.SliceGet:
			v, err := object.Slice(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)], m.regs[base+int(instr.C)+1])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Length:
			v, err := object.Length(m.regs[base+int(instr.B)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.Contains:
			v, err := object.Contains(m.regs[base+int(instr.B)], m.regs[base+int(instr.C)])
			if err != nil {
				return m.fail(cur, err)
			}
			m.regs[base+int(instr.A)] = v

		case op.ListPush:
			list := m.regs[base+int(instr.A)].List()
			if list == nil {
				return m.failf(cur, errz.ErrType, "cannot push onto %s", m.regs[base+int(instr.A)].Kind())
			}
			list.Push(m.regs[base+int(instr.B)])

		case op.ListPop:
			list := m.regs[base+int(instr.B)].List()
			if list == nil {
				return m.failf(cur, errz.ErrType, "cannot pop from %s", m.regs[base+int(instr.B)].Kind())
			}
			v, ok := list.Pop()
			if !ok {
				return m.failf(cur, errz.ErrValue, "cannot pop from an empty list")
			}
			m.regs[base+int(instr.A)] = v

		case op.SetAdd:
			set := m.regs[base+int(instr.A)].Set()
			if set == nil {
				return m.failf(cur, errz.ErrType, "cannot add to %s", m.regs[base+int(instr.A)].Kind())
			}
			set.Add(m.regs[base+int(instr.B)])

		case op.SetRemove:
			target := m.regs[base+int(instr.A)]
			switch target.Kind() {
			case object.SetKind:
				target.Set().Remove(m.regs[base+int(instr.B)])
			case object.MapKind:
				key, ok := m.regs[base+int(instr.B)].AsText()
				if !ok {
					return m.failf(cur, errz.ErrType, "map keys are text, got %s", m.regs[base+int(instr.B)].Kind())
				}
				target.Map().Delete(key)
			default:
				return m.failf(cur, errz.ErrType, "cannot remove from %s", target.Kind())
			}

		case op.Union:
			a, b := m.regs[base+int(instr.B)].Set(), m.regs[base+int(instr.C)].Set()
			if a == nil || b == nil {
				return m.failf(cur, errz.ErrType, "union needs sets")
			}
			m.regs[base+int(instr.A)] = a.Union(b)

		case op.Intersect:
			a, b := m.regs[base+int(instr.B)].Set(), m.regs[base+int(instr.C)].Set()
			if a == nil || b == nil {
				return m.failf(cur, errz.ErrType, "intersect needs sets")
			}
			m.regs[base+int(instr.A)] = a.Intersect(b)

		case op.CloneValue:
			m.regs[base+int(instr.A)] = object.Clone(m.regs[base+int(instr.B)])

		case op.MakeRecord:
			layout := m.prog.Records[instr.B]
			values := m.copyRegs(base+int(instr.C), len(layout.Fields))
			m.regs[base+int(instr.A)] = object.NewRecord(layout.Name, layout.Fields, values)

		case op.MakeDefaults:
			layout := m.prog.Records[instr.B]
			values := make([]object.Value, len(layout.Fields))
			for i, def := range layout.Defaults {
				if def >= 0 {
					values[i] = m.consts[def]
				} else {
					values[i] = object.Nothing()
				}
			}
			m.regs[base+int(instr.A)] = object.NewRecord(layout.Name, layout.Fields, values)

		case op.MakeVariant:
			layout := m.prog.Variants[instr.B]
			args := m.copyRegs(base+int(instr.C), layout.Arity)
			m.regs[base+int(instr.A)] = object.NewVariant(layout.TypeName, layout.Ctor, args, layout.Fields)

		case op.GetField:
			target := m.regs[base+int(instr.B)]
			name := names[instr.C]
			var v object.Value
			var ok bool
			switch target.Kind() {
			case object.RecordKind:
				v, ok = target.Record().Get(name)
			case object.VariantKind:
				v, ok = target.Variant().Field(name)
			default:
				return m.failf(cur, errz.ErrType, "%s has no fields", target.Kind())
			}
			if !ok {
				return m.failf(cur, errz.ErrName, "no field %q", name)
			}
			m.regs[base+int(instr.A)] = v

		case op.SetField:
			record := m.regs[base+int(instr.A)].Record()
			if record == nil {
				return m.failf(cur, errz.ErrType, "%s has no fields", m.regs[base+int(instr.A)].Kind())
			}
			record.Set(names[instr.B], m.regs[base+int(instr.C)])

		case op.PushField:
			record := m.regs[base+int(instr.A)].Record()
			if record == nil {
				return m.failf(cur, errz.ErrType, "%s has no fields", m.regs[base+int(instr.A)].Kind())
			}
			name := names[instr.B]
			field, ok := record.Get(name)
			if !ok {
				return m.failf(cur, errz.ErrName, "no field %q", name)
			}
			list := field.List()
			if list == nil {
				return m.failf(cur, errz.ErrType, "field %q is not a list", name)
			}
			list.Push(m.regs[base+int(instr.C)])

		case op.VariantTest:
			variant := m.regs[base+int(instr.B)].Variant()
			m.regs[base+int(instr.A)] = object.Bool(variant != nil && variant.Ctor() == names[instr.C])

		case op.VariantField:
			variant := m.regs[base+int(instr.B)].Variant()
			if variant == nil {
				return m.failf(cur, errz.ErrType, "%s is not a variant", m.regs[base+int(instr.B)].Kind())
			}
			name := names[instr.C]
			v, ok := variant.Field(name)
			if !ok {
				return m.failf(cur, errz.ErrName, "constructor %q has no field %q", variant.Ctor(), name)
			}
			m.regs[base+int(instr.A)] = v

		case op.VariantArg:
			variant := m.regs[base+int(instr.B)].Variant()
			if variant == nil {
				return m.failf(cur, errz.ErrType, "%s is not a variant", m.regs[base+int(instr.B)].Kind())
			}
			if int(instr.C) >= variant.Arity() {
				return m.failf(cur, errz.ErrValue, "constructor %q has %d values", variant.Ctor(), variant.Arity())
			}
			m.regs[base+int(instr.A)] = variant.Arg(int(instr.C))

		case op.IterStart:
			if err := f.iters[instr.A].start(m.regs[base+int(instr.B)]); err != nil {
				return m.failf(cur, errz.ErrType, "%s", err)
			}

		case op.IterNext:
			_, value, ok := f.iters[instr.B].advance()
			if !ok {
				ip = int(instr.C)
				break
			}
			m.regs[base+int(instr.A)] = value

		case op.IterNextPair:
			key, value, ok := f.iters[instr.B].advance()
			if !ok {
				ip = int(instr.C)
				break
			}
			m.regs[base+int(instr.A)] = key
			m.regs[base+int(instr.A)+1] = value

		case op.IterEnd:
			f.iters[instr.A].stop()

		case op.MakeCounter:
			m.regs[base+int(instr.A)] = object.NewCounter()

		case op.CounterInc, op.CounterDec:
			amount, ok := m.regs[base+int(instr.C)].AsInt()
			if !ok {
				return m.failf(cur, errz.ErrType, "adjustment must be an integer, got %s", m.regs[base+int(instr.C)].Kind())
			}
			if instr.Op == op.CounterDec {
				amount = -amount
			}
			if err := adjustField(m.regs[base+int(instr.A)], names[instr.B], amount); err != nil {
				return m.fail(cur, err)
			}

		case op.CounterMerge:
			if err := mergeCounters(m.regs[base+int(instr.A)], m.regs[base+int(instr.B)]); err != nil {
				return m.fail(cur, err)
			}

		case op.Assert:
			if !m.regs[base+int(instr.A)].Truthy() {
				return m.failf(cur, errz.ErrAssert, "Assertion failed")
			}

		case op.CheckPredicate:
			subject := m.regs[base+int(instr.A)]
			predicate := names[instr.B]
			if err := m.securityCheck(names[instr.C], func() (bool, error) {
				if m.policy == nil {
					return false, nil
				}
				return m.policy.CheckPredicate(subject, predicate)
			}); err != nil {
				return m.fail(cur, err)
			}

		case op.CheckCapability:
			subject := m.regs[base+int(instr.A)]
			obj := m.regs[base+int(instr.A)+1]
			capability := names[instr.B]
			if err := m.securityCheck(names[instr.C], func() (bool, error) {
				if m.policy == nil {
					return false, nil
				}
				return m.policy.CheckCapability(subject, capability, obj)
			}); err != nil {
				return m.fail(cur, err)
			}

		case op.ZoneEnter:
			m.zones = append(m.zones, names[instr.A])

		case op.ZoneExit:
			if len(m.zones) > 0 {
				m.zones = m.zones[:len(m.zones)-1]
			}

		case op.ShowValue:
			m.emitOutput(m.regs[base+int(instr.A)].Display())

		case op.MakeClosure, op.LoadUpvalue, op.StoreUpvalue, op.CloseUpvalues:
			return m.failf(cur, errz.ErrRuntime, "closures are not supported")

		default:
			return m.failf(cur, errz.ErrRuntime, "unknown opcode %d", instr.Op)
		}
	}
	return nil
}

// copyRegs snapshots count registers starting at an absolute index.
func (m *Machine) copyRegs(start, count int) []object.Value {
	out := make([]object.Value, count)
	copy(out, m.regs[start:start+count])
	return out
}

// orderHolds maps a comparison result to the generic ordering opcode.
func orderHolds(code op.Code, cmp int) bool {
	switch code {
	case op.Less:
		return cmp < 0
	case op.LessEq:
		return cmp <= 0
	case op.Greater:
		return cmp > 0
	case op.GreaterEq:
		return cmp >= 0
	}
	return false
}

// genericCompare maps a specialized ordering opcode to its generic form.
func genericCompare(code op.Code) op.Code {
	switch code {
	case op.LessInt:
		return op.Less
	case op.LessEqInt:
		return op.LessEq
	case op.GreaterInt:
		return op.Greater
	case op.GreaterEqInt:
		return op.GreaterEq
	}
	return code
}

// adjustField applies a counter adjustment to a record field. Counter
// fields accumulate; integer fields are replaced; absent or Nothing
// fields start from zero.
func adjustField(target object.Value, field string, delta int64) error {
	record := target.Record()
	if record == nil {
		return errz.Newf(errz.ErrType, "%s has no fields", target.Kind())
	}
	current, ok := record.Get(field)
	if !ok || current.IsNothing() {
		record.Set(field, object.Int(delta))
		return nil
	}
	if counter := current.Counter(); counter != nil {
		counter.Add(delta)
		return nil
	}
	if n, isInt := current.AsInt(); isInt {
		record.Set(field, object.Int(n+delta))
		return nil
	}
	return errz.Newf(errz.ErrType, "field %q is not a counter or integer", field)
}

// mergeCounters folds the source into the target. Counter pairs merge
// directly; record pairs merge field by field, summing counter and
// integer fields.
func mergeCounters(target, source object.Value) error {
	if tc, sc := target.Counter(), source.Counter(); tc != nil && sc != nil {
		tc.Merge(sc)
		return nil
	}
	tr, sr := target.Record(), source.Record()
	if tr == nil || sr == nil {
		return errz.Newf(errz.ErrType, "cannot merge %s into %s", source.Kind(), target.Kind())
	}
	for _, field := range sr.FieldNames() {
		sv, _ := sr.Get(field)
		tv, exists := tr.Get(field)
		if !exists {
			continue
		}
		if tc, sc := tv.Counter(), sv.Counter(); tc != nil && sc != nil {
			tc.Merge(sc)
			continue
		}
		tn, tOK := tv.AsInt()
		sn, sOK := sv.AsInt()
		if tOK && sOK {
			tr.Set(field, object.Int(tn+sn))
		}
	}
	return nil
}

// securityCheck runs a policy decision and converts denial into the
// standard security failure.
func (m *Machine) securityCheck(sourceText string, decide func() (bool, error)) error {
	allowed, err := decide()
	if err != nil {
		return errz.Newf(errz.ErrSecurity, "Security Check Failed: %s: %s", sourceText, err)
	}
	if !allowed {
		return errz.Newf(errz.ErrSecurity, "Security Check Failed: %s", sourceText)
	}
	return nil
}

// fail attaches the failing instruction's source location to an error.
func (m *Machine) fail(ip int, err error) error {
	var structured *errz.StructuredError
	if se, ok := err.(*errz.StructuredError); ok {
		structured = se
	} else {
		structured = errz.Newf(errz.ErrRuntime, "%s", err)
	}
	if structured.Location.Line == 0 && structured.Location.Column == 0 {
		loc := m.prog.LocationAt(ip)
		structured.Location = errz.SourceLocation{
			Filename: m.prog.Filename,
			Line:     int(loc.Line),
			Column:   int(loc.Column),
			Source:   m.sourceLine(int(loc.Line)),
		}
	}
	if fn := m.currentFunction(); fn != "" {
		structured.Stack = append(structured.Stack, errz.StackFrame{
			Function: fn,
			Location: structured.Location,
		})
	}
	return structured
}

func (m *Machine) failf(ip int, kind errz.ErrorKind, format string, args ...any) error {
	return m.fail(ip, errz.Newf(kind, format, args...))
}

func (m *Machine) currentFunction() string {
	f := m.frames[len(m.frames)-1]
	if f.fn < 0 {
		return ""
	}
	return m.prog.Functions[f.fn].Name
}

func (m *Machine) sourceLine(line int) string {
	if m.prog.Source == "" || line < 1 {
		return ""
	}
	start := 0
	n := 1
	for i := 0; i < len(m.prog.Source); i++ {
		if m.prog.Source[i] != '\n' {
			continue
		}
		if n == line {
			return m.prog.Source[start:i]
		}
		start = i + 1
		n++
	}
	if n == line {
		return m.prog.Source[start:]
	}
	return ""
}
