// Package op defines opcodes used by the Candor compiler and virtual machine.
//
// The machine is register based: every instruction carries up to three
// fixed operand slots (A, B, C) whose meaning depends on the opcode.
// Operands name registers within the current frame's window, or indexes
// into the program's constant pool, name table, function table, or jump
// tables. Jump targets are absolute offsets into the program's single
// flat instruction stream.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop          Code = 1
	Halt         Code = 2
	Call         Code = 3 // A=dst, B=function index, C=first arg register
	TailCall     Code = 4 // B=function index, C=first arg register
	Return       Code = 5 // A=result register
	ReturnNone   Code = 6
	CallBuiltin  Code = 7 // A=dst, B=builtin index, C=first arg register
	CallNamed    Code = 8 // A=dst, B=name index, C=first arg register
	CallExternal Code = 9 // A=dst, B=name index, C=register holding arg list

	// Jumps. Targets are absolute instruction offsets. JumpBack is the
	// only backward edge the compiler emits and the only place fuel is
	// charged.
	Jump        Code = 10 // A=target
	JumpIfFalse Code = 11 // A=condition, B=target
	JumpIfTrue  Code = 12 // A=condition, B=target
	JumpBack    Code = 13 // A=target
	MatchJump   Code = 14 // A=variant, B=jump table index

	// Load and store
	LoadConst   Code = 20 // A=dst, B=constant index
	LoadNone    Code = 21 // A=dst
	LoadTrue    Code = 22 // A=dst
	LoadFalse   Code = 23 // A=dst
	Move        Code = 24 // A=dst, B=src
	LoadGlobal  Code = 25 // A=dst, B=name index
	StoreGlobal Code = 26 // A=name index, B=src

	// Arithmetic. Generic forms dispatch on runtime tags; the Int forms
	// are emitted when the compiler proves both operands are integers.
	Add    Code = 30 // A=dst, B=lhs, C=rhs
	Sub    Code = 31
	Mul    Code = 32
	Div    Code = 33
	Mod    Code = 34
	AddInt Code = 35
	SubInt Code = 36
	MulInt Code = 37
	Negate Code = 38 // A=dst, B=src

	// Comparison
	Equal        Code = 40 // A=dst, B=lhs, C=rhs
	NotEqual     Code = 41
	Less         Code = 42
	LessEq       Code = 43
	Greater      Code = 44
	GreaterEq    Code = 45
	EqualInt     Code = 46
	NotEqualInt  Code = 47
	LessInt      Code = 48
	LessEqInt    Code = 49
	GreaterInt   Code = 50
	GreaterEqInt Code = 51
	Not          Code = 52 // A=dst, B=src

	// Collections
	MakeList   Code = 60 // A=dst, B=first element register, C=count
	MakeTuple  Code = 61
	MakeSet    Code = 62
	MakeMap    Code = 63 // A=dst, B=first register, C=pair count (key/value interleaved)
	MakeRange  Code = 64 // A=dst, B=low, C=high (inclusive)
	IndexGet   Code = 70 // A=dst, B=container, C=index (1-based)
	IndexSet   Code = 71 // A=container, B=index, C=value
	SliceGet   Code = 72 // A=dst, B=container, C=low register; high is C+1
	Length     Code = 73 // A=dst, B=src
	Contains   Code = 74 // A=dst, B=container, C=item
	ListPush   Code = 75 // A=list, B=value
	ListPop    Code = 76 // A=dst, B=list
	SetAdd     Code = 77 // A=set, B=value
	SetRemove  Code = 78 // A=set, B=value
	Union      Code = 79 // A=dst, B=lhs, C=rhs
	Intersect  Code = 80
	CloneValue Code = 81 // A=dst, B=src (deep copy)

	// Records and variants
	MakeRecord   Code = 90 // A=dst, B=layout index, C=first field register
	MakeDefaults Code = 91 // A=dst, B=layout index (all fields defaulted)
	MakeVariant  Code = 92 // A=dst, B=variant index, C=first arg register
	GetField     Code = 93 // A=dst, B=record, C=name index
	SetField     Code = 94 // A=record, B=name index, C=value
	PushField    Code = 95 // A=record, B=name index, C=value (append to list field)
	VariantTest  Code = 96 // A=dst, B=src, C=constructor name index
	VariantField Code = 97 // A=dst, B=variant, C=field name index
	VariantArg   Code = 98 // A=dst, B=variant, C=position (0-based)

	// Iteration. Slots hold snapshots taken at IterStart.
	IterStart    Code = 100 // A=slot, B=source register
	IterNext     Code = 101 // A=dst, B=slot, C=jump target when exhausted
	IterNextPair Code = 102 // A=key dst (value dst is A+1), B=slot, C=target
	IterEnd      Code = 103 // A=slot

	// Counters
	MakeCounter  Code = 110 // A=dst
	CounterInc   Code = 111 // A=record, B=field name index, C=amount register
	CounterDec   Code = 112 // A=record, B=field name index, C=amount register
	CounterMerge Code = 113 // A=target record, B=source record

	// Checks and markers
	Assert          Code = 120 // A=condition
	CheckPredicate  Code = 121 // A=subject, B=predicate name index, C=source text index
	CheckCapability Code = 122 // A=subject (object follows at A+1), B=capability name index, C=source text index
	ZoneEnter       Code = 123 // A=zone name index
	ZoneExit        Code = 124
	ShowValue       Code = 125 // A=src (append display string to output log)
	GiveCall        Code = 126 // A=dst, B=function index, C=first arg register (transfers ownership)

	// Closures are reserved for a future revision. The opcodes exist so
	// serialized programs keep stable numbering, but executing any of
	// them is a runtime error.
	MakeClosure   Code = 240
	LoadUpvalue   Code = 241
	StoreUpvalue  Code = 242
	CloseUpvalues Code = 243
)

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
	}
	ops := []opInfo{
		{Nop, "NOP", 0},
		{Halt, "HALT", 0},
		{Call, "CALL", 3},
		{TailCall, "TAIL_CALL", 3},
		{Return, "RETURN", 1},
		{ReturnNone, "RETURN_NONE", 0},
		{CallBuiltin, "CALL_BUILTIN", 3},
		{CallNamed, "CALL_NAMED", 3},
		{CallExternal, "CALL_EXTERNAL", 3},
		{Jump, "JUMP", 1},
		{JumpIfFalse, "JUMP_IF_FALSE", 2},
		{JumpIfTrue, "JUMP_IF_TRUE", 2},
		{JumpBack, "JUMP_BACK", 1},
		{MatchJump, "MATCH_JUMP", 2},
		{LoadConst, "LOAD_CONST", 2},
		{LoadNone, "LOAD_NONE", 1},
		{LoadTrue, "LOAD_TRUE", 1},
		{LoadFalse, "LOAD_FALSE", 1},
		{Move, "MOVE", 2},
		{LoadGlobal, "LOAD_GLOBAL", 2},
		{StoreGlobal, "STORE_GLOBAL", 2},
		{Add, "ADD", 3},
		{Sub, "SUB", 3},
		{Mul, "MUL", 3},
		{Div, "DIV", 3},
		{Mod, "MOD", 3},
		{AddInt, "ADD_INT", 3},
		{SubInt, "SUB_INT", 3},
		{MulInt, "MUL_INT", 3},
		{Negate, "NEGATE", 2},
		{Equal, "EQUAL", 3},
		{NotEqual, "NOT_EQUAL", 3},
		{Less, "LESS", 3},
		{LessEq, "LESS_EQ", 3},
		{Greater, "GREATER", 3},
		{GreaterEq, "GREATER_EQ", 3},
		{EqualInt, "EQUAL_INT", 3},
		{NotEqualInt, "NOT_EQUAL_INT", 3},
		{LessInt, "LESS_INT", 3},
		{LessEqInt, "LESS_EQ_INT", 3},
		{GreaterInt, "GREATER_INT", 3},
		{GreaterEqInt, "GREATER_EQ_INT", 3},
		{Not, "NOT", 2},
		{MakeList, "MAKE_LIST", 3},
		{MakeTuple, "MAKE_TUPLE", 3},
		{MakeSet, "MAKE_SET", 3},
		{MakeMap, "MAKE_MAP", 3},
		{MakeRange, "MAKE_RANGE", 3},
		{IndexGet, "INDEX_GET", 3},
		{IndexSet, "INDEX_SET", 3},
		{SliceGet, "SLICE_GET", 3},
		{Length, "LENGTH", 2},
		{Contains, "CONTAINS", 3},
		{ListPush, "LIST_PUSH", 2},
		{ListPop, "LIST_POP", 2},
		{SetAdd, "SET_ADD", 2},
		{SetRemove, "SET_REMOVE", 2},
		{Union, "UNION", 3},
		{Intersect, "INTERSECT", 3},
		{CloneValue, "CLONE_VALUE", 2},
		{MakeRecord, "MAKE_RECORD", 3},
		{MakeDefaults, "MAKE_DEFAULTS", 2},
		{MakeVariant, "MAKE_VARIANT", 3},
		{GetField, "GET_FIELD", 3},
		{SetField, "SET_FIELD", 3},
		{PushField, "PUSH_FIELD", 3},
		{VariantTest, "VARIANT_TEST", 3},
		{VariantField, "VARIANT_FIELD", 3},
		{VariantArg, "VARIANT_ARG", 3},
		{IterStart, "ITER_START", 2},
		{IterNext, "ITER_NEXT", 3},
		{IterNextPair, "ITER_NEXT_PAIR", 3},
		{IterEnd, "ITER_END", 1},
		{MakeCounter, "MAKE_COUNTER", 1},
		{CounterInc, "COUNTER_INC", 3},
		{CounterDec, "COUNTER_DEC", 3},
		{CounterMerge, "COUNTER_MERGE", 2},
		{Assert, "ASSERT", 1},
		{CheckPredicate, "CHECK_PREDICATE", 3},
		{CheckCapability, "CHECK_CAPABILITY", 3},
		{ZoneEnter, "ZONE_ENTER", 1},
		{ZoneExit, "ZONE_EXIT", 0},
		{ShowValue, "SHOW_VALUE", 1},
		{GiveCall, "GIVE_CALL", 3},
		{MakeClosure, "MAKE_CLOSURE", 3},
		{LoadUpvalue, "LOAD_UPVALUE", 2},
		{StoreUpvalue, "STORE_UPVALUE", 2},
		{CloseUpvalues, "CLOSE_UPVALUES", 1},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// IsJump returns true for opcodes whose B operand (or A for plain
// jumps) is an absolute instruction offset.
func IsJump(op Code) bool {
	switch op {
	case Jump, JumpIfFalse, JumpIfTrue, JumpBack, IterNext, IterNextPair:
		return true
	}
	return false
}

// IsReserved returns true for opcodes that are defined but not yet
// executable (the closure group).
func IsReserved(op Code) bool {
	switch op {
	case MakeClosure, LoadUpvalue, StoreUpvalue, CloseUpvalues:
		return true
	}
	return false
}
