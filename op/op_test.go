package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(Call)
	require.Equal(t, Call, info.Code)
	require.Equal(t, "CALL", info.Name)
	require.Equal(t, 3, info.OperandCount)

	info = GetInfo(Halt)
	require.Equal(t, "HALT", info.Name)
	require.Equal(t, 0, info.OperandCount)
}

func TestEveryOpcodeHasInfo(t *testing.T) {
	codes := []Code{
		Nop, Halt, Call, TailCall, Return, ReturnNone, CallBuiltin,
		CallNamed, CallExternal, Jump, JumpIfFalse, JumpIfTrue, JumpBack,
		MatchJump, LoadConst, LoadNone, LoadTrue, LoadFalse, Move,
		LoadGlobal, StoreGlobal, Add, Sub, Mul, Div, Mod, AddInt, SubInt,
		MulInt, Negate, Equal, NotEqual, Less, LessEq, Greater, GreaterEq,
		EqualInt, NotEqualInt, LessInt, LessEqInt, GreaterInt,
		GreaterEqInt, Not, MakeList, MakeTuple, MakeSet, MakeMap,
		MakeRange, IndexGet, IndexSet, SliceGet, Length, Contains,
		ListPush, ListPop, SetAdd, SetRemove, Union, Intersect,
		CloneValue, MakeRecord, MakeDefaults, MakeVariant, GetField,
		SetField, PushField, VariantTest, VariantField, VariantArg,
		IterStart, IterNext, IterNextPair, IterEnd, MakeCounter,
		CounterInc, CounterDec, CounterMerge, Assert, CheckPredicate,
		CheckCapability, ZoneEnter, ZoneExit, ShowValue, GiveCall,
		MakeClosure, LoadUpvalue, StoreUpvalue, CloseUpvalues,
	}
	for _, c := range codes {
		info := GetInfo(c)
		require.NotEmpty(t, info.Name, "opcode %d has no info", c)
		require.Equal(t, c, info.Code)
	}
}

func TestIsReserved(t *testing.T) {
	require.True(t, IsReserved(MakeClosure))
	require.True(t, IsReserved(LoadUpvalue))
	require.True(t, IsReserved(StoreUpvalue))
	require.True(t, IsReserved(CloseUpvalues))
	require.False(t, IsReserved(Call))
	require.False(t, IsReserved(Jump))
}

func TestIsJump(t *testing.T) {
	require.True(t, IsJump(Jump))
	require.True(t, IsJump(JumpBack))
	require.True(t, IsJump(IterNext))
	require.False(t, IsJump(Add))
}
