// Package dis supports analysis of compiled programs by disassembling
// them. Each instruction is annotated with the names and constants its
// operands refer to.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/candor-lang/candor/bytecode"
	"github.com/candor-lang/candor/op"
)

// Instruction is one decoded instruction.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   []uint16
	Annotation string
}

// Disassemble returns a decoded representation of the program's
// instruction stream.
func Disassemble(prog *bytecode.Program) ([]Instruction, error) {
	out := make([]Instruction, 0, len(prog.Instructions))
	for offset, ins := range prog.Instructions {
		info := op.GetInfo(ins.Op)
		if info.Name == "" {
			return nil, fmt.Errorf("offset %d: unknown opcode %d", offset, ins.Op)
		}
		annotation, err := annotate(prog, ins)
		if err != nil {
			return nil, fmt.Errorf("offset %d: %s", offset, err)
		}
		operands := []uint16{ins.A, ins.B, ins.C}[:info.OperandCount]
		out = append(out, Instruction{
			Offset:     offset,
			Name:       info.Name,
			Opcode:     ins.Op,
			Operands:   operands,
			Annotation: annotation,
		})
	}
	return out, nil
}

func annotate(prog *bytecode.Program, ins bytecode.Instruction) (string, error) {
	switch ins.Op {
	case op.LoadConst:
		if int(ins.B) >= len(prog.Constants) {
			return "", fmt.Errorf("constant %d out of range", ins.B)
		}
		c := prog.Constants[ins.B]
		if c.Kind == bytecode.ConstText {
			text := c.Text
			if len(text) > 80 {
				text = text[:77] + "..."
			}
			return fmt.Sprintf("%q", text), nil
		}
		v, err := c.Value()
		if err != nil {
			return "", err
		}
		return v.Display(), nil
	case op.LoadGlobal, op.CallNamed, op.CallExternal:
		return name(prog, ins.B)
	case op.StoreGlobal, op.ZoneEnter:
		return name(prog, ins.A)
	case op.GetField, op.VariantField, op.VariantTest:
		return name(prog, ins.C)
	case op.SetField, op.PushField, op.CounterInc, op.CounterDec:
		return name(prog, ins.B)
	case op.CheckPredicate, op.CheckCapability:
		return name(prog, ins.B)
	case op.Call, op.TailCall, op.GiveCall:
		if int(ins.B) >= len(prog.Functions) {
			return "", fmt.Errorf("function %d out of range", ins.B)
		}
		return "func:" + prog.Functions[ins.B].Name, nil
	case op.CallBuiltin:
		if int(ins.B) >= len(bytecode.Builtins) {
			return "", fmt.Errorf("builtin %d out of range", ins.B)
		}
		return bytecode.Builtins[ins.B].Name, nil
	case op.MakeRecord, op.MakeDefaults:
		if int(ins.B) >= len(prog.Records) {
			return "", fmt.Errorf("record layout %d out of range", ins.B)
		}
		return prog.Records[ins.B].Name, nil
	case op.MakeVariant:
		if int(ins.B) >= len(prog.Variants) {
			return "", fmt.Errorf("variant layout %d out of range", ins.B)
		}
		return prog.Variants[ins.B].Ctor, nil
	case op.Jump, op.JumpBack:
		return fmt.Sprintf("-> %d", ins.A), nil
	case op.JumpIfFalse, op.JumpIfTrue:
		return fmt.Sprintf("-> %d", ins.B), nil
	case op.IterNext, op.IterNextPair:
		return fmt.Sprintf("done -> %d", ins.C), nil
	case op.MatchJump:
		if int(ins.B) >= len(prog.JumpTables) {
			return "", fmt.Errorf("jump table %d out of range", ins.B)
		}
		table := prog.JumpTables[ins.B]
		return fmt.Sprintf("%d arms, default -> %d", len(table.Entries), table.Default), nil
	}
	return "", nil
}

func name(prog *bytecode.Program, idx uint16) (string, error) {
	if int(idx) >= len(prog.Names) {
		return "", fmt.Errorf("name %d out of range", idx)
	}
	return prog.Names[idx], nil
}

var (
	colorOpcode     = color.New(color.Bold)
	colorAnnotation = color.New(color.FgCyan)
)

// Print writes a table of the instructions to the writer. Function
// entry points are labeled inline.
func Print(prog *bytecode.Program, instructions []Instruction, w io.Writer) {
	entries := map[int]string{}
	for _, fn := range prog.Functions {
		entries[fn.Entry] = fn.Name
	}
	for _, ins := range instructions {
		if name, ok := entries[ins.Offset]; ok {
			fmt.Fprintf(w, "\n%s:\n", name)
		}
		if ins.Offset == prog.Entry {
			fmt.Fprintf(w, "\nentry:\n")
		}
		fmt.Fprintf(w, "%6d  %s%s",
			ins.Offset,
			colorOpcode.Sprint(ins.Name),
			strings.Repeat(" ", pad(len(ins.Name))))
		fmt.Fprintf(w, "%-16s", formatOperands(ins.Operands))
		if ins.Annotation != "" {
			fmt.Fprint(w, colorAnnotation.Sprint(ins.Annotation))
		}
		fmt.Fprintln(w)
	}
}

func pad(n int) int {
	const width = 18
	if n >= width {
		return 1
	}
	return width - n
}

func formatOperands(operands []uint16) string {
	parts := make([]string, len(operands))
	for i, v := range operands {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
