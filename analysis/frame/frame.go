// Package frame implements the operand stack and local variable semantics
// shared by every abstract interpreter. Interpreters only decide which
// abstract value an instruction produces; the frame takes care of moving
// values between stack slots and locals.
package frame

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/contra/analysis/ir"
)

// Value is an abstract value occupying one or two slots.
type Value interface {
	Size() int
}

// Interpreter provides the transfer functions of one abstract domain. The
// result of a function is discarded for instructions that push nothing.
type Interpreter[V Value] interface {
	// Generic is an unconstrained value of the sort. VoidSort requests the
	// value of an uninitialized local slot.
	Generic(sort ir.Sort) V
	// New handles instructions without operands that push a value.
	New(in ir.Instruction) V
	// Copy handles loads and stores.
	Copy(in ir.Instruction, v V) V
	Unary(in ir.Instruction, v V) V
	Binary(in ir.Instruction, v1, v2 V) V
	Ternary(in ir.Instruction, v1, v2, v3 V) V
	// Nary handles calls. Args include the receiver of instance calls.
	Nary(in ir.Instruction, args []V) V
}

// Frame is a snapshot of the locals and the operand stack.
type Frame[V Value] struct {
	Locals []V
	Stack  []V
}

// Entry builds the frame at method entry: the receiver and parameters in
// their slots, the remaining locals uninitialized. param is called with the
// parameter index, or -1 for the receiver.
func Entry[V Value](b *ir.Body, interp Interpreter[V], param func(n int, t ir.Type) V) Frame[V] {
	f := Frame[V]{Locals: make([]V, b.MaxLocals)}
	slot := 0
	if !b.IsStatic() {
		f.Locals[0] = param(-1, ir.Type{Sort: ir.RefSort, Desc: "L" + b.Method.Owner + ";"})
		slot++
	}
	for n, p := range b.Params {
		f.Locals[slot] = param(n, p)
		if p.Sort.Size() == 2 {
			f.Locals[slot+1] = interp.Generic(ir.VoidSort)
		}
		slot += p.Sort.Size()
	}
	for ; slot < len(f.Locals); slot++ {
		f.Locals[slot] = interp.Generic(ir.VoidSort)
	}
	return f
}

// Copy duplicates the slot arrays.
func (f Frame[V]) Copy() Frame[V] {
	return Frame[V]{
		Locals: append([]V(nil), f.Locals...),
		Stack:  append([]V(nil), f.Stack...),
	}
}

// Catch is the frame at the entry of an exception handler entered from f.
func (f Frame[V]) Catch(exc V) Frame[V] {
	return Frame[V]{
		Locals: append([]V(nil), f.Locals...),
		Stack:  []V{exc},
	}
}

func (f *Frame[V]) Push(v V) {
	f.Stack = append(f.Stack, v)
}

func (f *Frame[V]) Pop() V {
	if len(f.Stack) == 0 {
		panic(fmt.Errorf("pop from empty operand stack"))
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v
}

// Peek returns the value i slots below the top.
func (f Frame[V]) Peek(i int) V {
	return f.Stack[len(f.Stack)-1-i]
}

// Execute applies one instruction to f in place.
func (f *Frame[V]) Execute(in ir.Instruction, interp Interpreter[V]) {
	switch in.Op {
	case ir.Nop, ir.Goto:
	case ir.Const, ir.New, ir.GetStatic:
		f.Push(interp.New(in))
	case ir.Load:
		f.Push(interp.Copy(in, f.Locals[in.Local]))
	case ir.Store:
		f.store(in.Local, interp.Copy(in, f.Pop()), interp)
	case ir.Iinc:
		f.Locals[in.Local] = interp.Unary(in, f.Locals[in.Local])
	case ir.Dup:
		v := f.Pop()
		f.Push(v)
		f.Push(v)
	case ir.DupX1:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
	case ir.Dup2:
		v1 := f.Pop()
		if v1.Size() == 2 {
			f.Push(v1)
			f.Push(v1)
			break
		}
		v2 := f.Pop()
		f.Push(v2)
		f.Push(v1)
		f.Push(v2)
		f.Push(v1)
	case ir.Pop:
		f.Pop()
	case ir.Pop2:
		if v := f.Pop(); v.Size() == 1 {
			f.Pop()
		}
	case ir.Swap:
		v1, v2 := f.Pop(), f.Pop()
		f.Push(v1)
		f.Push(v2)
	case ir.NewArray, ir.ArrayLength, ir.GetField, ir.CheckCast, ir.InstanceOf, ir.Unary:
		f.Push(interp.Unary(in, f.Pop()))
	case ir.PutStatic, ir.If, ir.Switch, ir.MonitorEnter, ir.MonitorExit, ir.Throw:
		interp.Unary(in, f.Pop())
	case ir.Return:
		if in.Sort != ir.VoidSort {
			interp.Unary(in, f.Pop())
		}
	case ir.ArrayLoad, ir.Binary, ir.Compare:
		v2 := f.Pop()
		v1 := f.Pop()
		f.Push(interp.Binary(in, v1, v2))
	case ir.PutField, ir.IfCmp:
		v2 := f.Pop()
		v1 := f.Pop()
		interp.Binary(in, v1, v2)
	case ir.ArrayStore:
		v3 := f.Pop()
		v2 := f.Pop()
		v1 := f.Pop()
		interp.Ternary(in, v1, v2, v3)
	case ir.Invoke, ir.InvokeDynamic:
		params, ret := in.Call.Signature()
		n := len(params)
		if in.Op == ir.Invoke && !in.Call.Static() {
			n++
		}
		args := make([]V, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = f.Pop()
		}
		v := interp.Nary(in, args)
		if ret.Sort != ir.VoidSort {
			f.Push(v)
		}
	default:
		panic(fmt.Errorf("unsupported instruction %v", in))
	}
}

func (f *Frame[V]) store(slot int, v V, interp Interpreter[V]) {
	f.Locals[slot] = v
	if v.Size() == 2 && slot+1 < len(f.Locals) {
		f.Locals[slot+1] = interp.Generic(ir.VoidSort)
	}
	if slot > 0 && f.Locals[slot-1].Size() == 2 {
		f.Locals[slot-1] = interp.Generic(ir.VoidSort)
	}
}

func (f Frame[V]) String() string {
	str := func(vs []V) string {
		strs := make([]string, len(vs))
		for i, v := range vs {
			strs[i] = fmt.Sprint(v)
		}
		return strings.Join(strs, ", ")
	}
	return "locals [" + str(f.Locals) + "] stack [" + str(f.Stack) + "]"
}
