package ir

import "fmt"

// CheckStack follows every reachable path of the body and reports the first
// instruction that pops more operands than the stack holds. The stack is
// tracked as the slot sizes of its values, and the first path to reach an
// instruction decides its entry stack.
func (b *Body) CheckStack() error {
	n := len(b.Insns)
	if n == 0 {
		return nil
	}
	entry := make([][]int, n)
	seen := make([]bool, n)
	queue := []int{0}
	entry[0], seen[0] = []int{}, true

	reach := func(i int, stack []int) {
		if i < 0 || i >= n || seen[i] {
			return
		}
		seen[i] = true
		entry[i] = stack
		queue = append(queue, i)
	}

	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		in := b.Insns[i]

		stack, ok := stackEffect(in, append([]int(nil), entry[i]...))
		if !ok {
			return fmt.Errorf("%v: instruction %d (%s): %w", b.Method, i, in, ErrStackUnderflow)
		}
		for _, h := range b.Handlers {
			if h.Start <= i && i < h.End {
				reach(h.Handler, []int{1})
			}
		}
		switch {
		case in.Op == Goto:
			reach(in.Target, stack)
		case in.Op == Switch:
			for _, t := range in.Targets {
				reach(t, stack)
			}
		case in.IsConditional():
			reach(in.Target, stack)
		}
		if in.FallsThrough() {
			reach(i+1, stack)
		}
	}
	return nil
}

// stackEffect mirrors the operand movement of frame execution on a stack of
// slot sizes.
func stackEffect(in Instruction, stack []int) ([]int, bool) {
	ok := true
	pop := func() int {
		if len(stack) == 0 {
			ok = false
			return 1
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	push := func(sizes ...int) {
		stack = append(stack, sizes...)
	}
	drop := func(k int) {
		for ; k > 0; k-- {
			pop()
		}
	}

	switch in.Op {
	case Nop, Goto, Iinc:
	case Const, Load:
		push(in.Sort.Size())
	case New:
		push(1)
	case GetStatic:
		push(in.Field.Type().Sort.Size())
	case Store, PutStatic, If, Switch, MonitorEnter, MonitorExit, Throw:
		pop()
	case Dup:
		v := pop()
		push(v, v)
	case DupX1:
		v1, v2 := pop(), pop()
		push(v1, v2, v1)
	case Dup2:
		if v1 := pop(); v1 == 2 {
			push(v1, v1)
		} else {
			v2 := pop()
			push(v2, v1, v2, v1)
		}
	case Pop:
		pop()
	case Pop2:
		if pop() == 1 {
			pop()
		}
	case Swap:
		v1, v2 := pop(), pop()
		push(v1, v2)
	case NewArray, ArrayLength, CheckCast, InstanceOf:
		pop()
		push(1)
	case GetField:
		pop()
		push(in.Field.Type().Sort.Size())
	case Unary:
		pop()
		push(in.To.Size())
	case Return:
		if in.Sort != VoidSort {
			pop()
		}
	case ArrayLoad, Binary:
		drop(2)
		push(in.Sort.Size())
	case Compare:
		drop(2)
		push(1)
	case PutField, IfCmp:
		drop(2)
	case ArrayStore:
		drop(3)
	case Invoke, InvokeDynamic:
		params, ret := in.Call.Signature()
		k := len(params)
		if in.Op == Invoke && !in.Call.Static() {
			k++
		}
		drop(k)
		if ret.Sort != VoidSort {
			push(ret.Sort.Size())
		}
	}
	return stack, ok
}
