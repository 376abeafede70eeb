package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/contra/analysis/defs"
)

// Op is the category of an instruction. The transfer functions of every
// analysis dispatch on it; Sort and Cond refine it where needed.
type Op uint8

const (
	Nop Op = iota
	Const
	Load
	Store
	Iinc
	Dup
	DupX1
	Dup2
	Pop
	Pop2
	Swap
	New
	NewArray
	ArrayLength
	ArrayLoad
	ArrayStore
	GetField
	PutField
	GetStatic
	PutStatic
	CheckCast
	InstanceOf
	MonitorEnter
	MonitorExit
	Invoke
	InvokeDynamic
	Unary
	Binary
	Compare
	If
	IfCmp
	Goto
	Switch
	Return
	Throw
)

// ConstKind refines Const.
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstInt
	ConstWide
	ConstString
	ConstClass
)

// Cond is the comparison performed by If and IfCmp.
type Cond uint8

const (
	CondEq Cond = iota
	CondNe
	CondLt
	CondGe
	CondGt
	CondLe
	CondNull
	CondNonNull
)

// Negate returns the condition taking the other edge.
func (c Cond) Negate() Cond {
	switch c {
	case CondEq:
		return CondNe
	case CondNe:
		return CondEq
	case CondLt:
		return CondGe
	case CondGe:
		return CondLt
	case CondGt:
		return CondLe
	case CondLe:
		return CondGt
	case CondNull:
		return CondNonNull
	}
	return CondNull
}

// InvokeKind distinguishes how the target of a call is selected.
type InvokeKind uint8

const (
	InvokeStatic InvokeKind = iota
	InvokeSpecial
	InvokeVirtual
	InvokeInterface
)

// Field references a field by owner, name and descriptor.
type Field struct {
	Owner, Name, Desc string
}

func (f Field) String() string {
	return f.Owner + "." + f.Name + ":" + f.Desc
}

// Method is the key space entry used for facts about the field.
func (f Field) Method() defs.Method {
	return defs.FieldMethod(f.Owner, f.Name, f.Desc)
}

func (f Field) Type() Type {
	t, err := ParseType(f.Desc)
	if err != nil {
		return Type{RefSort, f.Desc}
	}
	return t
}

// Call describes the target of Invoke and InvokeDynamic.
type Call struct {
	Method defs.Method
	Kind   InvokeKind
	// Devirtualized is set for virtual calls whose target cannot be
	// overridden.
	Devirtualized bool
	// Lambda marks invokedynamic sites bootstrapped by the lambda
	// metafactory.
	Lambda bool
}

// Static calls pass no receiver.
func (c Call) Static() bool {
	return c.Kind == InvokeStatic
}

// Stable holds when the call site always dispatches to Method.
func (c Call) Stable() bool {
	return c.Kind == InvokeStatic || c.Kind == InvokeSpecial || c.Devirtualized
}

// Signature parses the call descriptor. Malformed descriptors are treated
// as a call without arguments returning an object.
func (c Call) Signature() ([]Type, Type) {
	params, ret, err := ParseMethodDesc(c.Method.Desc)
	if err != nil {
		return nil, Type{RefSort, "Ljava/lang/Object;"}
	}
	return params, ret
}

// Instruction is one decoded instruction.
type Instruction struct {
	Mnemonic string
	Op       Op
	// Sort is the sort of the operand(s) the instruction consumes or
	// produces: the loaded, stored, returned or array element sort, the
	// constant sort, or the left operand of Binary and the source of Unary.
	Sort Sort
	// To is the result sort of Unary and the right operand sort of Binary.
	To    Sort
	Const ConstKind
	Cond  Cond
	// Int is the integer constant or the iinc increment.
	Int int64
	// Local is the local variable index of Load, Store and Iinc.
	Local int
	// Str is the string constant or the class operand.
	Str   string
	Field Field
	Call  Call
	// Target is the jump target of If, IfCmp and Goto.
	Target int
	// Targets of Switch, the default first.
	Targets []int
}

// IsConditional holds for two-way branches.
func (in Instruction) IsConditional() bool {
	return in.Op == If || in.Op == IfCmp
}

// FallsThrough holds when execution may continue with the next instruction.
func (in Instruction) FallsThrough() bool {
	switch in.Op {
	case Goto, Switch, Return, Throw:
		return false
	}
	return true
}

// IsBranch holds for instructions with more than one successor.
func (in Instruction) IsBranch() bool {
	return in.IsConditional() || in.Op == Switch
}

// Dereferences holds for instructions that throw when their object operand
// is null.
func (in Instruction) Dereferences() bool {
	switch in.Op {
	case GetField, PutField, ArrayLength, ArrayLoad, ArrayStore, MonitorEnter, MonitorExit:
		return true
	case Invoke:
		return in.Call.Kind != InvokeStatic
	}
	return false
}

// String renders the instruction in assembler syntax, with numeric jump
// targets.
func (in Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Mnemonic)
	operand := func(s string) {
		sb.WriteString(" ")
		sb.WriteString(s)
	}
	switch mnemonics[in.Mnemonic].operand {
	case intOperand:
		operand(strconv.FormatInt(in.Int, 10))
	case localOperand:
		operand(strconv.Itoa(in.Local))
	case iincOperand:
		operand(strconv.Itoa(in.Local))
		operand(strconv.FormatInt(in.Int, 10))
	case labelOperand:
		operand(strconv.Itoa(in.Target))
	case switchOperand:
		for _, t := range in.Targets {
			operand(strconv.Itoa(t))
		}
	case classOperand, sortOperand:
		operand(in.Str)
	case fieldOperand:
		operand(in.Field.String())
	case methodOperand:
		operand(in.Call.Method.String())
	case indyOperand:
		if in.Call.Lambda {
			operand("lambda")
		}
		operand(in.Call.Method.Name + in.Call.Method.Desc)
	case ldcOperand:
		switch in.Const {
		case ConstString:
			operand(strconv.Quote(in.Str))
		case ConstClass:
			operand(in.Str)
		case ConstWide:
			operand(in.Str)
		default:
			operand(strconv.FormatInt(in.Int, 10))
		}
	}
	return sb.String()
}

// Make creates an instruction from its mnemonic with every operand zeroed.
// It panics on unknown mnemonics; the assembler checks them first.
func Make(mnemonic string) Instruction {
	m, ok := mnemonics[mnemonic]
	if !ok {
		panic(fmt.Errorf("unknown mnemonic %q", mnemonic))
	}
	in := Instruction{
		Mnemonic: mnemonic,
		Op:       m.op,
		Sort:     m.sort,
		To:       m.to,
		Cond:     m.cond,
		Const:    m.kind,
		Int:      m.value,
	}
	switch mnemonic {
	case "invokestatic":
		in.Call.Kind = InvokeStatic
	case "invokespecial":
		in.Call.Kind = InvokeSpecial
	case "invokevirtual":
		in.Call.Kind = InvokeVirtual
	case "invokeinterface":
		in.Call.Kind = InvokeInterface
	}
	return in
}

type operandKind uint8

const (
	noOperand operandKind = iota
	intOperand
	localOperand
	iincOperand
	labelOperand
	switchOperand
	classOperand
	sortOperand
	fieldOperand
	methodOperand
	indyOperand
	ldcOperand
)

type mnemonic struct {
	op      Op
	sort    Sort
	to      Sort
	cond    Cond
	kind    ConstKind
	value   int64
	operand operandKind
}

var mnemonics = map[string]mnemonic{
	"nop": {op: Nop},

	"aconst_null": {op: Const, sort: RefSort, kind: ConstNull},
	"iconst_m1":   {op: Const, sort: IntSort, kind: ConstInt, value: -1},
	"iconst_0":    {op: Const, sort: IntSort, kind: ConstInt, value: 0},
	"iconst_1":    {op: Const, sort: IntSort, kind: ConstInt, value: 1},
	"iconst_2":    {op: Const, sort: IntSort, kind: ConstInt, value: 2},
	"iconst_3":    {op: Const, sort: IntSort, kind: ConstInt, value: 3},
	"iconst_4":    {op: Const, sort: IntSort, kind: ConstInt, value: 4},
	"iconst_5":    {op: Const, sort: IntSort, kind: ConstInt, value: 5},
	"bipush":      {op: Const, sort: IntSort, kind: ConstInt, operand: intOperand},
	"sipush":      {op: Const, sort: IntSort, kind: ConstInt, operand: intOperand},
	"lconst_0":    {op: Const, sort: LongSort, kind: ConstWide},
	"lconst_1":    {op: Const, sort: LongSort, kind: ConstWide, value: 1},
	"fconst_0":    {op: Const, sort: FloatSort, kind: ConstWide},
	"fconst_1":    {op: Const, sort: FloatSort, kind: ConstWide, value: 1},
	"dconst_0":    {op: Const, sort: DoubleSort, kind: ConstWide},
	"dconst_1":    {op: Const, sort: DoubleSort, kind: ConstWide, value: 1},
	"ldc":         {op: Const, operand: ldcOperand},

	"iload": {op: Load, sort: IntSort, operand: localOperand},
	"lload": {op: Load, sort: LongSort, operand: localOperand},
	"fload": {op: Load, sort: FloatSort, operand: localOperand},
	"dload": {op: Load, sort: DoubleSort, operand: localOperand},
	"aload": {op: Load, sort: RefSort, operand: localOperand},

	"istore": {op: Store, sort: IntSort, operand: localOperand},
	"lstore": {op: Store, sort: LongSort, operand: localOperand},
	"fstore": {op: Store, sort: FloatSort, operand: localOperand},
	"dstore": {op: Store, sort: DoubleSort, operand: localOperand},
	"astore": {op: Store, sort: RefSort, operand: localOperand},

	"iinc": {op: Iinc, sort: IntSort, operand: iincOperand},

	"dup":    {op: Dup},
	"dup_x1": {op: DupX1},
	"dup2":   {op: Dup2},
	"pop":    {op: Pop},
	"pop2":   {op: Pop2},
	"swap":   {op: Swap},

	"new":         {op: New, sort: RefSort, operand: classOperand},
	"newarray":    {op: NewArray, sort: RefSort, operand: sortOperand},
	"anewarray":   {op: NewArray, sort: RefSort, operand: classOperand},
	"arraylength": {op: ArrayLength, sort: IntSort},

	"iaload": {op: ArrayLoad, sort: IntSort},
	"laload": {op: ArrayLoad, sort: LongSort},
	"faload": {op: ArrayLoad, sort: FloatSort},
	"daload": {op: ArrayLoad, sort: DoubleSort},
	"aaload": {op: ArrayLoad, sort: RefSort},
	"baload": {op: ArrayLoad, sort: IntSort},
	"caload": {op: ArrayLoad, sort: IntSort},
	"saload": {op: ArrayLoad, sort: IntSort},

	"iastore": {op: ArrayStore, sort: IntSort},
	"lastore": {op: ArrayStore, sort: LongSort},
	"fastore": {op: ArrayStore, sort: FloatSort},
	"dastore": {op: ArrayStore, sort: DoubleSort},
	"aastore": {op: ArrayStore, sort: RefSort},
	"bastore": {op: ArrayStore, sort: IntSort},
	"castore": {op: ArrayStore, sort: IntSort},
	"sastore": {op: ArrayStore, sort: IntSort},

	"getfield":  {op: GetField, operand: fieldOperand},
	"putfield":  {op: PutField, operand: fieldOperand},
	"getstatic": {op: GetStatic, operand: fieldOperand},
	"putstatic": {op: PutStatic, operand: fieldOperand},

	"checkcast":    {op: CheckCast, sort: RefSort, operand: classOperand},
	"instanceof":   {op: InstanceOf, sort: RefSort, operand: classOperand},
	"monitorenter": {op: MonitorEnter, sort: RefSort},
	"monitorexit":  {op: MonitorExit, sort: RefSort},

	"invokestatic":    {op: Invoke, operand: methodOperand},
	"invokespecial":   {op: Invoke, operand: methodOperand},
	"invokevirtual":   {op: Invoke, operand: methodOperand},
	"invokeinterface": {op: Invoke, operand: methodOperand},
	"invokedynamic":   {op: InvokeDynamic, operand: indyOperand},

	"ineg": {op: Unary, sort: IntSort, to: IntSort},
	"lneg": {op: Unary, sort: LongSort, to: LongSort},
	"fneg": {op: Unary, sort: FloatSort, to: FloatSort},
	"dneg": {op: Unary, sort: DoubleSort, to: DoubleSort},
	"i2l":  {op: Unary, sort: IntSort, to: LongSort},
	"i2f":  {op: Unary, sort: IntSort, to: FloatSort},
	"i2d":  {op: Unary, sort: IntSort, to: DoubleSort},
	"l2i":  {op: Unary, sort: LongSort, to: IntSort},
	"l2f":  {op: Unary, sort: LongSort, to: FloatSort},
	"l2d":  {op: Unary, sort: LongSort, to: DoubleSort},
	"f2i":  {op: Unary, sort: FloatSort, to: IntSort},
	"f2l":  {op: Unary, sort: FloatSort, to: LongSort},
	"f2d":  {op: Unary, sort: FloatSort, to: DoubleSort},
	"d2i":  {op: Unary, sort: DoubleSort, to: IntSort},
	"d2l":  {op: Unary, sort: DoubleSort, to: LongSort},
	"d2f":  {op: Unary, sort: DoubleSort, to: FloatSort},
	"i2b":  {op: Unary, sort: IntSort, to: IntSort},
	"i2c":  {op: Unary, sort: IntSort, to: IntSort},
	"i2s":  {op: Unary, sort: IntSort, to: IntSort},
	// Projections out of opaque values, such as the components of a tuple.
	"q2i": {op: Unary, sort: IntSort, to: IntSort},
	"q2l": {op: Unary, sort: IntSort, to: LongSort},
	"q2f": {op: Unary, sort: IntSort, to: FloatSort},
	"q2d": {op: Unary, sort: IntSort, to: DoubleSort},
	"q2a": {op: Unary, sort: IntSort, to: RefSort},

	"lcmp":  {op: Compare, sort: LongSort},
	"fcmpl": {op: Compare, sort: FloatSort},
	"fcmpg": {op: Compare, sort: FloatSort},
	"dcmpl": {op: Compare, sort: DoubleSort},
	"dcmpg": {op: Compare, sort: DoubleSort},

	"ifeq":      {op: If, sort: IntSort, cond: CondEq, operand: labelOperand},
	"ifne":      {op: If, sort: IntSort, cond: CondNe, operand: labelOperand},
	"iflt":      {op: If, sort: IntSort, cond: CondLt, operand: labelOperand},
	"ifge":      {op: If, sort: IntSort, cond: CondGe, operand: labelOperand},
	"ifgt":      {op: If, sort: IntSort, cond: CondGt, operand: labelOperand},
	"ifle":      {op: If, sort: IntSort, cond: CondLe, operand: labelOperand},
	"ifnull":    {op: If, sort: RefSort, cond: CondNull, operand: labelOperand},
	"ifnonnull": {op: If, sort: RefSort, cond: CondNonNull, operand: labelOperand},
	"if_icmpeq": {op: IfCmp, sort: IntSort, cond: CondEq, operand: labelOperand},
	"if_icmpne": {op: IfCmp, sort: IntSort, cond: CondNe, operand: labelOperand},
	"if_icmplt": {op: IfCmp, sort: IntSort, cond: CondLt, operand: labelOperand},
	"if_icmpge": {op: IfCmp, sort: IntSort, cond: CondGe, operand: labelOperand},
	"if_icmpgt": {op: IfCmp, sort: IntSort, cond: CondGt, operand: labelOperand},
	"if_icmple": {op: IfCmp, sort: IntSort, cond: CondLe, operand: labelOperand},
	"if_acmpeq": {op: IfCmp, sort: RefSort, cond: CondEq, operand: labelOperand},
	"if_acmpne": {op: IfCmp, sort: RefSort, cond: CondNe, operand: labelOperand},
	"goto":      {op: Goto, operand: labelOperand},
	"switch":    {op: Switch, sort: IntSort, operand: switchOperand},

	"return":  {op: Return, sort: VoidSort},
	"ireturn": {op: Return, sort: IntSort},
	"lreturn": {op: Return, sort: LongSort},
	"freturn": {op: Return, sort: FloatSort},
	"dreturn": {op: Return, sort: DoubleSort},
	"areturn": {op: Return, sort: RefSort},
	"athrow":  {op: Throw, sort: RefSort},
}

func init() {
	for _, op := range []string{"add", "sub", "mul", "div", "rem", "and", "or", "xor", "shl", "shr", "ushr"} {
		for prefix, sort := range map[string]Sort{"i": IntSort, "l": LongSort, "f": FloatSort, "d": DoubleSort} {
			integral := op == "and" || op == "or" || op == "xor" || op == "shl" || op == "shr" || op == "ushr"
			if integral && (sort == FloatSort || sort == DoubleSort) {
				continue
			}
			right := sort
			if sort == LongSort && (op == "shl" || op == "shr" || op == "ushr") {
				right = IntSort
			}
			mnemonics[prefix+op] = mnemonic{op: Binary, sort: sort, to: right}
		}
	}
}
