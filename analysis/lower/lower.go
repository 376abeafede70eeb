// Package lower translates Go SSA functions into the instruction model the
// analyses run on.
//
// Every SSA value gets its own local slot. Instructions load their operands,
// apply the operation and store the result, phis become moves on the
// incoming edges. Nil comparisons feeding a branch become ifnull and
// ifnonnull, loads and stores through pointers become field accesses that
// dereference the pointer, and panics throw.
package lower

import (
	"errors"
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"sort"

	"golang.org/x/tools/go/ssa"

	"github.com/cs-au-dk/contra/analysis/defs"
	"github.com/cs-au-dk/contra/analysis/ir"
)

var ErrGeneric = errors.New("generic function bodies are not lowered")

// Lowering accumulates lowered functions and the fields they touch into
// classes, one per owner.
type Lowering struct {
	classes map[string]*ir.Class
	fields  map[ir.Field]bool
}

func New() *Lowering {
	return &Lowering{
		classes: make(map[string]*ir.Class),
		fields:  make(map[ir.Field]bool),
	}
}

func (l *Lowering) class(name string) *ir.Class {
	c, ok := l.classes[name]
	if !ok {
		c = &ir.Class{Name: name, Access: ir.AccFinal}
		l.classes[name] = c
	}
	return c
}

func (l *Lowering) declare(f ir.Field, static bool) {
	if l.fields[f] {
		return
	}
	l.fields[f] = true
	acc := ir.AccPublic
	if static {
		acc |= ir.AccStatic
	}
	c := l.class(f.Owner)
	c.Fields = append(c.Fields, ir.FieldDecl{Name: f.Name, Desc: f.Desc, Access: acc})
}

// Program collects everything lowered so far.
func (l *Lowering) Program() (*ir.Program, error) {
	names := make([]string, 0, len(l.classes))
	for name := range l.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	classes := make([]*ir.Class, 0, len(names))
	for _, name := range names {
		classes = append(classes, l.classes[name])
	}
	return ir.NewProgram(classes...)
}

// Program lowers every function. Functions that cannot be lowered are
// reported and skipped.
func Program(funcs []*ssa.Function) (*ir.Program, []error) {
	l := New()
	errs := []error{}
	for _, fn := range funcs {
		if _, err := l.Function(fn); err != nil {
			errs = append(errs, err)
		}
	}
	prog, err := l.Program()
	if err != nil {
		errs = append(errs, err)
	}
	return prog, errs
}

// Function lowers fn and adds it to the class of its owner.
func (l *Lowering) Function(fn *ssa.Function) (*ir.Body, error) {
	if fn.TypeParams().Len() > 0 && len(fn.TypeArgs()) == 0 {
		return nil, fmt.Errorf("%s: %w", fn, ErrGeneric)
	}
	if fn.Blocks == nil {
		return nil, fmt.Errorf("%s: no body", fn)
	}

	m := MethodOf(fn)
	acc := ir.AccStatic
	if fn.Object() != nil && fn.Object().Exported() {
		acc |= ir.AccPublic
	} else {
		acc |= ir.AccPrivate
	}
	b, err := ir.NewBody(m, acc)
	if err != nil {
		return nil, err
	}

	f := &function{
		l:     l,
		fn:    fn,
		body:  b,
		slots: make(map[ssa.Value]int),
		fused: make(map[ssa.Instruction]bool),
	}
	f.lower()

	c := l.class(m.Owner)
	for _, other := range c.Methods {
		if other.Method == m {
			return nil, fmt.Errorf("%s: %v lowered twice", fn, m)
		}
	}
	c.Methods = append(c.Methods, b)
	return b, nil
}

type fixup struct {
	insn, label int
}

type function struct {
	l    *Lowering
	fn   *ssa.Function
	body *ir.Body

	slots map[ssa.Value]int
	next  int

	insns  []ir.Instruction
	labels []int
	fixups []fixup

	// fused instructions are emitted by their single user.
	fused map[ssa.Instruction]bool
}

func (f *function) lower() {
	for i, p := range f.fn.Params {
		f.slots[p] = f.body.ParamSlot(i)
	}
	for i, fv := range f.fn.FreeVars {
		f.slots[fv] = f.body.ParamSlot(len(f.fn.Params) + i)
	}
	f.next = f.body.ArgSlots()

	for _, blk := range f.fn.Blocks {
		for _, instr := range blk.Instrs {
			if v, ok := instr.(ssa.Value); ok {
				if size := sortOf(v.Type()).Size(); size > 0 {
					f.slots[v] = f.next
					f.next += size
				}
			}
			f.fuse(instr)
		}
	}

	f.labels = make([]int, len(f.fn.Blocks))
	for _, blk := range f.fn.Blocks {
		f.mark(blk.Index)
		for _, instr := range blk.Instrs {
			if !f.fused[instr] {
				f.instr(blk, instr)
			}
		}
	}

	for _, fix := range f.fixups {
		f.insns[fix.insn].Target = f.labels[fix.label]
	}
	f.body.Insns = f.insns
	f.body.MaxLocals = f.next
}

// fuse marks address computations only used to load or store through them,
// and comparisons only used by the branch ending their block.
func (f *function) fuse(instr ssa.Instruction) {
	switch instr := instr.(type) {
	case *ssa.FieldAddr, *ssa.IndexAddr:
		v := instr.(ssa.Value)
		refs := *v.Referrers()
		if len(refs) == 0 {
			return
		}
		for _, ref := range refs {
			switch ref := ref.(type) {
			case *ssa.Store:
				if ref.Addr != v || ref.Val == v {
					return
				}
			case *ssa.UnOp:
				if ref.Op != token.MUL {
					return
				}
			default:
				return
			}
		}
		f.fused[instr] = true
	case *ssa.BinOp:
		if _, ok := condition(instr.Op); !ok {
			return
		}
		refs := *instr.Referrers()
		if len(refs) != 1 {
			return
		}
		if br, ok := refs[0].(*ssa.If); ok && br.Block() == instr.Block() {
			f.fused[instr] = true
		}
	}
}

func condition(op token.Token) (string, bool) {
	switch op {
	case token.EQL:
		return "eq", true
	case token.NEQ:
		return "ne", true
	case token.LSS:
		return "lt", true
	case token.LEQ:
		return "le", true
	case token.GTR:
		return "gt", true
	case token.GEQ:
		return "ge", true
	}
	return "", false
}

func (f *function) newLabel() int {
	f.labels = append(f.labels, -1)
	return len(f.labels) - 1
}

func (f *function) mark(label int) {
	f.labels[label] = len(f.insns)
}

func (f *function) emit(mnemonic string) *ir.Instruction {
	f.insns = append(f.insns, ir.Make(mnemonic))
	return &f.insns[len(f.insns)-1]
}

func (f *function) jump(mnemonic string, label int) {
	f.fixups = append(f.fixups, fixup{len(f.insns), label})
	f.emit(mnemonic)
}

func (f *function) field(fld ir.Field, static bool) ir.Field {
	f.l.declare(fld, static)
	return fld
}

func (f *function) emitField(mnemonic string, fld ir.Field) {
	f.emit(mnemonic).Field = f.field(fld, mnemonic == "getstatic" || mnemonic == "putstatic")
}

func (f *function) emitNew(t types.Type) {
	f.emit("new").Str = typeName(t)
}

func (f *function) invoke(mnemonic string, m defs.Method) {
	f.emit(mnemonic).Call.Method = m
}

// opaque pushes an unknown value of the given sort.
func (f *function) opaque(s ir.Sort) {
	if s == ir.VoidSort {
		return
	}
	f.emit("iconst_0")
	f.emit("q2" + prefix(s))
}

func (f *function) load(v ssa.Value) {
	switch v := v.(type) {
	case *ssa.Const:
		f.constant(v)
		return
	case *ssa.Global:
		f.emitField("getstatic", addressOf(v))
		return
	case *ssa.Function:
		if len(v.FreeVars) == 0 {
			f.emitNew(v.Type())
			return
		}
	case *ssa.Builtin:
		f.emitNew(v.Type())
		return
	}
	slot, ok := f.slots[v]
	if !ok {
		f.opaque(sortOf(v.Type()))
		return
	}
	s := sortOf(v.Type())
	f.emit(prefix(s) + "load").Local = slot
}

func (f *function) store(v ssa.Value) {
	slot, ok := f.slots[v]
	if !ok {
		return
	}
	f.emit(prefix(sortOf(v.Type())) + "store").Local = slot
}

func (f *function) constant(c *ssa.Const) {
	switch s := sortOf(c.Type()); s {
	case ir.RefSort:
		f.emit("aconst_null")
	case ir.LongSort:
		f.emit("lconst_0")
	case ir.FloatSort:
		f.emit("fconst_0")
	case ir.DoubleSort:
		f.emit("dconst_0")
	default:
		if c.Value != nil && c.Value.Kind() == constant.Bool && constant.BoolVal(c.Value) {
			f.emit("iconst_1")
		} else {
			f.emit("iconst_0")
		}
	}
}

func addressOf(g *ssa.Global) ir.Field {
	return ir.Field{Owner: g.Pkg.Pkg.Path(), Name: "&" + g.Name(), Desc: typeDesc(g.Type())}
}

func globalField(g *ssa.Global) ir.Field {
	return ir.Field{Owner: g.Pkg.Pkg.Path(), Name: g.Name(), Desc: typeDesc(deref(g.Type()))}
}

func structField(fa *ssa.FieldAddr) ir.Field {
	st := deref(fa.X.Type())
	fld := st.Underlying().(*types.Struct).Field(fa.Field)
	return ir.Field{Owner: typeName(st), Name: fld.Name(), Desc: typeDesc(fld.Type())}
}

// pointee is the pseudo-field read and written by *p.
func pointee(p types.Type) ir.Field {
	elem := deref(p)
	return ir.Field{Owner: typeName(elem), Name: "*", Desc: typeDesc(elem)}
}

func (f *function) instr(blk *ssa.BasicBlock, instr ssa.Instruction) {
	switch instr := instr.(type) {
	case *ssa.DebugRef, *ssa.RunDefers, *ssa.Phi:

	case *ssa.Jump:
		f.edge(blk, 0)

	case *ssa.If:
		f.branch(blk, instr)

	case *ssa.Return:
		if len(instr.Results) == 1 {
			f.load(instr.Results[0])
			f.emit(prefix(sortOf(instr.Results[0].Type())) + "return")
		} else {
			f.emit("return")
		}

	case *ssa.Panic:
		f.emitNew(instr.X.Type())
		f.emit("athrow")

	case *ssa.Store:
		f.storeThrough(instr.Addr, instr.Val)

	case *ssa.UnOp:
		f.unop(instr)
		f.store(instr)

	case *ssa.BinOp:
		f.binop(instr)
		f.store(instr)

	case *ssa.Call:
		f.call(&instr.Call, instr.Type())
		f.store(instr)

	case *ssa.Go:
		f.discard(f.call(&instr.Call, instr.Call.Signature().Results()))

	case *ssa.Defer:
		// Deferred calls are modeled where they are registered.
		f.discard(f.call(&instr.Call, instr.Call.Signature().Results()))

	case *ssa.Alloc:
		f.emitNew(deref(instr.Type()))
		f.store(instr)

	case *ssa.MakeSlice, *ssa.MakeMap, *ssa.MakeChan, *ssa.MakeClosure, *ssa.Range:
		v := instr.(ssa.Value)
		f.emitNew(v.Type())
		f.store(v)

	case *ssa.MakeInterface:
		// Boxing a pointer keeps its identity, other values are copied.
		if _, isConst := instr.X.(*ssa.Const); !isConst && sortOf(instr.X.Type()) == ir.RefSort {
			f.load(instr.X)
			f.emit("checkcast").Str = typeName(instr.Type())
		} else {
			f.emitNew(instr.X.Type())
		}
		f.store(instr)

	case *ssa.ChangeType:
		f.retype(instr.X, instr.Type())
		f.store(instr)
	case *ssa.ChangeInterface:
		f.retype(instr.X, instr.Type())
		f.store(instr)
	case *ssa.SliceToArrayPointer:
		f.retype(instr.X, instr.Type())
		f.store(instr)
	case *ssa.Convert:
		f.convert(instr.X, instr.Type())
		f.store(instr)
	case *ssa.MultiConvert:
		f.convert(instr.X, instr.Type())
		f.store(instr)

	case *ssa.TypeAssert:
		if instr.CommaOk {
			f.opaque(ir.IntSort)
		} else {
			// Asserting on a nil interface panics.
			f.load(instr.X)
			f.emitField("getfield", ir.Field{
				Owner: typeName(instr.X.Type()),
				Name:  ".(" + typeName(instr.AssertedType) + ")",
				Desc:  typeDesc(instr.AssertedType),
			})
		}
		f.store(instr)

	case *ssa.Extract:
		f.load(instr.Tuple)
		f.emit("q2" + prefix(sortOf(instr.Type())))
		f.store(instr)

	case *ssa.Field:
		st := instr.X.Type()
		fld := st.Underlying().(*types.Struct).Field(instr.Field)
		f.load(instr.X)
		f.emitField("getfield", ir.Field{Owner: typeName(st), Name: fld.Name(), Desc: typeDesc(fld.Type())})
		f.store(instr)

	case *ssa.Index:
		f.load(instr.X)
		f.load(instr.Index)
		f.emit(prefix(sortOf(instr.Type())) + "aload")
		f.store(instr)

	case *ssa.Lookup:
		// Reading a nil map yields the zero value.
		if instr.CommaOk {
			f.opaque(ir.IntSort)
		} else {
			f.opaque(sortOf(instr.Type()))
		}
		f.store(instr)

	case *ssa.Slice:
		if sortOf(instr.X.Type()) == ir.RefSort && sortOf(instr.Type()) == ir.RefSort {
			f.load(instr.X)
			f.emit("checkcast").Str = typeName(instr.Type())
		} else {
			f.opaque(sortOf(instr.Type()))
		}
		f.store(instr)

	case *ssa.FieldAddr:
		// Taking the address of a field of a nil pointer panics.
		f.load(instr.X)
		fld := structField(instr)
		fld.Name = "&" + fld.Name
		fld.Desc = typeDesc(instr.Type())
		f.emitField("getfield", fld)
		f.store(instr)

	case *ssa.IndexAddr:
		f.load(instr.X)
		f.load(instr.Index)
		f.emit("aaload")
		f.store(instr)

	case *ssa.MapUpdate:
		// Writing to a nil map panics.
		f.load(instr.Map)
		f.emit("iconst_0")
		f.load(instr.Value)
		f.emit(prefix(sortOf(instr.Value.Type())) + "astore")

	case *ssa.Send:
		f.load(instr.Chan)
		f.invoke("invokestatic", builtin("send", "(Lchan;)V"))

	case *ssa.Select:
		f.invoke("invokestatic", defs.Method{Owner: "runtime", Name: "select", Desc: "()V"})
		f.opaque(ir.IntSort)
		f.store(instr)

	case *ssa.Next:
		f.opaque(ir.IntSort)
		f.store(instr)

	default:
		if v, ok := instr.(ssa.Value); ok {
			f.opaque(sortOf(v.Type()))
			f.store(v)
		}
	}
}

func (f *function) discard(s ir.Sort) {
	switch s.Size() {
	case 1:
		f.emit("pop")
	case 2:
		f.emit("pop2")
	}
}

func (f *function) storeThrough(addr, val ssa.Value) {
	switch addr := addr.(type) {
	case *ssa.Global:
		f.load(val)
		f.emitField("putstatic", globalField(addr))
		return
	case *ssa.FieldAddr:
		if f.fused[addr] {
			f.load(addr.X)
			f.load(val)
			f.emitField("putfield", structField(addr))
			return
		}
	case *ssa.IndexAddr:
		if f.fused[addr] {
			f.load(addr.X)
			f.load(addr.Index)
			f.load(val)
			f.emit(prefix(sortOf(val.Type())) + "astore")
			return
		}
	}
	f.load(addr)
	f.load(val)
	f.emitField("putfield", pointee(addr.Type()))
}

func (f *function) unop(instr *ssa.UnOp) {
	s := sortOf(instr.Type())
	switch instr.Op {
	case token.MUL:
		switch x := instr.X.(type) {
		case *ssa.Global:
			f.emitField("getstatic", globalField(x))
			return
		case *ssa.FieldAddr:
			if f.fused[x] {
				f.load(x.X)
				f.emitField("getfield", structField(x))
				return
			}
		case *ssa.IndexAddr:
			if f.fused[x] {
				f.load(x.X)
				f.load(x.Index)
				f.emit(prefix(s) + "aload")
				return
			}
		}
		f.load(instr.X)
		f.emitField("getfield", pointee(instr.X.Type()))
	case token.NOT:
		f.load(instr.X)
		f.emit("iconst_1")
		f.emit("ixor")
	case token.SUB:
		f.load(instr.X)
		f.emit(prefix(s) + "neg")
	case token.XOR:
		f.load(instr.X)
		if s == ir.LongSort {
			f.emit("lconst_1")
			f.emit("lxor")
		} else {
			f.emit("iconst_m1")
			f.emit("ixor")
		}
	case token.ARROW:
		f.load(instr.X)
		f.invoke("invokestatic", builtin("recv", "(Lchan;)V"))
		f.opaque(s)
	default:
		f.opaque(s)
	}
}

var arithmetic = map[token.Token]string{
	token.ADD:     "add",
	token.SUB:     "sub",
	token.MUL:     "mul",
	token.QUO:     "div",
	token.REM:     "rem",
	token.AND:     "and",
	token.OR:      "or",
	token.XOR:     "xor",
	token.SHL:     "shl",
	token.SHR:     "shr",
	token.AND_NOT: "and",
}

func (f *function) binop(instr *ssa.BinOp) {
	if _, ok := condition(instr.Op); ok {
		// Materialize the boolean.
		yes, end := f.newLabel(), f.newLabel()
		f.jump(f.compare(instr.X, instr.Y, instr.Op), yes)
		f.emit("iconst_0")
		f.jump("goto", end)
		f.mark(yes)
		f.emit("iconst_1")
		f.mark(end)
		return
	}

	s := sortOf(instr.Type())
	op, ok := arithmetic[instr.Op]
	switch {
	case !ok || s == ir.RefSort:
		f.opaque(s)
		return
	case (s == ir.FloatSort || s == ir.DoubleSort) && !floatOp(op):
		f.opaque(s)
		return
	}
	f.load(instr.X)
	f.load(instr.Y)
	f.emit(prefix(s) + op)
}

func floatOp(op string) bool {
	switch op {
	case "add", "sub", "mul", "div", "rem":
		return true
	}
	return false
}

func isNil(v ssa.Value) bool {
	c, ok := v.(*ssa.Const)
	return ok && c.Value == nil && sortOf(c.Type()) == ir.RefSort
}

// compare pushes the operands of x op y and returns the branch mnemonic
// that jumps when the comparison holds.
func (f *function) compare(x, y ssa.Value, op token.Token) string {
	cond, _ := condition(op)
	switch sx, sy := sortOf(x.Type()), sortOf(y.Type()); {
	case sx == ir.RefSort || sy == ir.RefSort:
		if isNil(x) {
			x, y = y, x
		}
		if isNil(y) {
			f.load(x)
			if op == token.EQL {
				return "ifnull"
			}
			return "ifnonnull"
		}
		f.load(x)
		f.load(y)
		if op == token.EQL {
			return "if_acmpeq"
		}
		return "if_acmpne"
	case sx == ir.LongSort:
		f.load(x)
		f.load(y)
		f.emit("lcmp")
	case sx == ir.FloatSort:
		f.load(x)
		f.load(y)
		f.emit("fcmpl")
	case sx == ir.DoubleSort:
		f.load(x)
		f.load(y)
		f.emit("dcmpl")
	default:
		f.load(x)
		f.load(y)
		return "if_icmp" + cond
	}
	return "if" + cond
}

func (f *function) branch(blk *ssa.BasicBlock, br *ssa.If) {
	var mnemonic string
	if cmp, ok := br.Cond.(*ssa.BinOp); ok && f.fused[cmp] {
		mnemonic = f.compare(cmp.X, cmp.Y, cmp.Op)
	} else {
		f.load(br.Cond)
		mnemonic = "ifne"
	}

	then := blk.Succs[0]
	if hasPhis(then) {
		label := f.newLabel()
		f.jump(mnemonic, label)
		f.edge(blk, 1)
		f.mark(label)
		f.edge(blk, 0)
		return
	}
	f.jump(mnemonic, then.Index)
	f.edge(blk, 1)
}

func hasPhis(blk *ssa.BasicBlock) bool {
	return len(blk.Instrs) > 0 && isPhi(blk.Instrs[0])
}

func isPhi(instr ssa.Instruction) bool {
	_, ok := instr.(*ssa.Phi)
	return ok
}

// edge emits the phi moves along the i-th successor edge of blk and jumps to
// the successor. All incoming values are pushed before any phi is assigned.
func (f *function) edge(blk *ssa.BasicBlock, i int) {
	succ := blk.Succs[i]
	pred := predIndex(blk, i)

	phis := []*ssa.Phi{}
	for _, instr := range succ.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if _, live := f.slots[phi]; live {
			phis = append(phis, phi)
		}
	}
	for _, phi := range phis {
		f.load(phi.Edges[pred])
	}
	for j := len(phis) - 1; j >= 0; j-- {
		f.store(phis[j])
	}
	f.jump("goto", succ.Index)
}

// predIndex finds which predecessor slot of its i-th successor blk fills.
// Both successors of a branch may be the same block.
func predIndex(blk *ssa.BasicBlock, i int) int {
	succ := blk.Succs[i]
	skip := 0
	for j := 0; j < i; j++ {
		if blk.Succs[j] == succ {
			skip++
		}
	}
	for j, p := range succ.Preds {
		if p == blk {
			if skip == 0 {
				return j
			}
			skip--
		}
	}
	panic(fmt.Errorf("%v is not a predecessor of %v", blk, succ))
}

func (f *function) retype(x ssa.Value, t types.Type) {
	f.load(x)
	if sortOf(x.Type()) == ir.RefSort && sortOf(t) == ir.RefSort {
		f.emit("checkcast").Str = typeName(t)
	}
}

func (f *function) convert(x ssa.Value, t types.Type) {
	from, to := sortOf(x.Type()), sortOf(t)
	switch {
	case from == ir.RefSort && to == ir.RefSort:
		f.retype(x, t)
	case to == ir.RefSort:
		// string to []byte and friends allocate.
		f.emitNew(t)
	case from == ir.RefSort:
		f.opaque(to)
	case prefix(from) == prefix(to):
		f.load(x)
	default:
		f.load(x)
		f.emit(prefix(from) + "2" + prefix(to))
	}
}

func builtin(name, desc string) defs.Method {
	return defs.Method{Owner: "builtin", Name: name, Desc: desc}
}

// builtins that are modeled as calls, so that their effects and nullity
// facts come from the known-facts table.
var builtins = map[string]defs.Method{
	"append": builtin("append", "(Lslice;Lslice;)Lslice;"),
	"copy":   builtin("copy", "(Lslice;Lslice;)J"),
	"delete": builtin("delete", "(Lmap;)V"),
	"clear":  builtin("clear", "(Lslice;)V"),
	"close":  builtin("close", "(Lchan;)V"),
}

// call emits a call and leaves its result, if any, on the stack. It returns
// the sort of the result.
func (f *function) call(c *ssa.CallCommon, typ types.Type) ir.Sort {
	s := sortOf(typ)
	if results, ok := typ.(*types.Tuple); ok && results.Len() == 1 {
		s = sortOf(results.At(0).Type())
	}

	var (
		m    defs.Method
		kind = "invokestatic"
	)
	switch fn := c.Value.(type) {
	case *ssa.Builtin:
		bm, ok := builtins[fn.Name()]
		if !ok {
			f.opaque(s)
			return s
		}
		ps, ret, _ := ir.ParseMethodDesc(bm.Desc)
		for i, arg := range c.Args {
			if i < len(ps) {
				f.load(arg)
			}
		}
		f.invoke("invokestatic", bm)
		if ret.Sort == ir.VoidSort {
			f.opaque(s)
		}
		return s
	}

	switch {
	case c.IsInvoke():
		kind = "invokeinterface"
		m = interfaceMethod(c.Value.Type(), c.Method)
		f.load(c.Value)
		for _, arg := range c.Args {
			f.load(arg)
		}
	case c.StaticCallee() != nil:
		callee := c.StaticCallee()
		m = MethodOf(callee)
		for _, arg := range c.Args {
			f.load(arg)
		}
		if mc, ok := c.Value.(*ssa.MakeClosure); ok {
			for _, b := range mc.Bindings {
				f.load(b)
			}
		}
	default:
		// Calling a nil function value panics, like invoking a method on
		// a nil receiver.
		kind = "invokeinterface"
		sig := c.Signature()
		ps := make([]types.Type, 0, sig.Params().Len())
		for i := 0; i < sig.Params().Len(); i++ {
			ps = append(ps, sig.Params().At(i).Type())
		}
		m = defs.Method{Owner: "func", Name: "call", Desc: sigDesc(ps, sig.Results())}
		f.load(c.Value)
		for _, arg := range c.Args {
			f.load(arg)
		}
	}
	f.invoke(kind, m)
	if _, ret, _ := ir.ParseMethodDesc(m.Desc); ret.Sort == ir.VoidSort {
		// Several results are returned as an opaque tuple.
		f.opaque(s)
	}
	return s
}
