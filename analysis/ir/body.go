package ir

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/contra/analysis/defs"
)

// Access is a set of access flags.
type Access uint16

const (
	AccPublic Access = 1 << iota
	AccPrivate
	AccProtected
	AccStatic
	AccFinal
	AccAbstract
	AccNative
	AccVolatile
	AccInterface
	AccSynthetic
)

var accessNames = []struct {
	flag Access
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccAbstract, "abstract"},
	{AccNative, "native"},
	{AccVolatile, "volatile"},
	{AccInterface, "interface"},
	{AccSynthetic, "synthetic"},
}

func (a Access) Has(flags Access) bool {
	return a&flags == flags
}

func (a Access) String() string {
	strs := []string{}
	for _, acc := range accessNames {
		if a.Has(acc.flag) {
			strs = append(strs, acc.name)
		}
	}
	return strings.Join(strs, " ")
}

// ParseAccess reads flag names such as "private" or "static".
func ParseAccess(names ...string) (Access, error) {
	var a Access
outer:
	for _, name := range names {
		for _, acc := range accessNames {
			if acc.name == name {
				a |= acc.flag
				continue outer
			}
		}
		return 0, fmt.Errorf("unknown access flag %q", name)
	}
	return a, nil
}

// Handler covers the instructions [Start, End) and transfers control to
// Handler when one of them throws.
type Handler struct {
	Start, End, Handler int
	// Type is the caught class, empty for catch-all handlers.
	Type string
}

// Body is a method with its decoded instructions.
type Body struct {
	Method   defs.Method
	Access   Access
	Params   []Type
	Ret      Type
	Insns    []Instruction
	Handlers []Handler
	// MaxLocals is the number of local variable slots.
	MaxLocals int
}

// NewBody parses the descriptor of m and sizes the locals for the
// parameters; the instructions are attached afterwards.
func NewBody(m defs.Method, access Access) (*Body, error) {
	params, ret, err := ParseMethodDesc(m.Desc)
	if err != nil {
		return nil, fmt.Errorf("method %v: %w", m, err)
	}
	b := &Body{Method: m, Access: access, Params: params, Ret: ret}
	b.MaxLocals = b.ArgSlots()
	return b, nil
}

func (b *Body) IsStatic() bool {
	return b.Access.Has(AccStatic)
}

// HasCode is false for abstract and native methods.
func (b *Body) HasCode() bool {
	return !b.Access.Has(AccAbstract) && !b.Access.Has(AccNative) && len(b.Insns) > 0
}

// Overridable holds for virtual methods that a subclass may override.
func (b *Body) Overridable() bool {
	return !b.IsStatic() && !b.Access.Has(AccPrivate) && !b.Access.Has(AccFinal) &&
		!b.Method.IsConstructor()
}

// ArgSlots is the number of local slots taken by the receiver and the
// parameters.
func (b *Body) ArgSlots() int {
	n := 0
	if !b.IsStatic() {
		n++
	}
	for _, p := range b.Params {
		n += p.Sort.Size()
	}
	return n
}

// ParamSlot is the local slot holding parameter i.
func (b *Body) ParamSlot(i int) int {
	n := 0
	if !b.IsStatic() {
		n++
	}
	for _, p := range b.Params[:i] {
		n += p.Sort.Size()
	}
	return n
}

// HasExceptionalFlow holds when some instruction is covered by a handler.
func (b *Body) HasExceptionalFlow() bool {
	return len(b.Handlers) > 0
}

func (b *Body) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v %v\n", b.Access, b.Method)
	for i, in := range b.Insns {
		fmt.Fprintf(&sb, "%4d: %v\n", i, in)
	}
	for _, h := range b.Handlers {
		fmt.Fprintf(&sb, "catch [%d, %d) -> %d %s\n", h.Start, h.End, h.Handler, h.Type)
	}
	return sb.String()
}

// FieldDecl is a field declared by a class.
type FieldDecl struct {
	Name   string
	Desc   string
	Access Access
}

// Class groups methods and fields under one owner.
type Class struct {
	Name       string
	Super      string
	Interfaces []string
	Access     Access
	Fields     []FieldDecl
	Methods    []*Body
}

func (c *Class) Field(name, desc string) (FieldDecl, bool) {
	for _, f := range c.Fields {
		if f.Name == name && f.Desc == desc {
			return f, true
		}
	}
	return FieldDecl{}, false
}

func (c *Class) FieldRef(f FieldDecl) Field {
	return Field{Owner: c.Name, Name: f.Name, Desc: f.Desc}
}
