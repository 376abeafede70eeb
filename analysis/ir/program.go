package ir

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cs-au-dk/contra/analysis/defs"
)

// Program is a closed set of classes.
type Program struct {
	Classes []*Class

	byName  map[string]*Class
	methods map[defs.Method]*Body
	// subs maps a class or interface to its direct subtypes.
	subs map[string][]string
}

// NewProgram indexes the classes. Later classes with a duplicate name are
// rejected.
func NewProgram(classes ...*Class) (*Program, error) {
	p := &Program{
		byName:  make(map[string]*Class),
		methods: make(map[defs.Method]*Body),
		subs:    make(map[string][]string),
	}
	for _, c := range classes {
		if err := p.add(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Program) add(c *Class) error {
	if _, dup := p.byName[c.Name]; dup {
		return fmt.Errorf("class %s declared twice", c.Name)
	}
	p.Classes = append(p.Classes, c)
	p.byName[c.Name] = c
	for _, b := range c.Methods {
		if _, dup := p.methods[b.Method]; dup {
			return fmt.Errorf("method %v declared twice", b.Method)
		}
		p.methods[b.Method] = b
	}
	if c.Super != "" {
		p.subs[c.Super] = append(p.subs[c.Super], c.Name)
	}
	for _, itf := range c.Interfaces {
		p.subs[itf] = append(p.subs[itf], c.Name)
	}
	return nil
}

func (p *Program) Class(name string) (*Class, bool) {
	c, ok := p.byName[name]
	return c, ok
}

func (p *Program) Body(m defs.Method) (*Body, bool) {
	b, ok := p.methods[m]
	return b, ok
}

// Bodies lists every method of the program in declaration order.
func (p *Program) Bodies() []*Body {
	bodies := []*Body{}
	for _, c := range p.Classes {
		bodies = append(bodies, c.Methods...)
	}
	return bodies
}

// Resolve looks m up in its owner and then in the superclasses, the way a
// virtual call is linked.
func (p *Program) Resolve(m defs.Method) (*Body, bool) {
	seen := map[string]bool{}
	for owner := m.Owner; owner != "" && !seen[owner]; {
		seen[owner] = true
		if b, ok := p.methods[defs.Method{Owner: owner, Name: m.Name, Desc: m.Desc}]; ok {
			return b, true
		}
		c, ok := p.byName[owner]
		if !ok {
			break
		}
		owner = c.Super
	}
	return nil, false
}

// ResolveField finds the declaration of f in its owner or a superclass.
func (p *Program) ResolveField(f Field) (FieldDecl, bool) {
	seen := map[string]bool{}
	for owner := f.Owner; owner != "" && !seen[owner]; {
		seen[owner] = true
		c, ok := p.byName[owner]
		if !ok {
			break
		}
		if decl, ok := c.Field(f.Name, f.Desc); ok {
			return decl, true
		}
		owner = c.Super
	}
	return FieldDecl{}, false
}

// Overriders lists the methods of proper subtypes of m's owner that
// override m, sorted by name.
func (p *Program) Overriders(m defs.Method) []*Body {
	res := []*Body{}
	seen := map[string]bool{m.Owner: true}
	queue := append([]string(nil), p.subs[m.Owner]...)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		queue = append(queue, p.subs[name]...)

		b, ok := p.methods[defs.Method{Owner: name, Name: m.Name, Desc: m.Desc}]
		if ok && !b.IsStatic() && !b.Access.Has(AccPrivate) {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Method.String() < res[j].Method.String()
	})
	return res
}

// Devirtualize marks virtual and interface call sites whose resolved target
// is private or final, or is declared in a final class. Returns the number
// of call sites marked.
func (p *Program) Devirtualize() (n int) {
	for _, b := range p.Bodies() {
		for i := range b.Insns {
			in := &b.Insns[i]
			if in.Op != Invoke || in.Call.Stable() {
				continue
			}
			target, ok := p.Resolve(in.Call.Method)
			if !ok {
				continue
			}
			final := target.Access.Has(AccPrivate) || target.Access.Has(AccFinal)
			if c, ok := p.byName[target.Method.Owner]; ok && c.Access.Has(AccFinal) {
				final = true
			}
			if final {
				in.Call.Devirtualized = true
				n++
			}
		}
	}
	return
}

// OwnedFields lists the private instance fields that are only ever assigned
// freshly allocated objects by their own class.
func (p *Program) OwnedFields() map[Field]bool {
	owned := map[Field]bool{}
	for _, c := range p.Classes {
		for _, f := range c.Fields {
			if f.Access.Has(AccPrivate) && !f.Access.Has(AccStatic) && f.Type().IsRef() {
				owned[c.FieldRef(f)] = true
			}
		}
	}
	for _, b := range p.Bodies() {
		for i, in := range b.Insns {
			if in.Op != PutField || !owned[in.Field] {
				continue
			}
			if !storesFresh(b, i) {
				delete(owned, in.Field)
			}
		}
	}
	return owned
}

func (f FieldDecl) Type() Type {
	t, err := ParseType(f.Desc)
	if err != nil {
		return Type{RefSort, f.Desc}
	}
	return t
}

// storesFresh recognizes the allocation idiom preceding a putfield:
//
//	new C; dup; <constructor arguments>; invokespecial C.<init>; putfield
//
// or a directly stored newarray.
func storesFresh(b *Body, i int) bool {
	if i == 0 {
		return false
	}
	prev := b.Insns[i-1]
	switch {
	case prev.Op == NewArray:
		return true
	case prev.Op == Invoke && prev.Call.Kind == InvokeSpecial && prev.Call.Method.IsConstructor():
		// Walk back over the argument computations to the allocation.
		for j := i - 2; j >= 0; j-- {
			in := b.Insns[j]
			if in.Op == Dup && j > 0 && b.Insns[j-1].Op == New &&
				b.Insns[j-1].Str == prev.Call.Method.Owner {
				return true
			}
			if in.Op == Invoke && in.Call.Method.IsConstructor() || in.Op == PutField ||
				!in.FallsThrough() || in.IsBranch() {
				return false
			}
		}
	}
	return false
}

// yaml input

type programYAML struct {
	Classes []classYAML `yaml:"classes"`
}

type classYAML struct {
	Name       string       `yaml:"name"`
	Super      string       `yaml:"super"`
	Interfaces []string     `yaml:"interfaces"`
	Access     []string     `yaml:"access"`
	Fields     []fieldYAML  `yaml:"fields"`
	Methods    []methodYAML `yaml:"methods"`
}

type fieldYAML struct {
	Name   string   `yaml:"name"`
	Desc   string   `yaml:"desc"`
	Access []string `yaml:"access"`
}

type methodYAML struct {
	Name   string   `yaml:"name"`
	Desc   string   `yaml:"desc"`
	Access []string `yaml:"access"`
	Code   string   `yaml:"code"`
}

// LoadProgram decodes a YAML program description and assembles the code of
// every method.
func LoadProgram(r io.Reader) (*Program, error) {
	var in programYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding program: %w", err)
	}

	classes := make([]*Class, 0, len(in.Classes))
	for _, cy := range in.Classes {
		c, err := cy.build()
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", cy.Name, err)
		}
		classes = append(classes, c)
	}
	return NewProgram(classes...)
}

func (cy classYAML) build() (*Class, error) {
	if cy.Name == "" {
		return nil, fmt.Errorf("missing class name")
	}
	access, err := ParseAccess(cy.Access...)
	if err != nil {
		return nil, err
	}
	c := &Class{
		Name:       cy.Name,
		Super:      cy.Super,
		Interfaces: cy.Interfaces,
		Access:     access,
	}
	for _, fy := range cy.Fields {
		access, err := ParseAccess(fy.Access...)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fy.Name, err)
		}
		if _, err := ParseType(fy.Desc); err != nil {
			return nil, fmt.Errorf("field %s: %w", fy.Name, err)
		}
		c.Fields = append(c.Fields, FieldDecl{Name: fy.Name, Desc: fy.Desc, Access: access})
	}
	for _, my := range cy.Methods {
		access, err := ParseAccess(my.Access...)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", my.Name, err)
		}
		b, err := NewBody(defs.Method{Owner: c.Name, Name: my.Name, Desc: my.Desc}, access)
		if err != nil {
			return nil, err
		}
		if my.Code != "" {
			if err := Assemble(b, my.Code); err != nil {
				return nil, fmt.Errorf("method %s%s: %w", my.Name, my.Desc, err)
			}
		}
		c.Methods = append(c.Methods, b)
	}
	return c, nil
}
