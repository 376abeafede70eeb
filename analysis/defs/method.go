package defs

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/contra/utils"
)

// Method identifies a method by its owner, name and descriptor. The analyses
// never resolve it; it is only compared and hashed.
type Method struct {
	Owner string
	Name  string
	Desc  string
}

func (m Method) String() string {
	return m.Owner + "." + m.Name + m.Desc
}

func (m Method) Hash() uint32 {
	return utils.HashStrings(m.Owner, m.Name, m.Desc)
}

func (m Method) Equal(o Method) bool {
	return m == o
}

// IsConstructor holds for instance initializers.
func (m Method) IsConstructor() bool {
	return m.Name == "<init>"
}

// ParseMethod reads the "owner.name(desc)ret" notation produced by String.
// The owner may itself contain dots; the name starts after the last dot that
// precedes the opening parenthesis.
func ParseMethod(s string) (Method, error) {
	paren := strings.IndexByte(s, '(')
	if paren < 0 {
		return Method{}, fmt.Errorf("method %q: missing descriptor", s)
	}
	dot := strings.LastIndexByte(s[:paren], '.')
	if dot <= 0 || dot == paren-1 {
		return Method{}, fmt.Errorf("method %q: missing owner or name", s)
	}
	return Method{
		Owner: s[:dot],
		Name:  s[dot+1 : paren],
		Desc:  s[paren:],
	}, nil
}

// FieldMethod is the pseudo-method used to key facts about a field (its
// volatility). Fields share the key space with methods, the descriptor
// carries no parenthesis so the two can never collide.
func FieldMethod(owner, name, desc string) Method {
	return Method{Owner: owner, Name: name, Desc: desc}
}
