package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Sort is the runtime representation class of a value.
type Sort uint8

const (
	VoidSort Sort = iota
	BooleanSort
	IntSort
	LongSort
	FloatSort
	DoubleSort
	RefSort
)

var sortNames = [...]string{
	VoidSort:    "void",
	BooleanSort: "boolean",
	IntSort:     "int",
	LongSort:    "long",
	FloatSort:   "float",
	DoubleSort:  "double",
	RefSort:     "ref",
}

func (s Sort) String() string {
	if int(s) < len(sortNames) {
		return sortNames[s]
	}
	return fmt.Sprintf("Sort(%d)", uint8(s))
}

// Size is the number of stack or local slots a value of the sort occupies.
func (s Sort) Size() int {
	switch s {
	case VoidSort:
		return 0
	case LongSort, DoubleSort:
		return 2
	}
	return 1
}

// Type is a parsed field descriptor.
type Type struct {
	Sort Sort
	Desc string
}

func (t Type) String() string {
	return t.Desc
}

func (t Type) IsRef() bool {
	return t.Sort == RefSort
}

func (t Type) IsBoolean() bool {
	return t.Sort == BooleanSort
}

var (
	ErrBadDescriptor = errors.New("malformed descriptor")
)

// ParseType reads one field descriptor, e.g. "I", "[J" or "Ljava/lang/String;".
// "Q<name>;" denotes an opaque value type that can never be null, such as a
// Go string or struct.
func ParseType(desc string) (Type, error) {
	t, rest, err := parseType(desc)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, fmt.Errorf("%q: trailing %q: %w", desc, rest, ErrBadDescriptor)
	}
	return t, nil
}

func parseType(desc string) (Type, string, error) {
	if desc == "" {
		return Type{}, "", fmt.Errorf("empty type: %w", ErrBadDescriptor)
	}
	var sort Sort
	switch desc[0] {
	case 'V':
		sort = VoidSort
	case 'Z':
		sort = BooleanSort
	case 'B', 'C', 'S', 'I':
		sort = IntSort
	case 'J':
		sort = LongSort
	case 'F':
		sort = FloatSort
	case 'D':
		sort = DoubleSort
	case 'L':
		end := strings.IndexByte(desc, ';')
		if end < 2 {
			return Type{}, "", fmt.Errorf("%q: unterminated class type: %w", desc, ErrBadDescriptor)
		}
		return Type{RefSort, desc[:end+1]}, desc[end+1:], nil
	case 'Q':
		end := strings.IndexByte(desc, ';')
		if end < 2 {
			return Type{}, "", fmt.Errorf("%q: unterminated value type: %w", desc, ErrBadDescriptor)
		}
		return Type{IntSort, desc[:end+1]}, desc[end+1:], nil
	case '[':
		elem, rest, err := parseType(desc[1:])
		if err != nil {
			return Type{}, "", err
		}
		if elem.Sort == VoidSort {
			return Type{}, "", fmt.Errorf("%q: array of void: %w", desc, ErrBadDescriptor)
		}
		return Type{RefSort, "[" + elem.Desc}, rest, nil
	default:
		return Type{}, "", fmt.Errorf("%q: unknown type tag %q: %w", desc, desc[0], ErrBadDescriptor)
	}
	return Type{sort, desc[:1]}, desc[1:], nil
}

// ParseMethodDesc splits a method descriptor such as "(ILjava/lang/Object;)Z"
// into parameter types and return type.
func ParseMethodDesc(desc string) (params []Type, ret Type, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, Type{}, fmt.Errorf("%q: expected '(': %w", desc, ErrBadDescriptor)
	}
	rest := desc[1:]
	for {
		if rest == "" {
			return nil, Type{}, fmt.Errorf("%q: expected ')': %w", desc, ErrBadDescriptor)
		}
		if rest[0] == ')' {
			break
		}
		var t Type
		if t, rest, err = parseType(rest); err != nil {
			return nil, Type{}, fmt.Errorf("%q: %w", desc, err)
		}
		if t.Sort == VoidSort {
			return nil, Type{}, fmt.Errorf("%q: void parameter: %w", desc, ErrBadDescriptor)
		}
		params = append(params, t)
	}
	if ret, err = ParseType(rest[1:]); err != nil {
		return nil, Type{}, fmt.Errorf("%q: %w", desc, err)
	}
	return params, ret, nil
}
