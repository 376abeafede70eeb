package defs

import (
	"fmt"
	"strconv"
	"strings"
)

// DirectionKind is the discriminant of Direction.
type DirectionKind uint8

const (
	In DirectionKind = iota
	InOut
	Out
	NullableOut
	Pure
	Volatile
)

// Nullity selects which parameter fact an In direction infers.
type Nullity uint8

const (
	NotNullParam Nullity = iota
	NullableParam
)

func (n Nullity) String() string {
	if n == NullableParam {
		return "Nullable"
	}
	return "NotNull"
}

// Direction says which fact about a method is inferred.
//
//	In(i, n)     parameter i is NotNull (must not be null) / Nullable (accepts null)
//	InOut(i, v)  value returned when parameter i is v
//	Out          value returned unconditionally
//	NullableOut  whether null may be returned
//	Pure         side effects of the method
//	Volatile     whether a field is volatile (fields only)
//
// Param, Nullity and Value are only meaningful for the kinds that use them and
// are zero otherwise, so that structural equality is exact.
type Direction struct {
	Kind    DirectionKind
	Param   int
	Nullity Nullity
	Value   Value
}

func InDir(param int, n Nullity) Direction {
	return Direction{Kind: In, Param: param, Nullity: n}
}

func InOutDir(param int, v Value) Direction {
	return Direction{Kind: InOut, Param: param, Value: v}
}

func OutDir() Direction {
	return Direction{Kind: Out}
}

func NullableOutDir() Direction {
	return Direction{Kind: NullableOut}
}

func PureDir() Direction {
	return Direction{Kind: Pure}
}

func VolatileDir() Direction {
	return Direction{Kind: Volatile}
}

// HasParam holds for the directions that refer to a parameter.
func (d Direction) HasParam() bool {
	return d.Kind == In || d.Kind == InOut
}

func (d Direction) String() string {
	switch d.Kind {
	case In:
		return fmt.Sprintf("In(%d,%s)", d.Param, d.Nullity)
	case InOut:
		return fmt.Sprintf("InOut(%d,%s)", d.Param, d.Value)
	case Out:
		return "Out"
	case NullableOut:
		return "NullableOut"
	case Pure:
		return "Pure"
	case Volatile:
		return "Volatile"
	}
	return fmt.Sprintf("Direction(%d)", d.Kind)
}

// Code packs the direction into 30 bits:
//
//	bits 0-2   kind
//	bit  3     nullity
//	bits 4-6   value
//	bits 7-29  parameter index
func (d Direction) Code() uint32 {
	return uint32(d.Kind) |
		uint32(d.Nullity)<<3 |
		uint32(d.Value)<<4 |
		uint32(d.Param)<<7
}

// MaxParams bounds the parameter indices that survive Code.
const MaxParams = 1 << 23

// DirectionFromCode is the inverse of Code.
func DirectionFromCode(c uint32) Direction {
	return Direction{
		Kind:    DirectionKind(c & 0x7),
		Nullity: Nullity((c >> 3) & 0x1),
		Value:   Value((c >> 4) & 0x7),
		Param:   int(c >> 7),
	}
}

// ParseDirection reads the textual forms used by the known-facts table:
// "out", "nullable-out", "pure", "volatile", "in:<i>:notnull",
// "in:<i>:nullable" and "inout:<i>:<value>".
func ParseDirection(s string) (Direction, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), ":")
	switch parts[0] {
	case "out":
		return OutDir(), nil
	case "nullable-out":
		return NullableOutDir(), nil
	case "pure":
		return PureDir(), nil
	case "volatile":
		return VolatileDir(), nil
	case "in", "inout":
		if len(parts) != 3 {
			return Direction{}, fmt.Errorf("direction %q: expected %s:<param>:<value>", s, parts[0])
		}
		param, err := strconv.Atoi(parts[1])
		if err != nil || param < 0 || param >= MaxParams {
			return Direction{}, fmt.Errorf("direction %q: bad parameter index", s)
		}
		if parts[0] == "in" {
			switch parts[2] {
			case "notnull":
				return InDir(param, NotNullParam), nil
			case "nullable":
				return InDir(param, NullableParam), nil
			}
			return Direction{}, fmt.Errorf("direction %q: expected notnull or nullable", s)
		}
		v, err := ParseValue(parts[2])
		if err != nil {
			return Direction{}, fmt.Errorf("direction %q: %w", s, err)
		}
		return InOutDir(param, v), nil
	}
	return Direction{}, fmt.Errorf("unknown direction %q", s)
}
