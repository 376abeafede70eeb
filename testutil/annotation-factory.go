package testutil

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/expect"
)

var (
	id_NOTNULL        = "notnull"
	id_NULLABLE       = "nullable"
	id_OUT            = "out"
	id_NULLABLE_OUT   = "nullableOut"
	id_CONTRACT       = "contract"
	id_PURE           = "pure"
	id_IMPURE         = "impure"
	id_MUTATES        = "mutates"
	id_FALSE_NEGATIVE = "fn"
)

// Convert expect.Identifier to string.
func idToStr(x interface{}) string {
	return string(x.(expect.Identifier))
}

type annFactory struct{}

// Factory for creating annotation strings. Interpolate
// results with Go source code. Wrap multiple factory calls
// in the At function to concatenate multiple annotations
// on the same line and prefix with "//@ ". Annotations are placed on the
// line declaring the function they describe.
var Ann = annFactory{}

// Parameter i is dereferenced on every path.
func (annFactory) NotNull(i int) string {
	return fmt.Sprintf("%s(%d)", id_NOTNULL, i)
}

// Parameter i is never dereferenced without a nil check.
func (annFactory) Nullable(i int) string {
	return fmt.Sprintf("%s(%d)", id_NULLABLE, i)
}

// The function returns value v on every path, e.g. Null or NotNull.
func (annFactory) Out(v string) string {
	return id_OUT + "(" + v + ")"
}

// The function may return nil.
func (annFactory) NullableOut() string {
	return id_NULLABLE_OUT
}

// Passing v as parameter i makes the function return r. Used for
// contracts such as null -> false.
func (annFactory) Contract(i int, v, r string) string {
	return fmt.Sprintf("%s(%d, %s, %s)", id_CONTRACT, i, v, r)
}

func (annFactory) Pure() string {
	return id_PURE
}

func (annFactory) Impure() string {
	return id_IMPURE
}

// Mutates specifies the parameters mutated by the function, "this" for
// the receiver of instance methods.
func (annFactory) Mutates(params ...string) string {
	return id_MUTATES + "(" + strings.Join(params, ", ") + ")"
}

// False negative tag: the related facts hold but are not inferred.
func (annFactory) FalseNegative() string {
	return id_FALSE_NEGATIVE
}

// Wrap a list of annotation strings into an annotation comment.
func At(anns ...string) string {
	return "//@ " + strings.Join(anns, ", ")
}
