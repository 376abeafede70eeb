package lower

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/pkgutil"
)

func TestLowerShapes(t *testing.T) {
	pkgs, err := pkgutil.LoadPackagesFromSource(`
	package main

	type T struct{ next *T }

	func (t *T) Next() *T { return t.next }

	func pick(c bool, a, b *T) *T {
		x := a
		if c {
			x = b
		}
		return x
	}

	func main() {}`)
	require.NoError(t, err)
	_, spkgs := pkgutil.BuildSSA(pkgs)

	l := New()
	for _, fn := range pkgutil.Functions(spkgs) {
		b, err := l.Function(fn)
		require.NoError(t, err)
		require.NotEmpty(t, b.Insns)
		last := b.Insns[len(b.Insns)-1]
		assert.False(t, last.FallsThrough(), "%v ends with %v", b.Method, last)

		switch fn.Name() {
		case "Next":
			assert.True(t, strings.HasSuffix(b.Method.Owner, ".T"))
			assert.Equal(t, "(L*command-line-arguments.T;)L*command-line-arguments.T;", b.Method.Desc)
			assert.True(t, b.IsStatic())
			ops := []ir.Op{}
			for _, in := range b.Insns {
				ops = append(ops, in.Op)
			}
			assert.Contains(t, ops, ir.GetField)
		case "pick":
			assert.Len(t, b.Params, 3)
			assert.Equal(t, ir.BooleanSort, b.Params[0].Sort)
		}
	}

	prog, err := l.Program()
	require.NoError(t, err)
	_, ok := prog.ResolveField(ir.Field{Owner: "command-line-arguments.T", Name: "next", Desc: "L*command-line-arguments.T;"})
	assert.True(t, ok, "accessed fields are declared")
}
