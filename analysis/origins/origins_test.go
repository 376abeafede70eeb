package origins_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cs-au-dk/contra/analysis/cfg"
	. "github.com/cs-au-dk/contra/analysis/origins"
	tu "github.com/cs-au-dk/contra/testutil"
)

func TestOrigins(t *testing.T) {
	for _, test := range []struct {
		name, desc, code string
		relevant         []int
		leaks            []bool
	}{
		{
			"checked", "(Ljava/lang/Object;)Ljava/lang/Object;", `
				aload 0
				ifnull isNull
				aload 0
				invokevirtual java/lang/Object.toString()Ljava/lang/String;
				areturn
				isNull: aconst_null
				areturn`,
			[]int{3, 5}, []bool{true},
		},
		{
			// Moving a parameter around does not use it; returning it does.
			"moves", "(Ljava/lang/Object;Ljava/lang/Object;)Ljava/lang/Object;", `
				aload 1
				astore 2
				aload 0
				checkcast java/lang/String
				areturn`,
			[]int{}, []bool{true, false},
		},
		{
			"merge", "(Z)Ljava/lang/Object;", `
				iload 0
				ifeq none
				ldc "x"
				goto done
				none: aconst_null
				done: areturn`,
			[]int{2, 4}, []bool{true},
		},
		{
			"void", "(Ljava/lang/Object;)V", `
				aload 0
				pop
				return`,
			[]int{}, []bool{false},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			b := tu.Body(t, "m", test.desc, test.code, "static")
			o := Analyze(b, cfg.Build(b))

			assert.Equal(t, test.relevant, o.Relevant())
			for n, leaks := range test.leaks {
				assert.Equal(t, leaks, o.Leaks(n), "parameter %d", n)
			}
			assert.False(t, o.Leaks(len(test.leaks)))
			assert.False(t, o.ResultRelevant(len(b.Insns)))
		})
	}
}
