package pkgutil

import (
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// InGoroot holds for packages of the standard library.
func InGoroot(pkg *types.Package) bool {
	fi, err := os.Stat(filepath.Join(runtime.GOROOT(), "src", pkg.Path()))
	return err == nil && fi.IsDir()
}

// Functions collects the functions with bodies declared in pkgs: package
// level functions, methods of named types and the anonymous functions nested
// in them. Synthetic wrappers, package initializers and standard library
// packages are skipped. The result is sorted by name.
func Functions(pkgs []*ssa.Package) []*ssa.Function {
	seen := map[*ssa.Function]bool{}
	res := []*ssa.Function{}

	var add func(*ssa.Function)
	add = func(f *ssa.Function) {
		if f == nil || seen[f] || f.Synthetic != "" || f.Blocks == nil {
			return
		}
		seen[f] = true
		res = append(res, f)
		for _, anon := range f.AnonFuncs {
			add(anon)
		}
	}

	for _, pkg := range pkgs {
		if strings.HasSuffix(pkg.Pkg.Path(), ".test") || InGoroot(pkg.Pkg) {
			continue
		}
		for _, member := range pkg.Members {
			switch m := member.(type) {
			case *ssa.Function:
				add(m)
			case *ssa.Type:
				for _, typ := range []types.Type{m.Type(), types.NewPointer(m.Type())} {
					mset := pkg.Prog.MethodSets.MethodSet(typ)
					for i := 0; i < mset.Len(); i++ {
						add(pkg.Prog.MethodValue(mset.At(i)))
					}
				}
			}
		}
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].RelString(nil) < res[j].RelString(nil)
	})
	return res
}
