// Package pkgutil loads Go packages and builds their SSA form for lowering.
package pkgutil

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	ErrNoModule   = errors.New("no module declaration in go.mod")
	ErrLoadFailed = errors.New("errors encountered while loading packages")
)

// LoadConfig selects module-aware loading from ModulePath when it is set,
// and GOPATH mode from GoPath otherwise.
type LoadConfig struct {
	GoPath, ModulePath string
	IncludeTests       bool
}

// Everything SSA construction needs.
const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedDeps

var moduleDecl = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// moduleName reads the module path declared in dir/go.mod.
func moduleName(dir string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", err
	}
	m := moduleDecl.FindSubmatch(contents)
	if m == nil {
		return "", fmt.Errorf("%s: %w", dir, ErrNoModule)
	}
	return string(m[1]), nil
}

// parseRelative parses files under names relative to the working directory,
// so reported positions do not depend on where the checkout lives.
func parseRelative(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, filename); err == nil {
			filename = rel
		}
	}
	return parser.ParseFile(fset, filename, src, parser.AllErrors|parser.ParseComments)
}

func (cfg LoadConfig) packagesConfig() (*packages.Config, error) {
	gopath, err := filepath.Abs(cfg.GoPath)
	if err != nil {
		return nil, err
	}
	pc := &packages.Config{
		Mode:      loadMode,
		Tests:     cfg.IncludeTests,
		ParseFile: parseRelative,
		Env:       append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=off"),
	}
	if cfg.ModulePath == "" {
		return pc, nil
	}

	dir, err := filepath.Abs(cfg.ModulePath)
	if err != nil {
		return nil, err
	}
	if _, err := moduleName(dir); err != nil {
		return nil, fmt.Errorf("loading module at %s: %w", cfg.ModulePath, err)
	}
	pc.Dir = dir
	pc.Env[len(pc.Env)-1] = "GO111MODULE=on"
	return pc, nil
}

// LoadPackages loads the packages matching pattern.
func LoadPackages(cfg LoadConfig, pattern string) ([]*packages.Package, error) {
	pc, err := cfg.packagesConfig()
	if err != nil {
		return nil, err
	}
	return load(pc, pattern)
}

// LoadPackagesFromSource loads a single file main package held in memory.
func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	const file = "/fake/testpackage/main.go"
	return load(&packages.Config{
		Mode:    loadMode,
		Env:     append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{file: []byte(source)},
	}, file)
}

func load(pc *packages.Config, pattern string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(pc, pattern)
	switch {
	case err != nil:
		return nil, err
	case packages.PrintErrors(pkgs) > 0:
		return nil, ErrLoadFailed
	case pc.Tests:
		return withoutTestDuplicates(pkgs), nil
	}
	return pkgs, nil
}

// withoutTestDuplicates drops a package when its test variant, which also
// holds the non-test files, was loaded as well.
func withoutTestDuplicates(pkgs []*packages.Package) []*packages.Package {
	ids := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		ids[pkg.ID] = true
	}
	res := pkgs[:0:0]
	for _, pkg := range pkgs {
		if !ids[pkg.ID+" ["+pkg.ID+".test]"] {
			res = append(res, pkg)
		}
	}
	return res
}

// BuildSSA builds the SSA program of the loaded packages and their
// dependencies, and returns the SSA packages of pkgs.
func BuildSSA(pkgs []*packages.Package) (*ssa.Program, []*ssa.Package) {
	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	res := spkgs[:0:0]
	for _, p := range spkgs {
		if p != nil {
			res = append(res, p)
		}
	}
	return prog, res
}
