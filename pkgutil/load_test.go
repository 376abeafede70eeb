package pkgutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionsFromSource(t *testing.T) {
	pkgs, err := LoadPackagesFromSource(`
	package main

	type T struct{ x *int }

	func (t *T) Get() *int { return t.x }

	func (t T) Value() *int { return t.x }

	func apply(f func() int) int { return f() }

	func main() {
		apply(func() int { return 1 })
	}`)
	require.NoError(t, err)

	_, spkgs := BuildSSA(pkgs)
	require.Len(t, spkgs, 1)

	names := []string{}
	for _, f := range Functions(spkgs) {
		names = append(names, f.Name())
		assert.False(t, InGoroot(f.Pkg.Pkg))
	}
	assert.ElementsMatch(t, []string{
		"Get",
		"Value",
		"apply",
		"main",
		"main$1",
	}, names)
}

func TestLoadMissingModule(t *testing.T) {
	_, err := LoadPackages(LoadConfig{GoPath: ".", ModulePath: "does-not-exist"}, "./...")
	assert.Error(t, err)
}

func TestModuleName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("// comment\nmodule example.com/m\n\ngo 1.20\n"), 0o644))
	name, err := moduleName(dir)
	require.NoError(t, err)
	assert.Equal(t, "example.com/m", name)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("go 1.20\n"), 0o644))
	_, err = moduleName(dir)
	assert.ErrorIs(t, err, ErrNoModule)
}
