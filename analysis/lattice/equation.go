package lattice

import "github.com/cs-au-dk/contra/analysis/defs"

// Equation binds the result of one engine run to the fact it describes.
type Equation struct {
	Key    defs.Key
	Result Result
}

func (e Equation) String() string {
	return colorize.Key(e.Key.String()) + " = " + e.Result.String()
}

// Lattice of the fact the equation describes.
func (e Equation) Lattice() Lattice {
	return For(e.Key.Dir)
}
