package lattice

import (
	"github.com/fatih/color"

	"github.com/cs-au-dk/contra/utils"
)

var colorize = struct {
	Lattice func(...interface{}) string
	Value   func(...interface{}) string
	Key     func(...interface{}) string
	Effect  func(...interface{}) string
}{
	Lattice: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Value: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Key: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
	Effect: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
}
