package utils

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

type options struct {
	workers      uint
	stepsLimit   uint
	pendingLimit uint
	program      string
	pkg          string
	outputFormat string
	out          string
	gopath       string
	modulePath   string
	task         string
	metrics      bool
	noColorize   bool
	verbose      bool
	progress     bool
	closedWorld  bool
	includeTests bool
}

const (
	_INFER = iota
	_EQUATIONS
	_DEPS_TO_DOT
	_CHECK_CAN_LOAD
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize || !isatty.IsTerminal(os.Stdout.Fd()) {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"infer",
	"Infer nullity facts, contracts and purity for every method and print them",
}, {
	"equations",
	"Print the equations produced by the per-method engines without solving them",
}, {
	"deps-to-dot",
	"Render the dependency graph between equations",
}, {
	"check-can-load",
	"Load the input program (YAML or Go packages) and lower it, without analyzing it",
}}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}

func (optInterface) Workers() int {
	if opts.workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return int(opts.workers)
}

func (optInterface) StepsLimit() int {
	return int(opts.stepsLimit)
}

func (optInterface) PendingLimit() int {
	return int(opts.pendingLimit)
}

func (optInterface) Program() string {
	return opts.program
}

func (optInterface) Package() string {
	return opts.pkg
}

func (optInterface) OutputFormat() string {
	return opts.outputFormat
}

func (optInterface) Out() string {
	return opts.out
}

func (optInterface) GoPath() string {
	return opts.gopath
}

func (optInterface) ModulePath() string {
	return opts.modulePath
}

func (optInterface) IncludeTests() bool {
	return opts.includeTests
}

func (optInterface) ClosedWorld() bool {
	return opts.closedWorld
}

func (optInterface) Metrics() bool {
	return opts.metrics
}

func (optInterface) Verbose() bool {
	return opts.verbose
}

func (optInterface) Progress() bool {
	return opts.progress
}

func (optInterface) Task() taskInterface {
	return taskInterface{}
}

func (taskInterface) IsInfer() bool {
	return opts.task == task[_INFER].flag
}

func (taskInterface) IsEquations() bool {
	return opts.task == task[_EQUATIONS].flag
}

func (taskInterface) IsDepsToDot() bool {
	return opts.task == task[_DEPS_TO_DOT].flag
}

func (taskInterface) IsCheckCanLoad() bool {
	return opts.task == task[_CHECK_CAN_LOAD].flag
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.UintVar(&(opts.workers), "workers", 0, "Number of per-method engines run in parallel (0 = GOMAXPROCS).")
	flag.UintVar(&(opts.stepsLimit), "steps-limit", 30000, "Maximum number of states one engine run may visit before its fact degrades.")
	flag.UintVar(&(opts.pendingLimit), "pending-limit", 1<<15, "Capacity of the explicit worklist of one engine run.")
	flag.StringVar(&(opts.program), "program", "", "YAML file describing the classes and method bodies to analyze.")
	flag.StringVar(&(opts.pkg), "pkg", "", "Go package pattern to lower from SSA and analyze instead of a YAML program.")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format for deps-to-dot [svg | png | jpg | ...]")
	flag.StringVar(&(opts.out), "out", "", "output file name (without extension) for deps-to-dot")
	flag.StringVar(&(opts.gopath), "gopath", ".", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.task), "task", task[_INFER].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.BoolVar(&(opts.metrics), "metrics", false, "Print engine and solver metrics in Prometheus text format")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output (engine degradations, solver cycles)")
	flag.BoolVar(&(opts.progress), "progress", false, "show a progress bar while the per-method engines run")
	flag.BoolVar(&(opts.closedWorld), "closed-world", false, "assume the program contains every override of its methods")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include test files of the Go packages in the analysis.")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if opts.program == "" && opts.pkg == "" {
		log.Fatalln("One of -program or -pkg must be provided")
	}

	if Opts().Task().IsDepsToDot() {
		opts.noColorize = true
	}
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
