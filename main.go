package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cs-au-dk/contra/analysis/absint"
	"github.com/cs-au-dk/contra/analysis/cfg"
	"github.com/cs-au-dk/contra/analysis/ir"
	"github.com/cs-au-dk/contra/analysis/lower"
	"github.com/cs-au-dk/contra/pkgutil"
	"github.com/cs-au-dk/contra/utils"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

// loadProgram reads the YAML program given by -program, or lowers the Go
// packages matching -pkg.
func loadProgram() (*ir.Program, error) {
	defer utils.TimeTrack(time.Now(), "Loading")

	if path := opts.Program(); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ir.LoadProgram(f)
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, opts.Package())
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", opts.Package(), err)
	}

	_, spkgs := pkgutil.BuildSSA(pkgs)
	prog, errs := lower.Program(pkgutil.Functions(spkgs))
	opts.OnVerbose(func() {
		for _, err := range errs {
			log.Println("Skipped:", err)
		}
	})
	if prog == nil {
		return nil, fmt.Errorf("lowering %s: %d functions failed", opts.Package(), len(errs))
	}
	if len(errs) > 0 {
		log.Printf("Skipped %d functions that could not be lowered", len(errs))
	}
	return prog, nil
}

func main() {
	utils.ParseArgs()
	if opts.Verbose() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	prog, err := loadProgram()
	if err != nil {
		log.Println("Failed to load the program")
		log.Fatalln(err)
	}

	if task.IsCheckCanLoad() {
		methods, unreachable := 0, 0
		for _, b := range prog.Bodies() {
			if !b.HasCode() {
				continue
			}
			methods++
			for _, r := range cfg.Reachable(cfg.Build(b)) {
				if !r {
					unreachable++
				}
			}
		}
		fmt.Printf("%d classes, %d methods with code, %d unreachable instructions\n",
			len(prog.Classes), methods, unreachable)
		return
	}

	pl := pipeline{
		prog: prog,
		config: config{
			workers: opts.Workers(),
			limits: absint.Limits{
				StepsLimit:   opts.StepsLimit(),
				PendingLimit: opts.PendingLimit(),
			},
			closedWorld: opts.ClosedWorld(),
			progress:    opts.Progress(),
		},
		metrics: newRunMetrics(),
	}
	ctx := context.Background()

	if !pl.secondaryTask(ctx) {
		sol, err := pl.run(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		report{w: os.Stdout, colorize: !opts.NoColorize()}.print(prog, sol)
	}

	if opts.Metrics() {
		pl.metrics.write(os.Stdout)
	}
}
