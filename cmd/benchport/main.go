// Command benchport runs the sample benchmarks against the reference
// kernel and prints a result table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rtbench/hal"
	"rtbench/internal/buildinfo"
	"rtbench/internal/suite"
	"rtbench/kernel"
)

type options struct {
	iterations int
	tick       time.Duration
	counter    string
	counterHz  uint64
	benches    string
	parallel   int
	logLevel   string
	logDev     bool
	version    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fatalf("benchport: %v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("benchport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&o.iterations, "iterations", 1000, "Samples per benchmark.")
	fs.DurationVar(&o.tick, "tick", hal.DefaultTickPeriod, "Tick interrupt period.")
	fs.StringVar(&o.counter, "counter", "host", "Cycle counter: host|clock.")
	fs.Uint64Var(&o.counterHz, "counter-hz", 0, "Present the counter at this rate in Hz, e.g. a core clock. 0 keeps its own rate.")
	fs.StringVar(&o.benches, "bench", "all", "Comma separated benchmarks to run.")
	fs.IntVar(&o.parallel, "parallel", 1, "Benchmarks to run at once, each on its own kernel.")
	fs.StringVar(&o.logLevel, "log-level", "warn", "Log level (debug|info|warn|error).")
	fs.BoolVar(&o.logDev, "log-dev", false, "Human-readable log output.")
	fs.BoolVar(&o.version, "version", false, "Print version and exit.")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.iterations <= 0 {
		return o, fmt.Errorf("-iterations must be positive, got %d", o.iterations)
	}
	if o.parallel <= 0 {
		o.parallel = runtime.GOMAXPROCS(0)
	}
	return o, nil
}

func newCounter(name string) (hal.Counter, error) {
	switch strings.ToLower(name) {
	case "host", "":
		return hal.HostCounter(), nil
	case "clock":
		return hal.ClockCounter(clock.New()), nil
	default:
		return nil, fmt.Errorf("unknown counter %q", name)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.version {
		_, err := fmt.Fprintln(stdout, "benchport", buildinfo.String())
		return err
	}

	log, err := hal.NewLogger(hal.LogConfig{Level: o.logLevel, Output: stderr, Development: o.logDev})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	benches, err := suite.Select(o.benches)
	if err != nil {
		return err
	}
	counter, err := newCounter(o.counter)
	if err != nil {
		return err
	}
	counter = hal.Rescale(counter, o.counterHz)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prm := suite.Params{
		Iterations: o.iterations,
		High:       kernel.DefaultMainPriority - 5,
		Low:        kernel.DefaultMainPriority + 5,
	}
	log.Info("starting",
		zap.String("version", buildinfo.Short()),
		zap.Int("benchmarks", len(benches)),
		zap.Int("iterations", o.iterations),
		zap.String("counter", counter.Name()),
	)

	results := make([]suite.Result, len(benches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)
	for i, b := range benches {
		i, b := i, b
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := kernel.DefaultConfig()
			cfg.TickPeriod = o.tick
			cfg.Counter = counter
			cfg.Logger = log.With(zap.String("bench", b.Name))
			res, err := b.Run(kernel.New(cfg), prm)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeTable(stdout, results)
}

func writeTable(w io.Writer, results []suite.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "benchmark\tsamples\tmin ns\tmean ns\tmax ns\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", r.Name, r.Samples, r.Min, r.Mean, r.Max)
	}
	return tw.Flush()
}
