// Package suite holds the sample benchmarks. They use nothing but
// bench.Port, so they run unchanged on any backend.
package suite

import (
	"fmt"
	"math"
	"strings"

	"rtbench/bench"
)

// Params configures a benchmark run.
type Params struct {
	// Iterations is the number of samples to collect.
	Iterations int
	// High must be more urgent than the main thread, Low less urgent.
	High, Low bench.Priority
}

// Result summarises one benchmark. Times are in nanoseconds.
type Result struct {
	Name    string
	Samples int
	Min     bench.Time
	Max     bench.Time
	Mean    bench.Time
}

// Benchmark is a named measurement.
type Benchmark struct {
	Name string
	Desc string
	body func(r *recorder, prm Params)
}

// Run measures b on p. p must be idle.
func (b Benchmark) Run(p bench.Port, prm Params) (Result, error) {
	if prm.Iterations <= 0 {
		return Result{}, fmt.Errorf("%s: iterations must be positive, got %d", b.Name, prm.Iterations)
	}
	r := &recorder{p: p, min: math.MaxUint64}
	err := p.TestInit(func(any) {
		if r.check(p.TimingInit()) {
			return
		}
		if r.check(p.SyncTicks()) {
			return
		}
		p.TimingStart()
		defer p.TimingStop()
		b.body(r, prm)
	})
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name, err)
	}
	if r.err != nil {
		return Result{}, fmt.Errorf("%s: %w", b.Name, r.err)
	}
	return r.result(b.Name), nil
}

// All lists every benchmark in display order.
var All = []Benchmark{
	{Name: "thread_switch", Desc: "yield between two equal-priority threads", body: threadSwitch},
	{Name: "sem_signal", Desc: "give to a blocked, more urgent thread", body: semSignal},
	{Name: "isr_sem_give", Desc: "give from interrupt context to a blocked thread", body: isrSemGive},
	{Name: "offload_latency", Desc: "submit from interrupt context to worker start", body: offloadLatency},
	{Name: "mutex_uncontended", Desc: "lock and unlock a free mutex", body: mutexUncontended},
	{Name: "thread_create_start", Desc: "create and start a more urgent thread", body: threadCreateStart},
}

// Select returns the benchmarks named in a comma separated list. An empty
// list or "all" selects every benchmark.
func Select(list string) ([]Benchmark, error) {
	list = strings.TrimSpace(list)
	if list == "" || list == "all" {
		return All, nil
	}
	var out []Benchmark
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		b, ok := lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown benchmark %q", name)
		}
		out = append(out, b)
	}
	return out, nil
}

func lookup(name string) (Benchmark, bool) {
	for _, b := range All {
		if b.Name == name {
			return b, true
		}
	}
	return Benchmark{}, false
}

// recorder accumulates samples taken inside kernel threads.
type recorder struct {
	p             bench.Port
	n             int
	min, max, sum bench.Time
	err           error
}

func (r *recorder) sample(start, end bench.Time) {
	ns := r.p.CyclesToNs(r.p.CyclesGet(start, end))
	r.n++
	r.sum += ns
	if ns < r.min {
		r.min = ns
	}
	if ns > r.max {
		r.max = ns
	}
}

// check records the first error and reports whether err was non-nil.
func (r *recorder) check(err error) bool {
	if err != nil && r.err == nil {
		r.err = err
	}
	return err != nil
}

func (r *recorder) result(name string) Result {
	res := Result{Name: name, Samples: r.n}
	if r.n == 0 {
		return res
	}
	res.Min, res.Max = r.min, r.max
	res.Mean = r.sum / bench.Time(r.n)
	return res
}
