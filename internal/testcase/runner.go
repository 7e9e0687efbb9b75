package testcase

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"
)

// CheckFunc checks one scenario.
type CheckFunc func(ctx context.Context, c Case) error

// RunConfig holds configuration for running scenarios.
type RunConfig struct {
	// Workers is the number of scenarios checked at once.
	// Default: runtime.NumCPU()
	Workers int

	// Timeout bounds each scenario. Zero means no limit.
	Timeout time.Duration
}

// DefaultRunConfig returns sensible defaults.
func DefaultRunConfig() RunConfig {
	return RunConfig{Workers: runtime.NumCPU()}
}

// Result is the outcome of one scenario.
type Result struct {
	Index   int // position in the input slice
	Case    Case
	Err     error
	Elapsed time.Duration
}

// Passed reports whether the scenario passed.
func (r Result) Passed() bool {
	return r.Err == nil
}

// job is one scenario waiting for a worker.
type job struct {
	index int
	c     Case
}

// Run checks cases on a pool of workers and returns their results in the
// order of cases. Cases not started before ctx is done report the
// context's error.
func Run(ctx context.Context, cases []Case, check CheckFunc, config RunConfig) []Result {
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if check == nil {
		check = Check
	}

	jobs := make(chan job, config.Workers*2)
	results := make(chan Result, config.Workers*2)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, results, check, config.Timeout)
		}()
	}

	// Feed jobs
	go func() {
		defer close(jobs)
		for i, c := range cases {
			jobs <- job{index: i, c: c}
		}
	}()

	// Close results once every worker is done
	go func() {
		wg.Wait()
		close(results)
	}()

	all := make([]Result, 0, len(cases))
	for r := range results {
		all = append(all, r)
	}

	// Sort by index to report in document order
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all
}

// worker checks scenarios until jobs is closed.
func worker(ctx context.Context, jobs <-chan job, results chan<- Result, check CheckFunc, timeout time.Duration) {
	for j := range jobs {
		r := Result{Index: j.index, Case: j.c}
		if err := ctx.Err(); err != nil {
			r.Err = err
			results <- r
			continue
		}

		cctx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			cctx, cancel = context.WithTimeout(ctx, timeout)
		}
		start := time.Now()
		r.Err = check(cctx, j.c)
		r.Elapsed = time.Since(start)
		cancel()

		results <- r
	}
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed() {
			out = append(out, r)
		}
	}
	return out
}
