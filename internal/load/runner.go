// Package load runs k6-style load scenarios: Setup once, Iteration many
// times across a pool of virtual users, Teardown once.
//
// Checks and request timings are recorded into Prometheus metrics and
// summarized at the end of the run. A failing check never aborts a VU; the
// results are only meaningful in aggregate.
package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/receiptcheck/internal/helpdesk"
)

// Scenario is a load test over shared fixture data D.
type Scenario[D any] interface {
	Name() string

	// Setup seeds the fixtures every VU reads.
	Setup(ctx context.Context) (D, error)

	// Iteration is one VU pass. It reports through vu.Check and vu.Do.
	Iteration(ctx context.Context, vu *VU, data D)

	// Teardown removes what Setup created. It runs even when the run is
	// interrupted.
	Teardown(ctx context.Context, data D) error
}

// VU is one virtual user. A VU runs one iteration at a time.
type VU struct {
	ID        int
	Iteration int

	metrics *Metrics
	logger  *slog.Logger
}

// Check records a named pass/fail result and returns ok.
func (vu *VU) Check(name string, ok bool) bool {
	vu.metrics.observeCheck(name, ok)
	if !ok {
		vu.logger.Debug("check failed", "vu", vu.ID, "iteration", vu.Iteration, "check", name)
	}
	return ok
}

// Do times a request. A transport error or a non-2xx response counts as a
// failed request.
func (vu *VU) Do(request string, call func() (*helpdesk.Response, error)) (*helpdesk.Response, error) {
	start := time.Now()
	resp, err := call()
	ok := err == nil && resp != nil && resp.IsSuccess()
	vu.metrics.observeRequest(request, time.Since(start), ok)

	attrs := []any{"vu", vu.ID, "iteration", vu.Iteration, "request", request}
	if resp != nil {
		attrs = append(attrs, "status", resp.Status)
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	vu.logger.Debug("request", attrs...)
	return resp, err
}

// Runner executes scenarios with a plan.
type Runner struct {
	Plan    Plan
	Metrics *Metrics
	Logger  *slog.Logger
}

// NewRunner returns a runner with fresh metrics.
func NewRunner(plan Plan, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{Plan: plan, Metrics: NewMetrics(), Logger: logger}
}

// Run executes s and summarizes the run. It returns an error when Setup or
// Teardown fail; failed checks only show in the summary.
func Run[D any](ctx context.Context, r *Runner, s Scenario[D]) (*Summary, error) {
	logger := r.Logger.With("scenario", s.Name())

	data, err := s.Setup(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s: %w", s.Name(), err)
	}
	logger.Info("setup complete", "vus", r.Plan.VUs, "iterations", r.Plan.Iterations, "duration", r.Plan.Duration)

	start := time.Now()
	runErr := r.iterate(ctx, func(ctx context.Context, vu *VU) {
		s.Iteration(ctx, vu, data)
	})
	elapsed := time.Since(start)

	teardownErr := s.Teardown(context.WithoutCancel(ctx), data)
	if teardownErr != nil {
		logger.Warn("teardown failed", "error", teardownErr)
		teardownErr = fmt.Errorf("failed to tear down %s: %w", s.Name(), teardownErr)
	}

	summary, err := r.Metrics.Summarize(s.Name(), elapsed)
	if err != nil {
		return nil, errors.Join(err, teardownErr)
	}
	logger.Info("run complete",
		"iterations", summary.Iterations,
		"requests", summary.Requests,
		"error_rate", summary.ErrorRate)
	return summary, errors.Join(runErr, teardownErr)
}

// iterate feeds iteration numbers to a fixed pool of VUs until the plan's
// iteration count or duration is exhausted, or ctx is done. Iterations in
// flight when the duration ends run to completion.
func (r *Runner) iterate(ctx context.Context, fn func(context.Context, *VU)) error {
	if r.Plan.VUs < 1 {
		r.Plan.VUs = 1
	}
	if r.Plan.Iterations == 0 && r.Plan.Duration == 0 {
		r.Plan.Iterations = r.Plan.VUs
	}

	runCtx := ctx
	if r.Plan.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Plan.Duration)
		defer cancel()
	}

	queue := make(chan int, r.Plan.VUs)
	var wg sync.WaitGroup
	for id := 1; id <= r.Plan.VUs; id++ {
		wg.Add(1)
		go func(vu *VU) {
			defer wg.Done()
			for n := range queue {
				vu.Iteration = n
				fn(ctx, vu)
				r.Metrics.iterations.Inc()
			}
		}(&VU{ID: id, metrics: r.Metrics, logger: r.Logger})
	}

feed:
	for n := 0; r.Plan.Iterations == 0 || n < r.Plan.Iterations; n++ {
		select {
		case queue <- n:
		case <-runCtx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	// Running out the clock is the normal end of a duration plan.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("load run interrupted: %w", err)
	}
	return nil
}
