package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/receiptcheck/internal/helpdesk"
	"github.com/roach88/receiptcheck/internal/steps"
	"github.com/roach88/receiptcheck/internal/testutil"
)

// DefaultCleanupTimeout bounds cleanup once the scenario itself is over.
const DefaultCleanupTimeout = 60 * time.Second

// RunIDGenerator produces the run id of scenarios that do not fix one.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered run ids.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Deps wires a scenario run to its environment.
type Deps struct {
	Steps steps.Deps

	// Lookup resolves containers for absent assertions. Nil disables them.
	Lookup Lookup

	// RunIDs defaults to UUIDv7Generator.
	RunIDs RunIDGenerator

	Logger *slog.Logger

	// Timeout defaults to steps.DefaultTimeout; a scenario's own timeout
	// takes precedence.
	Timeout time.Duration

	CleanupTimeout time.Duration
}

// Harness runs one scenario. It is not reused across scenarios.
type Harness struct {
	world  *steps.World
	clock  *testutil.DeterministicClock
	runID  string
	logger *slog.Logger
}

// Run executes a scenario and returns its result. The returned error covers
// only problems running the harness itself; step and assertion failures are
// reported in the result.
func Run(ctx context.Context, scenario *Scenario, deps Deps) (*Result, error) {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.RunIDs == nil {
		deps.RunIDs = UUIDv7Generator{}
	}
	if deps.CleanupTimeout <= 0 {
		deps.CleanupTimeout = DefaultCleanupTimeout
	}
	if deps.Steps.Logger == nil {
		deps.Steps.Logger = deps.Logger
	}

	timeout, err := scenario.timeout()
	if err != nil {
		return nil, fmt.Errorf("failed to configure scenario: %w", err)
	}
	if timeout == 0 {
		timeout = deps.Timeout
	}
	if timeout <= 0 {
		timeout = steps.DefaultTimeout
	}

	runID := scenario.RunID
	if runID == "" {
		runID = deps.RunIDs.Generate()
	}

	h := &Harness{
		world:  steps.NewWorld(deps.Steps),
		clock:  testutil.NewDeterministicClock(),
		runID:  runID,
		logger: deps.Logger.With("scenario", scenario.Name, "run_id", runID),
	}

	result := NewResult()
	result.RunID = runID

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h.logger.Info("scenario started")
	h.executeSections(runCtx, scenario, result)
	result.Phase = h.world.Phase().String()

	// Cleanup must run even when the scenario deadline already expired.
	cleanupCtx, cleanupCancel := context.WithTimeout(context.WithoutCancel(ctx), deps.CleanupTimeout)
	defer cleanupCancel()
	h.cleanup(cleanupCtx, result)

	assertions := h.expandAssertions(scenario.Assertions)
	for _, msg := range EvaluateAssertions(cleanupCtx, result, assertions, deps.Lookup) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"pass", result.Pass,
		"phase", result.Phase,
		"errors", len(result.Errors))
	return result, nil
}

func (h *Harness) executeSections(ctx context.Context, scenario *Scenario, result *Result) {
	for _, sec := range []struct {
		name  string
		steps []Step
	}{
		{SectionGiven, scenario.Given},
		{SectionWhen, scenario.When},
		{SectionThen, scenario.Then},
	} {
		for i, step := range sec.steps {
			if err := h.executeStep(ctx, sec.name, step, result); err != nil {
				result.AddError(fmt.Sprintf("%s[%d] %s: %v", sec.name, i, step.Step, err))
				return
			}
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, section string, step Step, result *Result) error {
	def, ok := registry[step.Step]
	if !ok || def.section != section {
		return fmt.Errorf("unknown %s step", section)
	}

	a := h.expandArgs(step.Args)
	event := TraceEvent{
		Seq:   h.clock.Next(),
		Phase: section,
		Step:  step.Step,
		Args:  a,
	}

	err := def.run(ctx, h.world, a)
	if err == nil {
		err = ctx.Err()
	}
	if resp := h.world.Response; resp != nil && section != SectionGiven {
		event.Status = resp.Status
	}
	if err != nil {
		event.Outcome = OutcomeFailed
		event.Error = describe(err)
		h.logger.Warn("step failed", "section", section, "step", step.Step, "error", err)
	} else {
		event.Outcome = OutcomeOK
		h.logger.Debug("step passed", "section", section, "step", step.Step)
	}
	result.Trace = append(result.Trace, event)
	return err
}

func (h *Harness) cleanup(ctx context.Context, result *Result) {
	event := TraceEvent{
		Seq:     h.clock.Next(),
		Phase:   "cleanup",
		Step:    "cleanup",
		Outcome: OutcomeOK,
	}
	if err := h.world.Cleanup(ctx); err != nil {
		event.Outcome = OutcomeFailed
		event.Error = "cleanup incomplete"
		for _, e := range unjoin(err) {
			result.CleanupErrors = append(result.CleanupErrors, e.Error())
		}
	}
	result.Trace = append(result.Trace, event)
}

// expandArgs substitutes the run id into string arguments.
func (h *Harness) expandArgs(in map[string]any) args {
	if len(in) == 0 {
		return nil
	}
	out := make(args, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok {
			v = h.expand(s)
		}
		out[k] = v
	}
	return out
}

func (h *Harness) expandAssertions(in []Assertion) []Assertion {
	out := make([]Assertion, len(in))
	for i, a := range in {
		a.ID = h.expand(a.ID)
		a.Args = h.expandArgs(a.Args)
		out[i] = a
	}
	return out
}

func (h *Harness) expand(s string) string {
	return strings.ReplaceAll(s, RunIDVar, h.runID)
}

// describe renders a step error without volatile details such as server
// addresses, so failing traces stay comparable.
func describe(err error) string {
	var (
		assertErr *steps.AssertionError
		phaseErr  *steps.PhaseError
		tmplErr   *helpdesk.TemplateError
	)
	switch {
	case errors.As(err, &assertErr), errors.As(err, &phaseErr), errors.As(err, &tmplErr):
		return err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "step error"
	}
}

func unjoin(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
