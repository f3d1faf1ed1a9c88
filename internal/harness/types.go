package harness

// Outcomes recorded in the trace.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Phase   string         `json:"phase"`
	Step    string         `json:"step"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"`
	Status  int            `json:"status,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and every assertion succeeded.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Phase is the lifecycle phase the scenario reached before cleanup.
	Phase string `json:"phase"`

	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`

	// CleanupErrors lists teardown failures. They are reported but do not
	// fail the scenario; an absent assertion does.
	CleanupErrors []string `json:"cleanup_errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
