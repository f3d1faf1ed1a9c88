package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/receiptcheck/internal/canon"
)

// TraceSnapshot is the golden-file form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	RunID        string       `json:"run_id"`
	Pass         bool         `json:"pass"`
	Trace        []TraceEvent `json:"trace"`
}

// Snapshot serializes a result canonically.
func Snapshot(name string, result *Result) ([]byte, error) {
	return canon.Marshal(TraceSnapshot{
		ScenarioName: name,
		RunID:        result.RunID,
		Pass:         result.Pass,
		Trace:        result.Trace,
	})
}

// RunWithGolden runs a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Scenarios compared this way should fix run_id, otherwise the ids in the
// trace change on every run.
func RunWithGolden(t *testing.T, scenario *Scenario, deps Deps) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, deps)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
