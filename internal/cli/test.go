package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/receiptcheck/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name substring
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name          string   `json:"name"`
	RunID         string   `json:"run_id,omitempty"`
	Pass          bool     `json:"pass"`
	Errors        []string `json:"errors,omitempty"`
	CleanupErrors []string `json:"cleanup_errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run YAML scenarios against the helpdesk",
		Long: `Run the YAML scenarios in a directory against the configured datastore,
blob storage and helpdesk API.

Each scenario seeds its fixtures, calls the API, checks the response and
removes what it seeded, even when a step fails. When
<scenarios-dir>/golden/<name>.golden exists the scenario trace must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, configuration, etc.)

Examples:
  receiptcheck test ./scenarios
  receiptcheck test ./scenarios --filter cart
  receiptcheck test ./scenarios --update
  receiptcheck test ./scenarios --vars env.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only scenarios whose name contains this text")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return Failf(CodeInput, "scenarios directory not found: %s", scenariosDir)
	}

	scenarios, err := harness.LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return Fail(CodeInput, "failed to load scenarios", err)
	}

	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	f := opts.formatter(cmd)
	f.VerboseLog("loaded %d scenario(s) from %s", len(scenarios), scenariosDir)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(f.GetErrWriter())

	env, err := Wire(cmd.Context(), cfg, logger)
	if err != nil {
		return Fail(CodeBackend, "failed to open backends", err)
	}
	defer env.Close()
	f.VerboseLog("datastore: %s, blob storage: %s", cfg.DatastoreDriver, cfg.BlobDriver)

	hd, err := env.Helpdesk()
	if err != nil {
		return Fail(CodeConfig, "failed to configure helpdesk", err)
	}

	workDir, err := os.MkdirTemp("", "receiptcheck-")
	if err != nil {
		return Fail(CodeBackend, "failed to create work directory", err)
	}
	defer os.RemoveAll(workDir)

	deps := env.HarnessDeps(hd, workDir)
	goldenDir := filepath.Join(scenariosDir, "golden")

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
		Total:     len(scenarios),
	}
	for _, scenario := range scenarios {
		scenResult := runScenario(opts, cmd, scenario, deps, goldenDir)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// runScenario executes a single scenario and returns the result.
func runScenario(opts *TestOptions, cmd *cobra.Command, scenario *harness.Scenario, deps harness.Deps, goldenDir string) ScenarioResult {
	w := cmd.OutOrStdout()
	fail := func(errs ...string) ScenarioResult {
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", scenario.Name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: scenario.Name, Pass: false, Errors: errs}
	}

	result, err := harness.Run(cmd.Context(), scenario, deps)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}

	scenResult := ScenarioResult{
		Name:          scenario.Name,
		RunID:         result.RunID,
		Pass:          result.Pass,
		Errors:        result.Errors,
		CleanupErrors: result.CleanupErrors,
	}

	goldenPath := filepath.Join(goldenDir, scenario.Name+".golden")
	if opts.Update {
		if err := updateGoldenFile(scenario.Name, result, goldenPath); err != nil {
			return fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
		if opts.Format != "json" {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", scenario.Name)
		}
		return scenResult
	}

	if _, err := os.Stat(goldenPath); err == nil {
		match, err := compareWithGolden(scenario.Name, result, goldenPath)
		if err != nil {
			return fail(fmt.Sprintf("golden comparison failed: %v", err))
		}
		if !match {
			scenResult.Pass = false
			scenResult.Errors = append(scenResult.Errors, "trace does not match golden file (run with --update to regenerate)")
		}
	}

	if opts.Format != "json" {
		mark := "✓"
		if !scenResult.Pass {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s\n", mark, scenario.Name)
		for _, e := range scenResult.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		for _, e := range scenResult.CleanupErrors {
			fmt.Fprintf(w, "  cleanup: %s\n", e)
		}
	}
	return scenResult
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(name string, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data, err := harness.Snapshot(name, result)
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result trace against the golden file.
func compareWithGolden(name string, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	currentData, err := harness.Snapshot(name, result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal current trace: %w", err)
	}

	return bytes.Equal(bytes.TrimSpace(goldenData), currentData), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    CodeScenarioFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return Failf(CodeScenarioFailed, "%d scenario(s) failed", result.Failed)
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return Failf(CodeScenarioFailed, "%d scenario(s) failed", result.Failed)
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
