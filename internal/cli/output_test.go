package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(SeedResult{ReceiptID: "perf-1", Action: "seeded"}))

	var resp struct {
		Status string     `json:"status"`
		Data   SeedResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "perf-1", resp.Data.ReceiptID)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(SeedResult{ReceiptID: "perf-1", Action: "seeded"}))
	assert.Equal(t, "seeded receipt perf-1\n", buf.String())
}

func TestOutputFormatter_ReportJSON(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	err := fmt.Errorf("seed: %w", Fail(CodeBackend, "failed to open backends", errors.New("database is locked")))
	require.NoError(t, formatter.Report(err))
	assert.Empty(t, out.String(), "reports must not mix with results")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeBackend, resp.Error.Code)
	assert.Equal(t, "failed to open backends", resp.Error.Message)
	assert.Equal(t, "database is locked", resp.Error.Details)
}

func TestOutputFormatter_ReportText(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantCause bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			err := Fail(CodeConfig, "invalid configuration", errors.New(`unknown variable "bogus"`))
			require.NoError(t, formatter.Report(err))
			assert.Contains(t, buf.String(), "Error [E_CONFIG]: invalid configuration")
			if tt.wantCause {
				assert.Contains(t, buf.String(), `Cause: unknown variable "bogus"`)
			} else {
				assert.NotContains(t, buf.String(), "Cause:")
			}
		})
	}
}

func TestOutputFormatter_ReportUnclassified(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Report(errors.New(`unknown flag: --bogus`)))
	assert.Equal(t, "Error [E_USAGE]: unknown flag: --bogus\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("loaded %d scenarios", 3)

			assert.Empty(t, out.String())
			if tt.wantLog {
				assert.Equal(t, "loaded 3 scenarios\n", errOut.String())
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeScenarioFailed, ExitFailure},
		{CodeFeatureFailed, ExitFailure},
		{CodeCheckFailed, ExitFailure},
		{CodeService, ExitFailure},
		{CodeFixture, ExitFailure},
		{CodeConfig, ExitCommandError},
		{CodeBackend, ExitCommandError},
		{CodeInput, ExitCommandError},
		{CodeUsage, ExitCommandError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(Failf(tt.code, "failed")))
		})
	}

	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("accepts 1 arg(s), received 0")))

	wrapped := fmt.Errorf("run: %w", Fail(CodeConfig, "invalid configuration", errors.New("unknown variable")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "run: invalid configuration: unknown variable", wrapped.Error())
}

func TestRunMainReportsFailure(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	opts := &RootOptions{Getenv: func(string) string { return "" }}

	code := runMain(opts, "test", []string{"--format", "json", "--vars", "/nonexistent/vars.yaml", "seed"}, out, errOut)
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, out.String())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(errOut.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeConfig, resp.Error.Code)
}

func TestRunMainVersion(t *testing.T) {
	out := &bytes.Buffer{}
	code := runMain(&RootOptions{}, "1.2.3", []string{"--version"}, out, &bytes.Buffer{})
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out.String(), "1.2.3")
}
