package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit statuses. A scenario, feature or load check that ran and failed exits
// with ExitFailure; anything that kept the run from starting exits with
// ExitCommandError.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// Error codes carried by ExitError and reported in JSON error responses.
const (
	CodeScenarioFailed = "E_SCENARIO_FAILED" // a YAML scenario failed
	CodeFeatureFailed  = "E_FEATURE_FAILED"  // a godog feature failed
	CodeCheckFailed    = "E_CHECK_FAILED"    // a load check failed or the run stopped early
	CodeService        = "E_SERVICE"         // a service under test answered unexpectedly
	CodeFixture        = "E_FIXTURE"         // seeding or removing fixtures failed
	CodeConfig         = "E_CONFIG"          // missing or invalid variables
	CodeBackend        = "E_BACKEND"         // datastore, blob storage or local files unavailable
	CodeInput          = "E_INPUT"           // bad scenario, feature or options files
	CodeUsage          = "E_USAGE"           // bad flags or arguments
)

// ExitError is a classified command failure. Code selects the exit status.
type ExitError struct {
	Code    string
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status for the error's code.
func (e *ExitError) ExitCode() int {
	switch e.Code {
	case CodeScenarioFailed, CodeFeatureFailed, CodeCheckFailed, CodeService, CodeFixture:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// Fail classifies err under code. err may be nil.
func Fail(code, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// Failf is Fail with a formatted message and no cause.
func Failf(code, format string, args ...any) *ExitError {
	return &ExitError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classify returns the ExitError in err's chain. Errors without one come
// from cobra's flag and argument parsing.
func classify(err error) *ExitError {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return &ExitError{Code: CodeUsage, Message: err.Error()}
}

// GetExitCode returns the exit status for err; nil is ExitSuccess.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return classify(err).ExitCode()
}

// OutputFormatter writes command results as text or JSON. Results go to
// Writer; diagnostics and error reports go to ErrWriter so a JSON result on
// stdout stays parseable when the command then fails.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every result and error report.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError describes a failed command.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data, as a JSON envelope or with its String form.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Report writes err to the error writer. The cause of an ExitError becomes
// the JSON details; in text mode it is printed only when verbose.
func (f *OutputFormatter) Report(err error) error {
	e := classify(err)
	var details any
	if e.Err != nil {
		details = e.Err.Error()
	}

	w := f.GetErrWriter()
	if f.Format == "json" {
		return json.NewEncoder(w).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: e.Code, Message: e.Message, Details: details},
		})
	}

	fmt.Fprintf(w, "Error [%s]: %s\n", e.Code, e.Message)
	if f.Verbose && details != nil {
		fmt.Fprintf(w, "Cause: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line to the error writer when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
