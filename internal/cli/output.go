package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgraph/internal/graph"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Graph operation or scenario failed
	ExitCommandError = 2 // Bad arguments, unreadable blueprint or journal
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
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

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not an
// ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// JSON reports whether output is JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error part of a CLIResponse. Code is a graph error code
// such as VALUE_ERROR, or CLI_ERROR for failures outside the graph.
type CLIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Node    string            `json:"node,omitempty"`
	Key     string            `json:"property,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// Success writes data. Text mode prints it with fmt.Fprintln.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fail reports err and returns it as an ExitError with code. In JSON mode
// the error is also written to Writer so scripts see a single envelope.
func (f *OutputFormatter) Fail(code int, message string, err error) error {
	if f.JSON() {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: toCLIError(message, err)}); encErr != nil {
			return encErr
		}
	}
	return WrapExitError(code, message, err)
}

// VerboseLog writes a diagnostic line when verbose output is on.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func toCLIError(message string, err error) *CLIError {
	out := &CLIError{Code: "CLI_ERROR", Message: message}
	if err != nil {
		out.Message = fmt.Sprintf("%s: %v", message, err)
	}
	var ge *graph.Error
	if errors.As(err, &ge) {
		out.Code = string(ge.Code)
		out.Node = ge.Node
		out.Key = ge.Property
		out.Details = ge.Details
	}
	return out
}
