package cli

import "errors"

// Exit codes. Per-item sync failures do not change the exit code; only
// setup problems do.
const (
	// ExitSuccess means the run completed, possibly with per-item failures
	// recorded in the summary.
	ExitSuccess = 0
	// ExitFailure means the run could not complete (store unreachable,
	// configuration broken, unknown calendar).
	ExitFailure = 1
	// ExitCommandError means the command line itself was invalid.
	ExitCommandError = 2
)

// ExitError carries an exit code alongside an error so main can translate
// failures into process exit status without string matching.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit error"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError wraps err with an exit code. A nil err returns nil.
func NewExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// GetExitCode extracts the exit code from an error chain. Nil errors map to
// ExitSuccess, errors without an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
