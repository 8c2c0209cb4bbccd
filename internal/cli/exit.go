package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"

	"github.com/kbukum/apikit/auth/authctx"
	"github.com/kbukum/apikit/downstream"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitDownstream = 3
	ExitAuth       = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates an error for configuration that cannot be loaded
// or assembled.
func NewConfigError(msg string, cause error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Cause: cause}
}

// classifyCallError maps a call failure onto an exit code.
func classifyCallError(service string, err error) error {
	var dsErr *downstream.Error
	var retrieveErr *oauth2.RetrieveError
	switch {
	case errors.As(err, &dsErr):
		return &ExitError{Code: ExitDownstream, Message: "call to " + service + " failed", Cause: err}
	case errors.As(err, &retrieveErr), errors.Is(err, authctx.ErrNoPrincipal):
		return &ExitError{Code: ExitAuth, Message: "authorization failed", Cause: err}
	case errors.Is(err, downstream.ErrUnknownService):
		return NewConfigError("no API named "+service, err)
	}
	return &ExitError{Code: ExitFailure, Message: "call to " + service + " failed", Cause: err}
}

// ExitCode returns the exit code carried by err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// HandleExitError prints err and exits with its code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	os.Exit(ExitCode(err))
}
