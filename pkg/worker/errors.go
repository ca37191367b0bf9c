package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrNoExecutableFound is matched by *NoExecutableFoundError.
var ErrNoExecutableFound = errors.New("no worker executable found")

// Launch stages.
const (
	StageLaunch = "launch"
	StageWrite  = "write"
)

// LaunchError is a pre-completion fault: the candidate could not be
// started, or the request could not be written to it.
type LaunchError struct {
	Executable string
	Stage      string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NoExecutableFoundError is returned when every candidate failed before
// completing a run.
type NoExecutableFoundError struct {
	Tried []string
	// Causes aggregates the per-candidate launch faults.
	Causes *multierror.Error
}

func (e *NoExecutableFoundError) Error() string {
	msg := fmt.Sprintf("no worker executable found (tried %s)", strings.Join(e.Tried, ", "))
	if e.Causes != nil && len(e.Causes.Errors) > 0 {
		parts := make([]string, 0, len(e.Causes.Errors))
		for _, c := range e.Causes.Errors {
			parts = append(parts, c.Error())
		}
		msg += ": " + strings.Join(parts, "; ")
	}
	return msg
}

func (e *NoExecutableFoundError) Is(target error) bool { return target == ErrNoExecutableFound }

func (e *NoExecutableFoundError) Unwrap() error {
	if e.Causes == nil {
		return nil
	}
	return e.Causes.ErrorOrNil()
}

// ProcessExitError reports a worker that ran and exited non-zero.
type ProcessExitError struct {
	Executable string
	ExitCode   int
	Stderr     string
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("worker (%s) exited with code %d: %s", e.Executable, e.ExitCode, e.Stderr)
}

// DecodeError reports a worker that exited zero without printing valid JSON.
type DecodeError struct {
	Err       error
	Stdout    string
	Stderr    string
	Truncated bool
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invalid JSON from worker: %v", e.Err)
	if e.Truncated {
		b.WriteString(" (stdout truncated)")
	}
	fmt.Fprintf(&b, "\nSTDOUT:%s\nSTDERR:%s", e.Stdout, e.Stderr)
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidationError reports a decoded result that does not have the shape
// the caller expects for the action.
type ValidationError struct {
	Action string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("validation failed for %s: %s: %v", e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Action, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AbortError reports a run stopped by the caller's context or by the
// per-run timeout. The process group has been killed.
type AbortError struct {
	Executable string
	Cause      error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("worker (%s) terminated: %v", e.Executable, e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// Summary renders err without captured worker output, for callers outside
// the trust boundary. The full error belongs in the logs.
func Summary(err error) string {
	var (
		noExec *NoExecutableFoundError
		exit   *ProcessExitError
		dec    *DecodeError
		val    *ValidationError
		abort  *AbortError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noExec):
		return fmt.Sprintf("no worker executable found (tried %s)", strings.Join(noExec.Tried, ", "))
	case errors.As(err, &exit):
		return fmt.Sprintf("worker exited with code %d", exit.ExitCode)
	case errors.As(err, &dec):
		return "worker returned invalid JSON"
	case errors.As(err, &val):
		return fmt.Sprintf("worker returned an invalid %s result", val.Action)
	case errors.As(err, &abort):
		if errors.Is(err, context.DeadlineExceeded) {
			return "worker timed out"
		}
		return "worker canceled"
	default:
		return err.Error()
	}
}
