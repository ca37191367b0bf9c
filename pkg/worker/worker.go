package worker

import (
	"context"
	"encoding/json"
	"time"
)

// Payload is the JSON-serializable request body handed to the worker on stdin.
type Payload map[string]any

// Command describes one channel run: a single candidate executable and a
// fully encoded request.
type Command struct {
	// Executable is the candidate used as argv[0].
	Executable string
	// Args follow the executable, normally the worker entry path and the action.
	Args []string
	// Action is kept for logging only; it is already part of Args.
	Action string
	// Input is written to stdin in full, then stdin is closed.
	Input []byte
	// Timeout bounds the run; zero means no explicit timeout.
	Timeout time.Duration
}

// Completion is what a run that terminated on its own produced.
type Completion struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Truncated reports that stdout overflowed its accumulator.
	Truncated bool
}

// Channel runs exactly one worker process to completion.
//
// A nil error means the process terminated by itself, whatever its exit
// status. Faults before completion are reported as *LaunchError so the
// caller can move on to the next candidate.
type Channel interface {
	Run(ctx context.Context, cmd Command) (Completion, error)
}

// Invoker performs one logical request/response exchange with the worker.
type Invoker interface {
	Invoke(ctx context.Context, action string, payload Payload) (json.RawMessage, error)
}
