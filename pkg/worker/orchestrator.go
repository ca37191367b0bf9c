package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// DefaultArgv is the argv template used when none is configured.
var DefaultArgv = []string{"{executable}", "{worker}", "{action}"}

// Config describes how to reach the worker.
type Config struct {
	Candidates Candidates
	// WorkerPath locates the worker entry point, substituted for {worker}.
	WorkerPath string
	// Argv is a template whose first token becomes argv[0]. Supported
	// placeholders: {executable}, {worker}, {action}.
	Argv []string
	// Timeout bounds each channel run; zero disables it.
	Timeout time.Duration
}

// Orchestrator drives a Channel across candidates for one invocation.
//
// Typical flow:
//  1. encode the payload once
//  2. render argv for the next candidate and run it
//  3. on a launch or write fault move on; on a completed run interpret it and stop
type Orchestrator struct {
	cfg     Config
	channel Channel
	logger  *slog.Logger
}

// NewOrchestrator copies cfg; later changes to the caller's slices are not observed.
func NewOrchestrator(cfg Config, channel Channel, logger *slog.Logger) *Orchestrator {
	if len(cfg.Argv) == 0 {
		cfg.Argv = DefaultArgv
	}
	cfg.Argv = append([]string(nil), cfg.Argv...)
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, channel: channel, logger: logger}
}

// Invoke performs one logical exchange with the worker.
func (o *Orchestrator) Invoke(ctx context.Context, action string, payload Payload) (json.RawMessage, error) {
	if payload == nil {
		payload = Payload{}
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", action, err)
	}

	var (
		tried  []string
		causes *multierror.Error
	)
	for exe := range o.cfg.Candidates.All() {
		if err := ctx.Err(); err != nil {
			return nil, &AbortError{Executable: exe, Cause: err}
		}
		argv, err := o.render(exe, action)
		if err != nil {
			return nil, err
		}
		tried = append(tried, exe)

		completion, err := o.channel.Run(ctx, Command{
			Executable: argv[0],
			Args:       argv[1:],
			Action:     action,
			Input:      input,
			Timeout:    o.cfg.Timeout,
		})
		var launchErr *LaunchError
		if errors.As(err, &launchErr) {
			o.logger.Warn("worker candidate failed",
				slog.String("executable", exe),
				slog.String("stage", launchErr.Stage),
				slog.Any("error", launchErr.Err),
			)
			causes = multierror.Append(causes, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		return Interpret(exe, completion)
	}
	return nil, &NoExecutableFoundError{Tried: tried, Causes: causes}
}

func (o *Orchestrator) render(executable, action string) ([]string, error) {
	r := strings.NewReplacer(
		"{executable}", executable,
		"{worker}", o.cfg.WorkerPath,
		"{action}", action,
	)
	out := make([]string, 0, len(o.cfg.Argv))
	for _, tok := range o.cfg.Argv {
		out = append(out, r.Replace(tok))
	}
	if out[0] == "" {
		return nil, fmt.Errorf("argv template rendered an empty executable")
	}
	return out, nil
}
