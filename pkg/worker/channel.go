package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ChannelConfig controls the behavior of ExecChannel.
type ChannelConfig struct {
	// Accumulator limits in bytes; defaults 16 MiB for stdout, 1 MiB for stderr.
	MaxStdoutBytes int
	MaxStderrBytes int

	// Grace period between SIGTERM and SIGKILL when a run is aborted.
	TerminationGrace time.Duration // default 5s

	// Extra environment entries appended to the inherited environment.
	Env []string
}

// ExecChannel runs the worker as a local child process.
type ExecChannel struct {
	cfg    ChannelConfig
	logger *slog.Logger

	mActive       atomic.Int64
	mLaunches     atomic.Uint64
	mLaunchFaults atomic.Uint64
	mCompleted    atomic.Uint64
	mSuccess      atomic.Uint64
	mDuration     struct {
		sumMicros atomic.Uint64
		count     atomic.Uint64
	}
}

// NewExecChannel creates a Channel backed by os/exec.
func NewExecChannel(cfg ChannelConfig, logger *slog.Logger) *ExecChannel {
	if cfg.MaxStdoutBytes <= 0 {
		cfg.MaxStdoutBytes = 16 << 20
	}
	if cfg.MaxStderrBytes <= 0 {
		cfg.MaxStderrBytes = 1 << 20
	}
	if cfg.TerminationGrace <= 0 {
		cfg.TerminationGrace = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecChannel{cfg: cfg, logger: logger}
}

type runResult struct {
	readErr error
	waitErr error
}

// Run launches cmd, writes its input, closes stdin and blocks until the
// process has exited and both output streams are drained.
func (c *ExecChannel) Run(ctx context.Context, cmd Command) (Completion, error) {
	if err := ctx.Err(); err != nil {
		return Completion{}, &AbortError{Executable: cmd.Executable, Cause: err}
	}

	proc := exec.Command(cmd.Executable, cmd.Args...)
	setProcessGroup(proc)
	proc.Env = append(os.Environ(), c.cfg.Env...)

	stdin, err := proc.StdinPipe()
	if err != nil {
		return Completion{}, &LaunchError{Executable: cmd.Executable, Stage: StageLaunch, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdoutPipe, err := proc.StdoutPipe()
	if err != nil {
		return Completion{}, &LaunchError{Executable: cmd.Executable, Stage: StageLaunch, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrPipe, err := proc.StderrPipe()
	if err != nil {
		return Completion{}, &LaunchError{Executable: cmd.Executable, Stage: StageLaunch, Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	stdout := newCapBuffer(c.cfg.MaxStdoutBytes)
	stderr := newCapBuffer(c.cfg.MaxStderrBytes)

	c.logger.Debug("worker.start",
		slog.String("executable", cmd.Executable),
		slog.String("action", cmd.Action),
		slog.Int("input_bytes", len(cmd.Input)),
		slog.Duration("timeout", cmd.Timeout),
	)
	c.mLaunches.Add(1)
	if err := proc.Start(); err != nil {
		c.mLaunchFaults.Add(1)
		c.logger.Warn("worker.spawn_error",
			slog.String("executable", cmd.Executable),
			slog.String("action", cmd.Action),
			slog.Any("error", err),
		)
		return Completion{}, &LaunchError{Executable: cmd.Executable, Stage: StageLaunch, Err: err}
	}

	start := time.Now()
	c.mActive.Add(1)
	defer c.mActive.Add(-1)

	var g errgroup.Group
	g.Go(func() error { return drain(stdoutPipe, stdout) })
	g.Go(func() error { return drain(stderrPipe, stderr) })

	if err := writeInput(stdin, cmd.Input); err != nil {
		c.mLaunchFaults.Add(1)
		killProcessGroup(proc)
		_ = g.Wait()
		_ = proc.Wait()
		c.logger.Warn("worker.write_error",
			slog.String("executable", cmd.Executable),
			slog.String("action", cmd.Action),
			slog.Any("error", err),
		)
		return Completion{}, &LaunchError{Executable: cmd.Executable, Stage: StageWrite, Err: err}
	}

	// Pipes must be fully read before Wait closes them.
	done := make(chan runResult, 1)
	go func() {
		readErr := g.Wait()
		done <- runResult{readErr: readErr, waitErr: proc.Wait()}
	}()

	var timeout <-chan time.Time
	if cmd.Timeout > 0 {
		timer := time.NewTimer(cmd.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var (
		res   runResult
		abort error
	)
	select {
	case res = <-done:
	case <-ctx.Done():
		abort = ctx.Err()
		res = c.terminate(proc, done)
	case <-timeout:
		abort = context.DeadlineExceeded
		res = c.terminate(proc, done)
	}

	dur := time.Since(start)
	c.mDuration.count.Add(1)
	c.mDuration.sumMicros.Add(uint64(dur / time.Microsecond))

	exitCode := -1
	if proc.ProcessState != nil {
		exitCode = proc.ProcessState.ExitCode()
	}
	c.logger.Debug("worker.finish",
		slog.String("executable", cmd.Executable),
		slog.String("action", cmd.Action),
		slog.Int("exit_code", exitCode),
		slog.Int64("duration_ms", dur.Milliseconds()),
		slog.Bool("aborted", abort != nil),
	)

	if abort != nil {
		return Completion{}, &AbortError{Executable: cmd.Executable, Cause: abort}
	}
	var exitErr *exec.ExitError
	if res.waitErr != nil && !errors.As(res.waitErr, &exitErr) {
		return Completion{}, fmt.Errorf("wait %s: %w", cmd.Executable, res.waitErr)
	}
	if res.readErr != nil {
		return Completion{}, fmt.Errorf("read %s output: %w", cmd.Executable, res.readErr)
	}

	c.mCompleted.Add(1)
	if exitCode == 0 {
		c.mSuccess.Add(1)
	}
	return Completion{
		ExitCode:  exitCode,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated(),
	}, nil
}

func writeInput(stdin io.WriteCloser, input []byte) error {
	if _, err := stdin.Write(input); err != nil {
		_ = stdin.Close()
		return err
	}
	return stdin.Close()
}

// terminate signals the process group with SIGTERM, escalates to SIGKILL
// after the grace period and waits for the reaper goroutine.
func (c *ExecChannel) terminate(proc *exec.Cmd, done <-chan runResult) runResult {
	terminateProcessGroup(proc)
	select {
	case res := <-done:
		return res
	case <-time.After(c.cfg.TerminationGrace):
	}
	killProcessGroup(proc)
	return <-done
}

// Metrics is a snapshot of channel counters.
type Metrics struct {
	Active            int64  `json:"active"`
	Launches          uint64 `json:"launches"`
	LaunchFaults      uint64 `json:"launch_faults"`
	Completed         uint64 `json:"completed"`
	Success           uint64 `json:"success"`
	DurationCount     uint64 `json:"duration_count"`
	DurationSumMicros uint64 `json:"duration_sum_micros"`
}

func (c *ExecChannel) Metrics() Metrics {
	return Metrics{
		Active:            c.mActive.Load(),
		Launches:          c.mLaunches.Load(),
		LaunchFaults:      c.mLaunchFaults.Load(),
		Completed:         c.mCompleted.Load(),
		Success:           c.mSuccess.Load(),
		DurationCount:     c.mDuration.count.Load(),
		DurationSumMicros: c.mDuration.sumMicros.Load(),
	}
}
