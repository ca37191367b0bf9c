// Package workertest provides scripted doubles for the worker package.
package workertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"hackohio/quizd/pkg/worker"
)

// Outcome is one scripted channel result, keyed by executable.
type Outcome struct {
	// NotFound simulates "command not found" at launch.
	NotFound bool
	// WriteFails simulates a broken stdin.
	WriteFails bool
	Completion worker.Completion
	Err        error
}

// Channel is a worker.Channel whose runs are looked up by executable name.
// Executables with no outcome behave as NotFound.
type Channel struct {
	mu       sync.Mutex
	outcomes map[string]Outcome
	calls    []worker.Command
}

func NewChannel(outcomes map[string]Outcome) *Channel {
	return &Channel{outcomes: outcomes}
}

func (c *Channel) Run(ctx context.Context, cmd worker.Command) (worker.Completion, error) {
	c.mu.Lock()
	c.calls = append(c.calls, cmd)
	o, ok := c.outcomes[cmd.Executable]
	c.mu.Unlock()

	switch {
	case !ok || o.NotFound:
		return worker.Completion{}, &worker.LaunchError{
			Executable: cmd.Executable,
			Stage:      worker.StageLaunch,
			Err:        fmt.Errorf("exec: %q: executable file not found in $PATH", cmd.Executable),
		}
	case o.WriteFails:
		return worker.Completion{}, &worker.LaunchError{
			Executable: cmd.Executable,
			Stage:      worker.StageWrite,
			Err:        errors.New("write |1: broken pipe"),
		}
	case o.Err != nil:
		return worker.Completion{}, o.Err
	}
	return o.Completion, nil
}

// Calls returns the commands run so far, in order.
func (c *Channel) Calls() []worker.Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]worker.Command(nil), c.calls...)
}

// Executables returns the argv[0] of every run so far.
func (c *Channel) Executables() []string {
	calls := c.Calls()
	out := make([]string, 0, len(calls))
	for _, cmd := range calls {
		out = append(out, cmd.Executable)
	}
	return out
}

// Reply is one scripted Invoke result.
type Reply struct {
	Raw string
	Err error
}

// Invoker replays Replies in order; once exhausted it repeats the last one.
type Invoker struct {
	mu       sync.Mutex
	replies  []Reply
	calls    int
	actions  []string
	payloads []worker.Payload
}

func NewInvoker(replies ...Reply) *Invoker {
	return &Invoker{replies: replies}
}

func (i *Invoker) Invoke(ctx context.Context, action string, payload worker.Payload) (json.RawMessage, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	idx := i.calls
	i.calls++
	i.actions = append(i.actions, action)
	i.payloads = append(i.payloads, payload)
	if len(i.replies) == 0 {
		return nil, errors.New("workertest: no replies scripted")
	}
	if idx >= len(i.replies) {
		idx = len(i.replies) - 1
	}
	r := i.replies[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return json.RawMessage(r.Raw), nil
}

// Count reports how many times Invoke was called.
func (i *Invoker) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.calls
}

// Last returns the action and payload of the most recent call.
func (i *Invoker) Last() (string, worker.Payload) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.actions) == 0 {
		return "", nil
	}
	return i.actions[len(i.actions)-1], i.payloads[len(i.payloads)-1]
}
