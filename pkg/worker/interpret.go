package worker

import (
	"bytes"
	"encoding/json"
)

// Interpret classifies a completed run. A zero exit status is necessary but
// not sufficient: stdout must also hold exactly one JSON document.
func Interpret(executable string, c Completion) (json.RawMessage, error) {
	if c.ExitCode != 0 {
		return nil, &ProcessExitError{Executable: executable, ExitCode: c.ExitCode, Stderr: c.Stderr}
	}
	out := bytes.TrimSpace([]byte(c.Stdout))
	var v any
	if err := json.Unmarshal(out, &v); err != nil {
		return nil, &DecodeError{Err: err, Stdout: c.Stdout, Stderr: c.Stderr, Truncated: c.Truncated}
	}
	return json.RawMessage(out), nil
}
