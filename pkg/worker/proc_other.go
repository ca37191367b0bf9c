//go:build !unix

package worker

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// No process groups here; both stages kill the child directly.
func terminateProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
