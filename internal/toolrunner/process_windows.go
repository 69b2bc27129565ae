//go:build windows

package toolrunner

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.Cmd.Process.Kill() below
// terminates the single process without the POSIX process-group dance.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup terminates the direct child process.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
