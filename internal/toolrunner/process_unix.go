//go:build !windows

package toolrunner

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcessGroup puts cmd in its own process group so killProcessGroup can
// terminate the whole tree, not just the direct child.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup sends SIGTERM to the process group, then escalates to
// SIGKILL after sigkillGrace if the group hasn't exited.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_ = syscall.Kill(-pgid, syscall.SIGTERM)
	time.Sleep(sigkillGrace)
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
}
