package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/axe-engine/axe/pkg/types"
)

// maxOutputBytes bounds stdout/stderr capture; output beyond this is
// truncated with a trailing marker.
const maxOutputBytes = 30000

// sigkillGrace is how long the Runner waits after SIGTERM before escalating
// to SIGKILL on timeout.
const sigkillGrace = 200 * time.Millisecond

// runExec implements the Exec operation: derive command names for policy
// validation, then execute the original command string byte-for-byte — the
// raw command is the source of truth for execution; validation only ever
// sees a derived view.
func (r *Runner) runExec(ctx context.Context, op types.Operation) types.OperationResult {
	names, err := extractCommandNames(op.Command)
	if err != nil {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: err.Error()}
	}
	if len(names) == 0 {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: "policy_denied: no command found"}
	}
	for _, name := range names {
		if !r.Policy.AllowsCommand(name) {
			msg := fmt.Sprintf("policy_denied: command %q is not allow-listed", name)
			if hint := suggestAllowedCommand(name, r.Policy.AllowList); hint != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			return types.OperationResult{Status: types.ResultDenied, ErrorMessage: msg}
		}
	}
	if containsForbiddenSubstring(op.Command, r.Policy.ForbiddenPaths) {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: "path_outside_workspace"}
	}

	timeoutSecs := r.Policy.TimeoutFor(names[0])
	if timeoutSecs <= 0 {
		timeoutSecs = 120
	}

	useShell := hasShellMetacharacters(op.Command)
	sandboxMode := r.Policy.SandboxMode
	if sandboxMode == types.SandboxNamespace && !namespaceHelperAvailable() {
		if !r.namespaceWarned {
			r.namespaceWarned = true
			r.log.Warn().Msg("namespace isolation helper unavailable, falling back to path_check")
		}
		sandboxMode = types.SandboxPathCheck
	}

	start := time.Now()
	stdout, stderr, exitCode, runErr := r.execute(ctx, op.Command, useShell, sandboxMode, time.Duration(timeoutSecs)*time.Second)
	duration := time.Since(start).Seconds()

	if errors.Is(runErr, context.DeadlineExceeded) {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: "timeout", DurationS: duration}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return types.OperationResult{Status: types.ResultError, ErrorMessage: runErr.Error(), DurationS: duration}
		}
	}

	return types.OperationResult{
		Status:    types.ResultOK,
		Stdout:    truncate(stdout),
		Stderr:    truncate(stderr),
		ExitCode:  exitCode,
		DurationS: duration,
	}
}

// execute runs raw either via a shell interpreter or, when it contains no
// metacharacters, as a directly-exec'd word-split command.
// sandboxMode==namespace wraps the shell invocation with
// a bubblewrap-style helper when available.
func (r *Runner) execute(ctx context.Context, raw string, useShell bool, sandboxMode types.SandboxMode, timeout time.Duration) (stdout, stderr string, exitCode int, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	switch {
	case sandboxMode == types.SandboxNamespace:
		cmd = namespacedShellCommand(ctx, raw, r.WorkspaceRoot)
	case useShell:
		cmd = exec.CommandContext(ctx, detectShell(), "-c", raw)
	default:
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			return "", "", -1, fmt.Errorf("empty command")
		}
		cmd = exec.CommandContext(ctx, fields[0], fields[1:]...)
	}
	cmd.Dir = r.WorkspaceRoot
	setProcessGroup(cmd)

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if startErr := cmd.Start(); startErr != nil {
		return "", "", -1, startErr
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		killProcessGroup(cmd)
		<-done
		return outBuf.String(), errBuf.String(), -1, ctx.Err()
	case waitErr := <-done:
		code := 0
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			code = exitErr.ExitCode()
		} else if waitErr != nil {
			return outBuf.String(), errBuf.String(), -1, waitErr
		}
		return outBuf.String(), errBuf.String(), code, nil
	}
}

// detectShell prefers $SHELL,
// skips shells with incompatible -c semantics, falls back to bash then sh.
func detectShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		base := sh
		if idx := strings.LastIndex(sh, "/"); idx >= 0 {
			base = sh[idx+1:]
		}
		if base != "fish" && base != "nu" {
			return sh
		}
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path
	}
	return "/bin/sh"
}

func namespaceHelperAvailable() bool {
	_, err := exec.LookPath("bwrap")
	return err == nil
}

// namespacedShellCommand wraps execution with bubblewrap: read-only root
// filesystem view except the workspace, no network, dropped capabilities.
func namespacedShellCommand(ctx context.Context, raw, workspaceRoot string) *exec.Cmd {
	args := []string{
		"--ro-bind", "/", "/",
		"--bind", workspaceRoot, workspaceRoot,
		"--dev", "/dev",
		"--proc", "/proc",
		"--unshare-all",
		"--die-with-parent",
		detectShell(), "-c", raw,
	}
	return exec.CommandContext(ctx, "bwrap", args...)
}

func truncate(s string) string {
	if len(s) <= maxOutputBytes {
		return s
	}
	return s[:maxOutputBytes] + "\n...[truncated]"
}

// suggestAllowedCommand returns the closest allow-listed command name to
// name, if any are reasonably close, via Levenshtein distance — a "did you
// mean" hint on Exec denial.
func suggestAllowedCommand(name string, allowList map[string]struct{}) string {
	best, bestSim := "", 0.0
	for candidate := range allowList {
		sim := similarity(name, candidate)
		if sim > bestSim {
			best, bestSim = candidate, sim
		}
	}
	if bestSim >= 0.6 {
		return best
	}
	return ""
}
