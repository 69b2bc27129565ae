// Package toolrunner validates and executes a single parsed Operation
// against a ToolPolicy and workspace root, returning an OperationResult. It
// never calls the parser or the scheduler.
package toolrunner

import "errors"

// RejectedError names the policy-denial error class. No Runner code path
// produces it: a policy denial is reported directly as
// OperationResult{Status: denied}, never as a Go error.
var RejectedError = errors.New("toolrunner: operation rejected by policy")

// ErrNamespaceUnavailable names the missing-isolation-helper condition. No
// Runner code path produces it: when sandbox_mode is "namespace" and the
// helper cannot be found, runExec falls back to path_check and logs a
// one-time warning.
var ErrNamespaceUnavailable = errors.New("toolrunner: namespace isolation helper unavailable")
