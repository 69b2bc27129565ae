package toolrunner

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/axe-engine/axe/pkg/types"
)

// Runner executes a single Operation against a ToolPolicy and workspace
// root. It never calls the parser or the scheduler.
type Runner struct {
	WorkspaceRoot string
	Policy        *types.ToolPolicy
	log           zerolog.Logger

	// namespaceWarned tracks whether the one-time namespace-unavailable
	// warning has already been logged, so repeated Exec calls under
	// sandbox_mode=namespace without the helper don't spam the log.
	namespaceWarned bool
}

// New constructs a Runner for workspaceRoot under policy.
func New(workspaceRoot string, policy *types.ToolPolicy, log zerolog.Logger) *Runner {
	return &Runner{
		WorkspaceRoot: workspaceRoot,
		Policy:        policy,
		log:           log.With().Str("component", "toolrunner").Logger(),
	}
}

// Run dispatches op to the handler matching its Kind and returns the
// resulting OperationResult. Run never returns a Go error for ordinary
// operational failures — those become OperationResult{Status: error};
// it returns an error only if op.Kind is not
// one of the five recognized variants, which the Parser should never
// produce.
func (r *Runner) Run(ctx context.Context, op types.Operation) (types.OperationResult, error) {
	switch op.Kind {
	case types.OpRead:
		return r.runRead(op), nil
	case types.OpWrite:
		return r.runWrite(op, false), nil
	case types.OpAppend:
		return r.runWrite(op, true), nil
	case types.OpExec:
		return r.runExec(ctx, op), nil
	case types.OpListDir:
		return r.runListDir(op), nil
	default:
		return types.OperationResult{}, fmt.Errorf("toolrunner: unrecognized operation kind %q", op.Kind)
	}
}
