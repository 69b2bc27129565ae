package toolrunner

import (
	"os"

	"github.com/axe-engine/axe/pkg/types"
)

// runRead implements the Read operation: resolve the path, reject anything
// outside the workspace or matching forbidden_paths, then return file
// contents as text.
func (r *Runner) runRead(op types.Operation) types.OperationResult {
	resolved := resolvePath(op.Path, r.WorkspaceRoot, r.Policy.ForbiddenPaths)
	if resolved.Denied {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: resolved.Reason}
	}

	data, err := os.ReadFile(resolved.Abs)
	if err != nil {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: err.Error()}
	}
	return types.OperationResult{Status: types.ResultOK, Text: string(data)}
}
