package toolrunner

import (
	"os"
	"sort"

	"github.com/axe-engine/axe/pkg/types"
)

// runListDir implements the ListDir operation: resolve the path and return
// the names of its immediate entries, directories suffixed with "/".
func (r *Runner) runListDir(op types.Operation) types.OperationResult {
	resolved := resolvePath(op.Path, r.WorkspaceRoot, r.Policy.ForbiddenPaths)
	if resolved.Denied {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: resolved.Reason}
	}

	entries, err := os.ReadDir(resolved.Abs)
	if err != nil {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: err.Error()}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return types.OperationResult{Status: types.ResultOK, Entries: names}
}
