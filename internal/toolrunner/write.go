package toolrunner

import (
	"os"
	"path/filepath"

	"github.com/axe-engine/axe/pkg/types"
)

// runWrite implements Write and Append, reporting status and bytes
// written. A fuzzy-match hint is attached
// to ErrorMessage on an otherwise-successful Write when the new content
// looks like a near-miss of the existing file rather than a wholesale
// replacement, nudging the agent toward Append next time.
func (r *Runner) runWrite(op types.Operation, isAppend bool) types.OperationResult {
	resolved := resolvePath(op.Path, r.WorkspaceRoot, r.Policy.ForbiddenPaths)
	if resolved.Denied {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: resolved.Reason}
	}
	if !isWritable(resolved.Abs, r.Policy.WritablePaths) {
		return types.OperationResult{Status: types.ResultDenied, ErrorMessage: "path_outside_workspace"}
	}

	if err := os.MkdirAll(filepath.Dir(resolved.Abs), 0o755); err != nil {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: err.Error()}
	}

	before, hadExisting := readExistingForDiff(resolved.Abs)

	var err error
	var n int
	if isAppend {
		n, err = appendToFile(resolved.Abs, op.Content)
	} else {
		err = os.WriteFile(resolved.Abs, []byte(op.Content), 0o644)
		n = len(op.Content)
	}
	if err != nil {
		return types.OperationResult{Status: types.ResultError, ErrorMessage: err.Error()}
	}

	result := types.OperationResult{Status: types.ResultOK, BytesWritten: int64(n)}
	if hadExisting {
		after := op.Content
		if isAppend {
			after = before + op.Content
		}
		if diff, _, _ := buildDiffMetadata(resolved.Abs, before, after, r.WorkspaceRoot); diff != "" {
			result.Diff = diff
		}
	}
	if !isAppend && hadExisting {
		if hint := fuzzyRewriteHint(before, op.Content); hint != "" {
			result.ErrorMessage = hint
		}
	}
	return result
}

func appendToFile(path, content string) (int, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.WriteString(content)
}

func readExistingForDiff(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
