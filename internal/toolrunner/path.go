package toolrunner

import (
	"path/filepath"
	"strings"
)

// resolvedPath is the outcome of resolvePath: either an absolute,
// workspace-confined path, or the path_outside_workspace denial reason.
type resolvedPath struct {
	Abs    string
	Denied bool
	Reason string
}

// resolvePath resolves a Read/Write/Append/ListDir path:
// absolute paths are accepted only when the workspace root is a
// separator-aligned prefix (or exact match); relative paths are joined with
// the workspace root. forbiddenPaths is checked against the resulting
// canonical path.
func resolvePath(path, workspaceRoot string, forbiddenPaths []string) resolvedPath {
	var abs string
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Clean(filepath.Join(workspaceRoot, path))
	}
	abs = canonicalPath(abs)

	root := canonicalPath(filepath.Clean(workspaceRoot))
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return resolvedPath{Abs: abs, Denied: true, Reason: "path_outside_workspace"}
	}

	for _, forbidden := range forbiddenPaths {
		fp := filepath.Clean(forbidden)
		if abs == fp || strings.HasPrefix(abs, fp+string(filepath.Separator)) {
			return resolvedPath{Abs: abs, Denied: true, Reason: "path_outside_workspace"}
		}
	}

	return resolvedPath{Abs: abs}
}

// canonicalPath resolves symlinks so a link inside the workspace pointing
// elsewhere cannot smuggle an operation past the prefix check. A path that
// does not exist yet (the Write case) canonicalizes through its parent
// directory instead.
func canonicalPath(p string) string {
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		return resolved
	}
	if resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(resolvedDir, filepath.Base(p))
	}
	return p
}

// isWritable reports whether abs falls under one of the writable_paths
// prefixes. An empty writablePaths list is treated as "entire workspace is
// writable" — the common case where policy doesn't narrow writes further
// than the workspace boundary already checked by resolvePath.
func isWritable(abs string, writablePaths []string) bool {
	if len(writablePaths) == 0 {
		return true
	}
	for _, wp := range writablePaths {
		wpc := filepath.Clean(wp)
		if abs == wpc || strings.HasPrefix(abs, wpc+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// containsForbiddenSubstring checks the raw (unresolved) command string for
// any forbidden_paths prefix appearing verbatim — the whole-string check
// applied to Exec commands on top of per-path resolution.
func containsForbiddenSubstring(raw string, forbiddenPaths []string) bool {
	for _, fp := range forbiddenPaths {
		if fp != "" && strings.Contains(raw, fp) {
			return true
		}
	}
	return false
}
