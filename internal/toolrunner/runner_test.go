package toolrunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/pkg/types"
)

func newTestRunner(t *testing.T, policy *types.ToolPolicy) (*Runner, string) {
	t.Helper()
	root := t.TempDir()
	if policy == nil {
		policy = &types.ToolPolicy{
			AllowList:               map[string]struct{}{"echo": {}, "cat": {}, "ls": {}, "grep": {}},
			ExecutionTimeoutSeconds: 5,
		}
	}
	return New(root, policy, zerolog.Nop()), root
}

func TestRunReadAllowed(t *testing.T) {
	r, root := newTestRunner(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("hi"), 0o644))

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpRead, Path: "notes.md"})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status)
	require.Equal(t, "hi", res.Text)
}

func TestRunReadEscapeAttemptDenied(t *testing.T) {
	r, _ := newTestRunner(t, nil)

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpRead, Path: "/etc/passwd"})
	require.NoError(t, err)
	require.Equal(t, types.ResultDenied, res.Status)
	require.Equal(t, "path_outside_workspace", res.ErrorMessage)
}

func TestRunWriteCreatesFileAndReportsBytes(t *testing.T) {
	r, root := newTestRunner(t, nil)

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpWrite, Path: "out.txt", Content: "hello"})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status)
	require.EqualValues(t, 5, res.BytesWritten)

	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestRunAppendAddsToExistingFile(t *testing.T) {
	r, root := newTestRunner(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "log.txt"), []byte("a\n"), 0o644))

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpAppend, Path: "log.txt", Content: "b\n"})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status)

	data, err := os.ReadFile(filepath.Join(root, "log.txt"))
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))
}

func TestRunExecHeredocPreservedAndValidatedAsSingleCommand(t *testing.T) {
	policy := &types.ToolPolicy{
		AllowList:               map[string]struct{}{"cat": {}},
		ExecutionTimeoutSeconds: 5,
	}
	r, root := newTestRunner(t, policy)

	cmd := "cat > out.md << 'EOF'\n# Title\n- a\nEOF"
	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpExec, Command: cmd})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status, res.ErrorMessage)

	data, err := os.ReadFile(filepath.Join(root, "out.md"))
	require.NoError(t, err)
	require.Equal(t, "# Title\n- a\n", string(data))
}

func TestRunExecDeniedWhenCommandNotAllowListed(t *testing.T) {
	policy := &types.ToolPolicy{AllowList: map[string]struct{}{"echo": {}}, ExecutionTimeoutSeconds: 5}
	r, _ := newTestRunner(t, policy)

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpExec, Command: "rm -rf /"})
	require.NoError(t, err)
	require.Equal(t, types.ResultDenied, res.Status)
}

func TestRunExecSubshellValidatesBothCommands(t *testing.T) {
	policy := &types.ToolPolicy{
		AllowList:               map[string]struct{}{"ls": {}, "grep": {}},
		ExecutionTimeoutSeconds: 5,
	}
	r, _ := newTestRunner(t, policy)

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpExec, Command: "(ls | grep x)"})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status, res.ErrorMessage)
}

func TestRunExecRedirectNoSpaceExtractsBareCommandName(t *testing.T) {
	names, err := extractCommandNames("grep<input")
	require.NoError(t, err)
	require.Equal(t, []string{"grep"}, names)
}

func TestRunReadSymlinkEscapeDenied(t *testing.T) {
	r, root := newTestRunner(t, nil)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.txt")))

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpRead, Path: "link.txt"})
	require.NoError(t, err)
	require.Equal(t, types.ResultDenied, res.Status)
	require.Equal(t, "path_outside_workspace", res.ErrorMessage)
}

func TestRunListDirListsEntries(t *testing.T) {
	r, root := newTestRunner(t, nil)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpListDir, Path: "."})
	require.NoError(t, err)
	require.Equal(t, types.ResultOK, res.Status)
	require.Contains(t, res.Entries, "a.txt")
	require.Contains(t, res.Entries, "sub/")
}

func TestRunExecTimeoutProducesErrorResult(t *testing.T) {
	policy := &types.ToolPolicy{
		AllowList:               map[string]struct{}{"sleep": {}},
		ExecutionTimeoutSeconds: 1,
	}
	r, _ := newTestRunner(t, policy)

	res, err := r.Run(context.Background(), types.Operation{Kind: types.OpExec, Command: "sleep 5"})
	require.NoError(t, err)
	require.Equal(t, types.ResultError, res.Status)
	require.Equal(t, "timeout", res.ErrorMessage)
}
