package toolparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/pkg/types"
)

func TestParse_EmptyReply(t *testing.T) {
	ops := Parse("")
	assert.Empty(t, ops)
}

func TestParse_FencedRead(t *testing.T) {
	ops := Parse("```READ notes.md```")
	require.Len(t, ops, 1)
	assert.Equal(t, types.Operation{Kind: types.OpRead, Path: "notes.md"}, ops[0])
}

func TestParse_FencedWriteWithContent(t *testing.T) {
	reply := "```WRITE out.md\n# Title\n- a\n```"
	ops := Parse(reply)
	require.Len(t, ops, 1)
	assert.Equal(t, types.OpWrite, ops[0].Kind)
	assert.Equal(t, "out.md", ops[0].Path)
	assert.Equal(t, "# Title\n- a", ops[0].Content)
}

func TestParse_FencedExecEscapeAttempt(t *testing.T) {
	ops := Parse("```EXEC cat /etc/passwd```")
	require.Len(t, ops, 1)
	assert.Equal(t, types.OpExec, ops[0].Kind)
	assert.Equal(t, "cat /etc/passwd", ops[0].Command)
}

func TestParse_ShellFencedMultiLine(t *testing.T) {
	reply := "```bash\nls -la\necho hi\n```"
	ops := Parse(reply)
	require.Len(t, ops, 2)
	assert.Equal(t, "ls -la", ops[0].Command)
	assert.Equal(t, "echo hi", ops[1].Command)
}

func TestParse_ShellFencedCommentsOnly(t *testing.T) {
	ops := Parse("```bash\n# just a comment\n# another\n```")
	assert.Empty(t, ops)
}

func TestParse_ShellFencedHeredocIsSingleExec(t *testing.T) {
	reply := "```bash\ncat > out.md << 'EOF'\n# Title\n- a\nEOF\n```"
	ops := Parse(reply)
	require.Len(t, ops, 1)
	assert.Equal(t, types.OpExec, ops[0].Kind)
	assert.Contains(t, ops[0].Command, "cat > out.md << 'EOF'")
	assert.Contains(t, ops[0].Command, "# Title")
}

func TestParse_ShellFencedShellTag(t *testing.T) {
	ops := Parse("```shell\nls -la\n```")
	require.Len(t, ops, 1)
	assert.Equal(t, "ls -la", ops[0].Command)
}

func TestParse_DedupAcrossForms(t *testing.T) {
	reply := "<bash>ls -la</bash>\n```bash\nls -la\n```"
	ops := Parse(reply)
	require.Len(t, ops, 1)
	assert.Equal(t, "ls -la", ops[0].Command)
}

func TestParse_InlineBashTag(t *testing.T) {
	ops := Parse("<bash>echo hi</bash>")
	require.Len(t, ops, 1)
	assert.Equal(t, types.OpExec, ops[0].Kind)
	assert.Equal(t, "echo hi", ops[0].Command)
}

func TestParse_SimpleNamedTags(t *testing.T) {
	reply := `<read_file>a.txt</read_file><shell>pwd</shell><write_file path="b.txt">hello</write_file>`
	ops := Parse(reply)
	require.Len(t, ops, 3)
	assert.Equal(t, types.Operation{Kind: types.OpRead, Path: "a.txt"}, ops[0])
	assert.Equal(t, types.Operation{Kind: types.OpExec, Command: "pwd"}, ops[1])
	assert.Equal(t, types.Operation{Kind: types.OpWrite, Path: "b.txt", Content: "hello"}, ops[2])
}

func TestParse_InvokeEnvelopeReadWriteExecListDir(t *testing.T) {
	reply := `<function_calls>
<invoke name="read_file">
<parameter name="path">foo.go</parameter>
</invoke>
<invoke name="write">
<parameter name="file_path">bar.go</parameter>
<parameter name="content">package bar</parameter>
</invoke>
<invoke name="shell">
<parameter name="command">go build ./...</parameter>
</invoke>
<invoke name="list_dir">
<parameter name="path">internal</parameter>
</invoke>
</function_calls>`
	ops := Parse(reply)
	require.Len(t, ops, 4)
	assert.Equal(t, types.Operation{Kind: types.OpRead, Path: "foo.go"}, ops[0])
	assert.Equal(t, types.Operation{Kind: types.OpWrite, Path: "bar.go", Content: "package bar"}, ops[1])
	assert.Equal(t, types.Operation{Kind: types.OpExec, Command: "go build ./..."}, ops[2])
	assert.Equal(t, types.Operation{Kind: types.OpListDir, Path: "internal"}, ops[3])
}

func TestParse_InvokeEnvelopeUnknownToolIgnored(t *testing.T) {
	reply := `<function_calls>
<invoke name="launch_missiles">
<parameter name="target">moon</parameter>
</invoke>
</function_calls>`
	ops := Parse(reply)
	assert.Empty(t, ops)
}

func TestParse_InvokeEnvelopeSynonymNames(t *testing.T) {
	reply := `<function_calls>
<invoke name="cat">
<parameter name="filename">x.go</parameter>
</invoke>
<invoke name="append_to_file">
<parameter name="file">log.txt</parameter>
<parameter name="data">more</parameter>
</invoke>
</function_calls>`
	ops := Parse(reply)
	require.Len(t, ops, 2)
	assert.Equal(t, types.Operation{Kind: types.OpRead, Path: "x.go"}, ops[0])
	assert.Equal(t, types.Operation{Kind: types.OpAppend, Path: "log.txt", Content: "more"}, ops[1])
}

func TestParse_PathSanitization(t *testing.T) {
	ops := Parse("```READ `notes.md` ```")
	require.Len(t, ops, 1)
	assert.Equal(t, "notes.md", ops[0].Path)
}

func TestParse_PathTraversalPreservedVerbatim(t *testing.T) {
	ops := Parse("```READ ../../etc/passwd```")
	require.Len(t, ops, 1)
	assert.Equal(t, "../../etc/passwd", ops[0].Path)
}

func TestParse_OrderPreservedAcrossMixedForms(t *testing.T) {
	reply := "<shell>one</shell>\n```EXEC two```\n<bash>three</bash>"
	ops := Parse(reply)
	require.Len(t, ops, 3)
	assert.Equal(t, "one", ops[0].Command)
	assert.Equal(t, "two", ops[1].Command)
	assert.Equal(t, "three", ops[2].Command)
}

func TestParse_MalformedInputNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Parse("```READ\n```WRITE<invoke name=\"x\"><parameter name=\"y\">z")
	})
}
