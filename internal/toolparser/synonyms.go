package toolparser

import "github.com/axe-engine/axe/pkg/types"

// toolSynonyms maps a structured-invocation tool name to the Operation kind
// it produces. Names not present here are ignored rather than
// erroring, so an unrecognized tool name never derails the session.
var toolSynonyms = map[string]types.OperationKind{
	"read_file": types.OpRead, "read": types.OpRead, "cat": types.OpRead,
	"get_file": types.OpRead, "view_file": types.OpRead,

	"write_file": types.OpWrite, "write": types.OpWrite,
	"create_file": types.OpWrite, "save_file": types.OpWrite,

	"append_file": types.OpAppend, "append": types.OpAppend,
	"append_to_file": types.OpAppend,

	"shell": types.OpExec, "bash": types.OpExec, "exec": types.OpExec,
	"run_shell": types.OpExec, "execute": types.OpExec, "run_command": types.OpExec,

	"list_dir": types.OpListDir, "list_directory": types.OpListDir,
	"ls": types.OpListDir, "listdir": types.OpListDir,
}

// paramField tags which Operation field a matched parameter synonym feeds.
type paramField int

const (
	fieldPath paramField = iota
	fieldContent
	fieldCommand
)

// pathSynonyms and directorySynonyms are kept as separate sets
// even though both ultimately populate Operation.Path — "path" belongs to
// both groups, so which one a bare "path" parameter resolves to depends on
// the invoking tool's kind (ListDir uses the directory group).
var pathSynonyms = map[string]bool{"file_path": true, "path": true, "filename": true, "file": true}
var directorySynonyms = map[string]bool{"path": true, "directory": true, "dir": true}
var contentSynonyms = map[string]bool{"content": true, "data": true, "text": true, "contents": true}
var commandSynonyms = map[string]bool{"command": true, "cmd": true, "shell_command": true}

// resolveParam returns the field a parameter name feeds given the operation
// kind it belongs to, or false if the name matches none of the synonym
// tables for that kind.
func resolveParam(name string, kind types.OperationKind) (paramField, bool) {
	if contentSynonyms[name] {
		return fieldContent, true
	}
	if commandSynonyms[name] {
		return fieldCommand, true
	}
	if kind == types.OpListDir {
		if directorySynonyms[name] {
			return fieldPath, true
		}
		return 0, false
	}
	if pathSynonyms[name] {
		return fieldPath, true
	}
	return 0, false
}
