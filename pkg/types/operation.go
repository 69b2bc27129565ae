package types

// OperationKind tags the variant of a parsed tool call. ToolParser produces
// these; ToolRunner matches on the tag, never on a string name.
type OperationKind string

const (
	OpRead    OperationKind = "read"
	OpWrite   OperationKind = "write"
	OpAppend  OperationKind = "append"
	OpExec    OperationKind = "exec"
	OpListDir OperationKind = "list_dir"
)

// Operation is a parsed, not-yet-executed tool call. Only the fields
// relevant to Kind are populated; paths and command strings are kept
// exactly as emitted by the agent, unresolved and unsanitized beyond the
// parser's filename cleanup (see toolparser).
type Operation struct {
	Kind OperationKind `json:"kind"`

	// Path is used by Read, Write, Append, ListDir.
	Path string `json:"path,omitempty"`
	// Content is used by Write, Append.
	Content string `json:"content,omitempty"`
	// Command is the raw command string for Exec, preserved byte-for-byte.
	Command string `json:"command,omitempty"`
}

// DedupKey returns a value suitable for order-preserving deduplication: two
// Operations that would execute identically produce the same key.
func (o Operation) DedupKey() string {
	switch o.Kind {
	case OpExec:
		return string(o.Kind) + "\x00" + o.Command
	case OpWrite, OpAppend:
		return string(o.Kind) + "\x00" + o.Path + "\x00" + o.Content
	default:
		return string(o.Kind) + "\x00" + o.Path
	}
}
