package types

// ResultStatus is the outcome tag of an executed Operation.
type ResultStatus string

const (
	ResultOK     ResultStatus = "ok"
	ResultDenied ResultStatus = "denied"
	ResultError  ResultStatus = "error"
)

// OperationResult is the outcome of executing an Operation. Only the fields
// relevant to the originating Operation's kind are populated; the rest stay
// zero-valued and are omitted from JSON.
type OperationResult struct {
	Status ResultStatus `json:"status"`

	// Read: Text on success, ErrorMessage on failure.
	Text string `json:"text,omitempty"`

	// Write/Append.
	BytesWritten int64 `json:"bytes_written,omitempty"`

	// Exec.
	Stdout     string  `json:"stdout,omitempty"`
	Stderr     string  `json:"stderr,omitempty"`
	ExitCode   int     `json:"exit_code,omitempty"`
	DurationS  float64 `json:"duration_s,omitempty"`

	// ListDir.
	Entries []string `json:"entries,omitempty"`

	// Diff is a unified diff against the previous file contents, attached
	// to Write/Append results when an existing file was modified. This is
	// supplemental diagnostic output, not part of the status contract.
	Diff string `json:"diff,omitempty"`

	// Populated on Denied/Error; also used for supplemental diagnostics
	// (e.g. a fuzzy-match hint) alongside a successful Write result.
	ErrorMessage string `json:"error_message,omitempty"`
}
