package types

import "time"

// EntryKind tags what a Transcript entry represents.
type EntryKind string

const (
	EntryMessage           EntryKind = "message"
	EntryOperationResult   EntryKind = "operation_result"
	EntrySystemNote        EntryKind = "system_note"
	EntryCompressedSummary EntryKind = "compressed_summary"
)

// TranscriptEntry is one row of the ordered, append-only session log, keyed
// by (session_id, turn_index).
type TranscriptEntry struct {
	SessionID           string    `json:"session_id"`
	TurnIndex           int64     `json:"turn_index"`
	Author              string    `json:"author"` // agent alias, "system", or "tool"
	Kind                EntryKind `json:"kind"`
	Body                string    `json:"body"`
	TokenCountEstimated int       `json:"token_count_estimated"`
	CreatedAt           time.Time `json:"created_at"`

	// LogicalTurn is the selection-order stamp used under parallel
	// dispatch to preserve causality even when entries arrive out of
	// selection order for later replay.
	LogicalTurn int64 `json:"logical_turn"`

	// CompressedRange is populated only on EntryCompressedSummary entries:
	// the inclusive turn-index range the summary replaces.
	CompressedRangeStart *int64 `json:"compressed_range_start,omitempty"`
	CompressedRangeEnd   *int64 `json:"compressed_range_end,omitempty"`
}
