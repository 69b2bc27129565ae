// Package transcript is the ordered, append-only session log. It mirrors
// entries into the Store after every append and exposes a token-budgeted
// window for prompt construction plus summarizer-driven compression of its
// oldest range. Compression bounds what the window shows, not what is held
// in memory: the in-memory log keeps every entry, including spans already
// folded into a compressed_summary.
package transcript

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/pkg/types"
)

// SummarizeFunc is the external Summarizer collaborator:
// summarize(range_of_entries, target_tokens) -> text. The core never
// implements summarization itself; it only invokes this callback during
// compression.
type SummarizeFunc func(ctx context.Context, entries []types.TranscriptEntry, targetTokens int) (string, error)

// CompressionConfig controls when and how much of the oldest history gets
// folded into a compressed_summary entry.
type CompressionConfig struct {
	// HighWaterTokens is the total visible-entry token estimate that
	// triggers compression.
	HighWaterTokens int
	// MinMessagesToKeep bounds how much of the tail compression must leave
	// untouched, regardless of how far over HighWaterTokens the total is.
	MinMessagesToKeep int
	// SummaryTargetTokens is passed to the Summarizer as its target length.
	SummaryTargetTokens int
}

// DefaultCompressionConfig holds the stock compaction thresholds.
var DefaultCompressionConfig = CompressionConfig{
	HighWaterTokens:     120000,
	MinMessagesToKeep:   8,
	SummaryTargetTokens: 2000,
}

// Transcript holds the in-memory mirror of one session's append-only log.
type Transcript struct {
	mu        sync.Mutex
	sessionID string
	store     *store.Store
	log       zerolog.Logger

	entries []types.TranscriptEntry // full history in turn_index order, including superseded spans
	covered []coveredRange          // spans already folded into a compressed_summary entry
}

type coveredRange struct {
	start, end int64
}

// New constructs an empty Transcript for sessionID. Call LoadFromStore to
// resume prior state.
func New(sessionID string, st *store.Store, log zerolog.Logger) *Transcript {
	return &Transcript{
		sessionID: sessionID,
		store:     st,
		log:       log.With().Str("component", "transcript").Str("session_id", sessionID).Logger(),
	}
}

// LoadFromStore replaces in-memory state with every entry persisted for the
// session, reconstructing which spans are already covered by a
// compressed_summary entry so compression stays idempotent across resume.
func (t *Transcript) LoadFromStore(ctx context.Context) error {
	entries, err := t.store.LoadTranscript(ctx, t.sessionID, nil)
	if err != nil {
		return fmt.Errorf("transcript: load from store: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = entries
	t.covered = t.covered[:0]
	for _, e := range entries {
		if e.Kind == types.EntryCompressedSummary && e.CompressedRangeStart != nil && e.CompressedRangeEnd != nil {
			t.covered = append(t.covered, coveredRange{*e.CompressedRangeStart, *e.CompressedRangeEnd})
		}
	}
	return nil
}

// Append assigns the entry a turn index via the Store, records it in
// memory, and returns the allocated index. CreatedAt defaults to now if
// unset.
func (t *Transcript) Append(ctx context.Context, entry types.TranscriptEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.TokenCountEstimated == 0 && entry.Body != "" {
		entry.TokenCountEstimated = EstimateTokens(entry.Body)
	}
	idx, err := t.store.AppendTranscript(ctx, t.sessionID, entry)
	if err != nil {
		return 0, fmt.Errorf("transcript: append: %w", err)
	}
	entry.TurnIndex = idx
	entry.SessionID = t.sessionID

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()
	return idx, nil
}

// Len returns the number of entries held in memory (including superseded
// ones still retained for audit).
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// LastTurnIndex returns the highest turn_index appended so far, or -1 if
// empty.
func (t *Transcript) LastTurnIndex() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return -1
	}
	return t.entries[len(t.entries)-1].TurnIndex
}

// isCovered reports whether turnIndex falls inside any already-compressed
// range.
func (t *Transcript) isCovered(turnIndex int64) bool {
	for _, r := range t.covered {
		if turnIndex >= r.start && turnIndex <= r.end {
			return true
		}
	}
	return false
}

// visibleLocked returns entries not superseded by a compression range, in
// turn order. Callers must hold t.mu.
func (t *Transcript) visibleLocked() []types.TranscriptEntry {
	out := make([]types.TranscriptEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.Kind != types.EntryCompressedSummary && t.isCovered(e.TurnIndex) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Window returns the most recent suffix of visible entries whose total
// estimated token count fits within tokenBudget, with any compressed_summary
// entries always included at the start regardless of budget.
func (t *Transcript) Window(tokenBudget int) []types.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	visible := t.visibleLocked()

	var pinned, rest []types.TranscriptEntry
	for _, e := range visible {
		if e.Kind == types.EntryCompressedSummary {
			pinned = append(pinned, e)
		} else {
			rest = append(rest, e)
		}
	}

	used := 0
	for _, e := range pinned {
		used += e.TokenCountEstimated
	}

	var tail []types.TranscriptEntry
	for i := len(rest) - 1; i >= 0; i-- {
		e := rest[i]
		if used+e.TokenCountEstimated > tokenBudget {
			break
		}
		tail = append(tail, e)
		used += e.TokenCountEstimated
	}
	// tail was built backwards; reverse it.
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}

	out := make([]types.TranscriptEntry, 0, len(pinned)+len(tail))
	out = append(out, pinned...)
	out = append(out, tail...)
	return out
}

// EstimateTokens is the transcript's token-count estimator: roughly four
// characters per token. It never needs to be exact; it only needs to be
// monotonic and cheap enough to run on every entry.
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}

// Compress folds the oldest uncovered contiguous span of message/
// operation_result entries into a single compressed_summary entry when the
// visible total exceeds cfg.HighWaterTokens, leaving at least
// cfg.MinMessagesToKeep trailing entries untouched. It is a no-op if the
// threshold isn't crossed or there is nothing eligible to cover.
func (t *Transcript) Compress(ctx context.Context, cfg CompressionConfig, summarize SummarizeFunc) error {
	t.mu.Lock()
	visible := t.visibleLocked()
	total := 0
	for _, e := range visible {
		total += e.TokenCountEstimated
	}
	if total <= cfg.HighWaterTokens {
		t.mu.Unlock()
		return nil
	}

	var eligible []types.TranscriptEntry
	for _, e := range visible {
		if e.Kind == types.EntryMessage || e.Kind == types.EntryOperationResult {
			eligible = append(eligible, e)
		}
	}
	keep := cfg.MinMessagesToKeep
	if keep < 0 {
		keep = 0
	}
	if len(eligible) <= keep {
		t.mu.Unlock()
		return nil
	}
	toCover := eligible[:len(eligible)-keep]
	t.mu.Unlock()

	sort.Slice(toCover, func(i, j int) bool { return toCover[i].TurnIndex < toCover[j].TurnIndex })
	start := toCover[0].TurnIndex
	end := toCover[len(toCover)-1].TurnIndex

	summary, err := summarize(ctx, toCover, cfg.SummaryTargetTokens)
	if err != nil {
		return fmt.Errorf("transcript: summarize range [%d,%d]: %w", start, end, err)
	}

	entry := types.TranscriptEntry{
		Author:               "system",
		Kind:                 types.EntryCompressedSummary,
		Body:                 summary,
		TokenCountEstimated:  EstimateTokens(summary),
		CompressedRangeStart: &start,
		CompressedRangeEnd:   &end,
	}
	if _, err := t.Append(ctx, entry); err != nil {
		return err
	}

	t.mu.Lock()
	t.covered = append(t.covered, coveredRange{start, end})
	t.mu.Unlock()

	t.log.Info().Int64("start", start).Int64("end", end).Msg("compressed transcript range")
	return nil
}
