package transcript

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/pkg/types"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "axe.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAssignsSequentialTurnIndex(t *testing.T) {
	ctx := context.Background()
	tr := New("sess1", openTestStore(t), zerolog.Nop())

	idx0, err := tr.Append(ctx, types.TranscriptEntry{Author: "a1", Kind: types.EntryMessage, Body: "hello"})
	require.NoError(t, err)
	idx1, err := tr.Append(ctx, types.TranscriptEntry{Author: "tool", Kind: types.EntryOperationResult, Body: "ok"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), idx0)
	assert.Equal(t, int64(1), idx1)
	assert.Equal(t, int64(1), tr.LastTurnIndex())
	assert.Equal(t, 2, tr.Len())
}

func TestWindowReturnsMostRecentSuffixWithinBudget(t *testing.T) {
	ctx := context.Background()
	tr := New("sess1", openTestStore(t), zerolog.Nop())

	for i := 0; i < 5; i++ {
		_, err := tr.Append(ctx, types.TranscriptEntry{
			Author: "a1", Kind: types.EntryMessage, Body: "aaaa", // 1 token each via EstimateTokens
		})
		require.NoError(t, err)
	}

	win := tr.Window(3)
	require.Len(t, win, 3)
	assert.Equal(t, int64(2), win[0].TurnIndex)
	assert.Equal(t, int64(4), win[2].TurnIndex)
}

func TestCompressReplacesOldestRangeWithSummary(t *testing.T) {
	ctx := context.Background()
	tr := New("sess1", openTestStore(t), zerolog.Nop())

	// 20 entries, each body long enough to estimate to > 1 token.
	for i := 0; i < 20; i++ {
		_, err := tr.Append(ctx, types.TranscriptEntry{
			Author: "a1", Kind: types.EntryMessage, Body: fmt.Sprintf("message number %d padded out", i),
		})
		require.NoError(t, err)
	}

	cfg := CompressionConfig{HighWaterTokens: 10, MinMessagesToKeep: 4, SummaryTargetTokens: 100}
	called := false
	err := tr.Compress(ctx, cfg, func(ctx context.Context, entries []types.TranscriptEntry, target int) (string, error) {
		called = true
		assert.NotEmpty(t, entries)
		return "summary of earlier turns", nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	win := tr.Window(100000)
	require.NotEmpty(t, win)
	assert.Equal(t, types.EntryCompressedSummary, win[0].Kind)
	assert.Equal(t, "summary of earlier turns", win[0].Body)

	// Reloading from the store reconstructs the covered range, so the
	// summary still leads the window of a freshly loaded Transcript.
	tr2 := New("sess1", tr.store, zerolog.Nop())
	require.NoError(t, tr2.LoadFromStore(ctx))
	win2 := tr2.Window(100000)
	assert.Equal(t, types.EntryCompressedSummary, win2[0].Kind)
}

func TestCompressNoOpBelowHighWaterMark(t *testing.T) {
	ctx := context.Background()
	tr := New("sess1", openTestStore(t), zerolog.Nop())
	_, err := tr.Append(ctx, types.TranscriptEntry{Author: "a1", Kind: types.EntryMessage, Body: "hi"})
	require.NoError(t, err)

	err = tr.Compress(ctx, DefaultCompressionConfig, func(ctx context.Context, entries []types.TranscriptEntry, target int) (string, error) {
		t.Fatal("summarize should not be called below the high-water mark")
		return "", nil
	})
	require.NoError(t, err)
}
