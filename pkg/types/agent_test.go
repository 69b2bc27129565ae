package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelMonotonic(t *testing.T) {
	var prev int
	for xp := int64(0); xp <= 5000; xp += 17 {
		l := Level(xp)
		require.GreaterOrEqual(t, l, prev, "level must never decrease as xp grows (xp=%d)", xp)
		prev = l
	}
}

func TestXPForLevelPinsFirstTenThresholds(t *testing.T) {
	want := []int64{110, 240, 390, 560, 750, 960, 1190, 1440, 1710, 2000}
	for l := 1; l <= 10; l++ {
		assert.Equal(t, want[l-1], XPForLevel(l), "threshold for level %d", l)
	}
}

func TestXPForLevelMatchesLevel(t *testing.T) {
	for l := 1; l <= 10; l++ {
		thresh := XPForLevel(l)
		assert.Equal(t, l, Level(thresh), "xp %d should map back to level %d", thresh, l)
		assert.Less(t, Level(thresh-1), l, "one xp below threshold must not reach level %d", l)
	}
}

func TestLevelBelowFirstThresholdIsZero(t *testing.T) {
	assert.Equal(t, 0, Level(0))
	assert.Equal(t, 0, Level(XPForLevel(1)-1))
}

func TestLevelPastTenUsesGeometricTail(t *testing.T) {
	thresh10 := XPForLevel(10)
	thresh11 := XPForLevel(11)
	assert.Greater(t, thresh11, thresh10)
	assert.Equal(t, 10, Level(thresh11-1))
	assert.Equal(t, 11, Level(thresh11))
}

func TestOperationDedupKeyDistinguishesKind(t *testing.T) {
	read := Operation{Kind: OpRead, Path: "a.txt"}
	list := Operation{Kind: OpListDir, Path: "a.txt"}
	assert.NotEqual(t, read.DedupKey(), list.DedupKey())

	a := Operation{Kind: OpExec, Command: "ls -la"}
	b := Operation{Kind: OpExec, Command: "ls -la"}
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestToolPolicyAllowsCommand(t *testing.T) {
	p := &ToolPolicy{
		AllowList: map[string]struct{}{"ls": {}, "cat": {}},
		DenyList:  map[string]struct{}{"rm": {}},
	}
	assert.True(t, p.AllowsCommand("ls"))
	assert.False(t, p.AllowsCommand("rm"))
	assert.False(t, p.AllowsCommand("unlisted"))
}

func TestToolPolicyTimeoutFallback(t *testing.T) {
	p := &ToolPolicy{
		ExecutionTimeoutSeconds: 30,
		PerToolTimeouts:         map[string]int{"slow_build": 600},
	}
	assert.Equal(t, 600, p.TimeoutFor("slow_build"))
	assert.Equal(t, 30, p.TimeoutFor("ls"))
}
