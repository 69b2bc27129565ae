// Package types holds the shared data model for the AXE engine: Agent,
// Operation, OperationResult, Transcript entries, Session, ToolPolicy, and
// WorkshopAnalysis. These are plain structs exchanged between components;
// none of them own behavior beyond simple derivations.
package types

import (
	"time"

	"github.com/google/uuid"
)

// AgentStatus is the lifecycle state of an Agent. Only the Supervisor may
// transition an agent between statuses.
type AgentStatus string

const (
	AgentActive    AgentStatus = "active"
	AgentSleeping  AgentStatus = "sleeping"
	AgentOnBreak   AgentStatus = "on_break"
	AgentDegraded  AgentStatus = "degraded"
	AgentRetired   AgentStatus = "retired"
)

// Agent is a persistent LLM-backed worker identity.
type Agent struct {
	AgentID   uuid.UUID   `json:"agent_id"`
	Alias     string      `json:"alias"`
	ModelRef  string      `json:"model_ref"`
	Role      string      `json:"role"`
	XP        int64       `json:"xp"`
	Level     int         `json:"level"`
	Status    AgentStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// SleepExpiresAt is set when Status == AgentSleeping or AgentOnBreak;
	// the scheduler must not select this agent until this time passes.
	SleepExpiresAt *time.Time `json:"sleep_expires_at,omitempty"`
	// IsSupervisor marks the single agent holding the supervisor role.
	IsSupervisor bool `json:"is_supervisor"`
}

// xpThresholds caches level->total-xp-required for levels 1..10; computed
// once from the formula thresh(L) = 100*L + 10*L^2.
var xpThresholds = func() [11]int64 {
	var t [11]int64
	for l := 1; l <= 10; l++ {
		t[l] = int64(100*l + 10*l*l)
	}
	return t
}()

// thresh10 is thresh(10), the pivot used by the post-10 geometric curve.
var thresh10 = xpThresholds[10]

// Level returns the level implied by an XP total, per the piecewise curve:
// thresh(L) = 100L + 10L^2 for L<=10, then a compounding 1.2x-per-level
// curve above that. Level 0 covers any XP below thresh(1).
func Level(xp int64) int {
	if xp < xpThresholds[1] {
		return 0
	}
	level := 0
	for l := 1; l <= 10; l++ {
		if xp >= xpThresholds[l] {
			level = l
		} else {
			return level
		}
	}
	// xp >= thresh(10); climb the geometric tail.
	total := float64(thresh10)
	increment := 500.0
	for l := 11; ; l++ {
		total += increment * pow1_2(l-10)
		if xp < int64(total) {
			return l - 1
		}
		level = l
	}
}

// pow1_2 computes 1.2^n for small non-negative n without pulling in math.Pow
// (kept deliberately simple; n is bounded by realistic level counts).
func pow1_2(n int) float64 {
	r := 1.0
	for i := 0; i < n; i++ {
		r *= 1.2
	}
	return r
}

// XPForLevel returns the total XP required to reach level L (L>=1),
// matching the same curve Level uses. Tests use it to pin the first ten
// thresholds.
func XPForLevel(l int) int64 {
	if l <= 0 {
		return 0
	}
	if l <= 10 {
		return xpThresholds[l]
	}
	total := float64(thresh10)
	for k := 11; k <= l; k++ {
		total += 500.0 * pow1_2(k-10)
	}
	return int64(total)
}
