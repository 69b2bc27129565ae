// Package supervisor is the engine's safety plane: it is the only component
// allowed to change an Agent's status, and it owns mandatory sleep,
// degradation monitoring, the break system, the emergency mailbox, and
// per-agent rate limiting.
package supervisor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/axe-engine/axe/internal/agentregistry"
	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/transcript"
)

// Config holds every supervisor.* key of the configuration surface, plus
// the rate_limit.* pair.
type Config struct {
	WorkHoursThreshold        time.Duration
	TokenThreshold            int64
	SleepMinutes              int
	DegradationScoreThreshold float64
	DegradationCheckEveryN    int
	BreakMaxConcurrentFraction float64
	BreakPerHour              int
	BreakMaxMinutes           int
	RateLimitRPM              int
	RateLimitTPM              int
	MailboxDir                string
	OperatorPublicKeyPath     string
}

// DefaultConfig carries the stock thresholds: six work hours before a
// mandatory half-hour sleep, a 0.20 degradation trip wire, and two
// fifteen-minute breaks per hour at most.
var DefaultConfig = Config{
	WorkHoursThreshold:         6 * time.Hour,
	TokenThreshold:             0, // 0 disables the token-based trigger; wall-clock still applies
	SleepMinutes:               30,
	DegradationScoreThreshold:  0.20,
	DegradationCheckEveryN:     10,
	BreakMaxConcurrentFraction: 0.40,
	BreakPerHour:               2,
	BreakMaxMinutes:            15,
	RateLimitRPM:               60,
	RateLimitTPM:               100000,
	MailboxDir:                 "",
}

// Supervisor enforces the safety policies described above. One Supervisor
// is constructed per session, over that session's Registry and Transcript.
type Supervisor struct {
	mu sync.Mutex

	cfg      Config
	registry *agentregistry.Registry
	tr       *transcript.Transcript
	bus      *eventbus.Bus
	log      zerolog.Logger

	agents map[uuid.UUID]*agentState
	mailbox *mailbox
}

// agentState is the Supervisor's ephemeral per-agent bookkeeping: work
// counters, break history, degradation samples, and a rate-limit bucket.
// None of this is Store-durable; Agent.Status and SleepExpiresAt, which
// live in the Store, are what survives a restart.
type agentState struct {
	activeSince     time.Time
	tokensThisRun   int64
	turnsSinceCheck int
	recentOps       []opOutcome
	lastOpKeys      []string // for doom-loop detection
	breaksTaken     []time.Time
	bucket          *tokenBucket
}

// New constructs a Supervisor. mailboxDir, if non-empty, is created (mode
// 0700) for emergency reports; an empty dir disables the mailbox feature
// (RecordEmergency becomes a logged no-op).
func New(cfg Config, registry *agentregistry.Registry, tr *transcript.Transcript, bus *eventbus.Bus, log zerolog.Logger) *Supervisor {
	s := &Supervisor{
		cfg:      cfg,
		registry: registry,
		tr:       tr,
		bus:      bus,
		log:      log.With().Str("component", "supervisor").Logger(),
		agents:   make(map[uuid.UUID]*agentState),
	}
	if cfg.MailboxDir != "" {
		s.mailbox = newMailbox(cfg.MailboxDir, cfg.OperatorPublicKeyPath, log)
	}
	return s
}

// stateFor returns (creating if needed) the ephemeral state for agentID.
// Callers must hold s.mu.
func (s *Supervisor) stateFor(agentID uuid.UUID, now time.Time) *agentState {
	st, ok := s.agents[agentID]
	if !ok {
		st = &agentState{
			activeSince: now,
			bucket:      newTokenBucket(s.cfg.RateLimitRPM, s.cfg.RateLimitTPM),
		}
		s.agents[agentID] = st
	}
	return st
}
