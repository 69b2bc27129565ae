package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/axe-engine/axe/internal/agentregistry"
	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/provider"
	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/internal/supervisor"
	"github.com/axe-engine/axe/internal/toolparser"
	"github.com/axe-engine/axe/internal/toolrunner"
	"github.com/axe-engine/axe/internal/transcript"
	"github.com/axe-engine/axe/pkg/types"
)

// ParseFunc is the ToolParser collaborator's entry point, injected so tests
// can substitute a stub without depending on toolparser's regexes.
type ParseFunc func(reply string) []types.Operation

// GitHubApprover is the optional GitHub collaborator: invoked only
// when a reply carries `[[GITHUB_READY: branch, message]]` and the session
// was started with github_enabled. No concrete implementation lives in the
// core; a nil Approver makes the control token a logged no-op.
type GitHubApprover interface {
	Approve(ctx context.Context, branch, commitMessage, diff string) (approved bool, err error)
}

// Config bundles the per-session tunables the construction order doesn't
// already carry via its component arguments.
type Config struct {
	// SystemPrompts maps agent alias to its configured
	// default_system_prompt.
	SystemPrompts map[string]string
	// WindowTokens bounds the Transcript slice built into each prompt
	// (`transcript.window_tokens`).
	WindowTokens int
	// Compression controls when the Transcript folds its oldest range.
	Compression transcript.CompressionConfig
	// LevelPreemptionMargin is how far a candidate's level must exceed
	// every other candidate's for it to preempt round-robin order.
	LevelPreemptionMargin int
}

// DefaultConfig fills WindowTokens, LevelPreemptionMargin and Compression
// with their stock values and leaves SystemPrompts empty; the
// session-specific prompts are supplied by the caller.
func DefaultConfig() Config {
	return Config{
		SystemPrompts:         map[string]string{},
		WindowTokens:          4000,
		Compression:           transcript.DefaultCompressionConfig,
		LevelPreemptionMargin: 3,
	}
}

// Scheduler drives exactly one Session. It is constructed last in the
// wiring order: Store → AgentRegistry → Transcript → Supervisor(Registry,
// Transcript) → Scheduler(Registry, Transcript, Supervisor, Runner,
// Parser, Provider, Summarizer).
type Scheduler struct {
	mu sync.Mutex

	session *types.Session

	registry *agentregistry.Registry
	tr       *transcript.Transcript
	sup      *supervisor.Supervisor
	runner   *toolrunner.Runner
	parse    ParseFunc
	prov     provider.Provider
	summ     provider.Summarizer
	store    *store.Store
	bus      *eventbus.Bus
	github   GitHubApprover
	log      zerolog.Logger

	cfg Config

	roundRobinOrder []string // aliases, stable order established at first turn
	lastSelected    string

	// logicalTurn counts selections in order; every entry appended during
	// a turn carries it, so entries persisted under parallel dispatch can
	// be replayed in selection order even when dispatch runs in parallel.
	logicalTurn int64

	// xpAtStart snapshots each alias's XP when the scheduler is built, so
	// the final summary can report per-agent deltas.
	xpAtStart map[string]int64

	// completionVotes keeps, per alias, whether its last two turns carried
	// [[TASK_COMPLETE]] — unanimity requires the literal token across the
	// last two turns, never substring matching.
	completionVotes map[string][2]bool

	// pendingNotes holds supervisor notes tagged for a specific alias,
	// consumed (and cleared) the next time that alias's prompt is built.
	pendingNotes map[string][]string

	stopped bool
}

// New constructs a Scheduler. parse defaults to toolparser.Parse when nil.
func New(
	session *types.Session,
	registry *agentregistry.Registry,
	tr *transcript.Transcript,
	sup *supervisor.Supervisor,
	runner *toolrunner.Runner,
	parse ParseFunc,
	prov provider.Provider,
	summ provider.Summarizer,
	st *store.Store,
	bus *eventbus.Bus,
	github GitHubApprover,
	cfg Config,
	log zerolog.Logger,
) *Scheduler {
	if parse == nil {
		parse = toolparser.Parse
	}
	xpAtStart := make(map[string]int64)
	for _, a := range registry.ListAll() {
		xpAtStart[a.Alias] = a.XP
	}
	return &Scheduler{
		session:         session,
		registry:        registry,
		tr:              tr,
		sup:             sup,
		runner:          runner,
		parse:           parse,
		prov:            prov,
		summ:            summ,
		store:           st,
		bus:             bus,
		github:          github,
		cfg:             cfg,
		log:             log.With().Str("component", "scheduler").Str("session_id", session.SessionID).Logger(),
		completionVotes: make(map[string][2]bool),
		pendingNotes:    make(map[string][]string),
		xpAtStart:       xpAtStart,
	}
}

// NoteForAgent queues a supervisor note to be included in alias's next
// built prompt.
func (s *Scheduler) NoteForAgent(alias, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingNotes[alias] = append(s.pendingNotes[alias], note)
}

// Run drives the session to termination, one turn per iteration, and
// returns the final Session. ctx cancellation stops the scheduler after
// the in-flight turn (if any) completes; operations already dispatched to
// the Runner still run to completion and are persisted.
func (s *Scheduler) Run(ctx context.Context) (*types.Session, error) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.SessionStarted, Data: s.session.SessionID})
	}

	for {
		if reason, done := s.checkTermination(); done {
			return s.finish(ctx, reason)
		}
		select {
		case <-ctx.Done():
			return s.finish(ctx, "cancelled: "+ctx.Err().Error())
		default:
		}

		advanced, err := s.runOneTurn(ctx)
		if err != nil {
			if errors.Is(err, store.ErrCorrupt) {
				return s.finish(ctx, fmt.Sprintf("fatal store error: %v", err))
			}
			s.log.Error().Err(err).Msg("turn failed; continuing session")
		}
		if !advanced {
			// No eligible agent this round (all asleep/rate-limited/on
			// break); tick the supervisor so timers can expire and try
			// again shortly.
			if err := s.sup.Tick(ctx, time.Now().UTC()); err != nil {
				return s.finish(ctx, fmt.Sprintf("fatal supervisor tick error: %v", err))
			}
			select {
			case <-ctx.Done():
				return s.finish(ctx, "cancelled: "+ctx.Err().Error())
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Scheduler) finish(ctx context.Context, reason string) (*types.Session, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return s.session, nil
	}
	s.stopped = true
	now := time.Now().UTC()
	s.session.EndedAt = &now
	s.mu.Unlock()

	summary := fmt.Sprintf("session ended: %s; tokens_used=%d%s", reason, s.session.TokensUsed, s.xpSummary())
	if _, err := s.tr.Append(ctx, types.TranscriptEntry{
		Author: "system", Kind: types.EntrySystemNote, Body: summary,
	}); err != nil {
		s.log.Error().Err(err).Msg("failed to append final summary entry")
	}
	if err := s.store.SaveSession(ctx, s.session); err != nil {
		s.log.Error().Err(err).Msg("failed to persist final session state")
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.SessionEnded, Data: map[string]any{
			"session_id": s.session.SessionID, "reason": reason, "tokens_used": s.session.TokensUsed,
		}})
	}
	s.log.Info().Str("reason", reason).Msg("session ended")
	return s.session, nil
}

// checkTermination evaluates the four termination conditions: time
// budget, token budget, no recoverable agents, unanimous completion.
func (s *Scheduler) checkTermination() (reason string, done bool) {
	now := time.Now().UTC()

	if s.session.TimeBudgetSecs > 0 && now.Sub(s.session.StartedAt) >= time.Duration(s.session.TimeBudgetSecs)*time.Second {
		return "time budget exhausted", true
	}
	if s.session.TokenBudgetTotal > 0 && s.session.TokensUsed >= s.session.TokenBudgetTotal {
		return "token budget exhausted", true
	}

	agents := s.registry.ListAll()
	var nonRetired []*types.Agent
	for _, a := range agents {
		if a.Status != types.AgentRetired {
			nonRetired = append(nonRetired, a)
		}
	}
	if len(nonRetired) == 0 {
		return "no agents registered", true
	}
	allInactive := true
	var earliestRecovery *time.Time
	for _, a := range nonRetired {
		if a.Status == types.AgentActive {
			allInactive = false
			break
		}
		if a.SleepExpiresAt != nil && (earliestRecovery == nil || a.SleepExpiresAt.Before(*earliestRecovery)) {
			earliestRecovery = a.SleepExpiresAt
		}
	}
	if allInactive {
		remaining := time.Duration(s.session.TimeBudgetSecs)*time.Second - now.Sub(s.session.StartedAt)
		if earliestRecovery == nil || earliestRecovery.Sub(now) > remaining {
			return "all agents inactive with no recovery time before budget exhaustion", true
		}
	}

	if s.unanimousCompletion(nonRetired) {
		return "unanimous task completion", true
	}
	return "", false
}

func (s *Scheduler) unanimousCompletion(agents []*types.Agent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := 0
	for _, a := range agents {
		if a.Status == types.AgentRetired {
			continue
		}
		active++
		votes, ok := s.completionVotes[a.Alias]
		if !ok || !votes[0] || !votes[1] {
			return false
		}
	}
	return active > 0
}

// xpSummary renders per-agent XP deltas since the scheduler was built, for
// the final summary entry.
func (s *Scheduler) xpSummary() string {
	agents := s.registry.ListAll()
	sort.Slice(agents, func(i, j int) bool { return agents[i].Alias < agents[j].Alias })
	var sb strings.Builder
	for _, a := range agents {
		delta := a.XP - s.xpAtStart[a.Alias]
		sb.WriteString(fmt.Sprintf("; %s xp=%d (%+d) level=%d", a.Alias, a.XP, delta, a.Level))
	}
	return sb.String()
}
