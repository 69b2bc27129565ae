package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/pkg/types"
)

// Tick performs the Supervisor's per-turn observation: wake
// any sleeping/on_break agent whose timer has expired, then check every
// active agent's accumulated work counters against the mandatory-sleep
// thresholds.
func (s *Supervisor) Tick(ctx context.Context, now time.Time) error {
	if _, err := s.registry.WakeExpiredSleepers(ctx, now); err != nil {
		return fmt.Errorf("supervisor: wake expired sleepers: %w", err)
	}

	s.mu.Lock()
	for id := range s.agents {
		s.resetIfWoke(id, now)
	}
	s.mu.Unlock()

	for _, agent := range s.registry.ListActive() {
		if err := s.checkMandatorySleep(ctx, agent, now); err != nil {
			return err
		}
	}
	return nil
}

// resetIfWoke zeroes an agent's work counters once the registry reports it
// active again after a sleep. Callers must hold s.mu.
func (s *Supervisor) resetIfWoke(id uuid.UUID, now time.Time) {
	agent, err := s.registry.Resolve(id.String())
	if err != nil || agent.Status != types.AgentActive {
		return
	}
	st := s.agents[id]
	if st != nil && st.activeSince.IsZero() {
		st.activeSince = now
		st.tokensThisRun = 0
	}
}

// checkMandatorySleep transitions agent to sleeping if either its active
// wall-clock time or its processed-token count has crossed threshold.
func (s *Supervisor) checkMandatorySleep(ctx context.Context, agent *types.Agent, now time.Time) error {
	s.mu.Lock()
	st := s.stateFor(agent.AgentID, now)
	elapsed := now.Sub(st.activeSince)
	tokens := st.tokensThisRun
	s.mu.Unlock()

	overWork := s.cfg.WorkHoursThreshold > 0 && elapsed >= s.cfg.WorkHoursThreshold
	overTokens := s.cfg.TokenThreshold > 0 && tokens >= s.cfg.TokenThreshold
	if !overWork && !overTokens {
		return nil
	}
	return s.putToSleep(ctx, agent.AgentID, "mandatory: work threshold exceeded", now)
}

// putToSleep transitions agent.AgentID to sleeping with the configured
// duration and resets its work counters. Also used by degradation checks.
func (s *Supervisor) putToSleep(ctx context.Context, agentID uuid.UUID, reason string, now time.Time) error {
	expires := now.Add(time.Duration(s.cfg.SleepMinutes) * time.Minute)
	if err := s.registry.SetStatus(ctx, agentID, types.AgentSleeping, reason, &expires); err != nil {
		return fmt.Errorf("supervisor: put agent to sleep: %w", err)
	}

	s.mu.Lock()
	st := s.stateFor(agentID, now)
	st.activeSince = time.Time{}
	st.tokensThisRun = 0
	st.turnsSinceCheck = 0
	st.recentOps = nil
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.AgentSleeping, Data: map[string]any{
			"agent_id": agentID.String(), "reason": reason, "expires_at": expires,
		}})
	}
	return nil
}

// RequestSleep honors an explicit [[SLEEP: minutes, reason]] control token
// from an agent's reply. Duration is clamped to [1, 240] minutes.
func (s *Supervisor) RequestSleep(ctx context.Context, agentID uuid.UUID, minutes int, reason string) error {
	if minutes < 1 {
		minutes = 1
	}
	if minutes > 240 {
		minutes = 240
	}
	now := time.Now().UTC()
	expires := now.Add(time.Duration(minutes) * time.Minute)
	if err := s.registry.SetStatus(ctx, agentID, types.AgentSleeping, "requested: "+reason, &expires); err != nil {
		return fmt.Errorf("supervisor: honor sleep request: %w", err)
	}
	s.mu.Lock()
	if st, ok := s.agents[agentID]; ok {
		st.activeSince = time.Time{}
		st.tokensThisRun = 0
	}
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.AgentSleeping, Data: map[string]any{
			"agent_id": agentID.String(), "reason": reason, "requested": true,
		}})
	}
	return nil
}

// RecordTurnUsage updates an agent's accumulated work counters after a
// turn's provider dispatch completes, then checks whether the update
// crossed a mandatory-sleep threshold.
func (s *Supervisor) RecordTurnUsage(ctx context.Context, agentID uuid.UUID, tokensUsed int64) error {
	now := time.Now().UTC()
	s.mu.Lock()
	st := s.stateFor(agentID, now)
	st.tokensThisRun += tokensUsed
	s.mu.Unlock()

	agent, err := s.registry.Resolve(agentID.String())
	if err != nil {
		return nil // agent may have just been retired; nothing to do
	}
	if agent.Status != types.AgentActive {
		return nil
	}
	return s.checkMandatorySleep(ctx, agent, now)
}

// EmergencyOverrideAllowed implements the mandatory-sleep override clause:
// permitted only if task completion is below 10% and the override is
// logged by the caller (the scheduler records the override event itself;
// this just evaluates the gate).
func (s *Supervisor) EmergencyOverrideAllowed(completionFraction float64) bool {
	return completionFraction < 0.10
}
