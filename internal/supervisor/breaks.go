package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/pkg/types"
)

// RequestBreak evaluates a [[BREAK: minutes, reason]] control token against
// three gates: global break load, counting this request, no more than
// BreakMaxConcurrentFraction of the non-retired pool, fewer than BreakPerHour
// breaks taken by this agent in the last hour, and a requested duration no
// longer than BreakMaxMinutes. Granting transitions the agent to on_break;
// denial leaves its status untouched.
func (s *Supervisor) RequestBreak(ctx context.Context, agentID uuid.UUID, minutes int, reason string) (granted bool, err error) {
	now := time.Now().UTC()

	if minutes > s.cfg.BreakMaxMinutes {
		s.publishBreakDenied(agentID, reason, "duration exceeds BreakMaxMinutes")
		return false, nil
	}

	s.mu.Lock()
	st := s.stateFor(agentID, now)
	cutoff := now.Add(-time.Hour)
	recent := st.breaksTaken[:0]
	for _, t := range st.breaksTaken {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	st.breaksTaken = recent
	tooMany := len(st.breaksTaken) >= s.cfg.BreakPerHour
	s.mu.Unlock()

	if tooMany {
		s.publishBreakDenied(agentID, reason, "per-agent break-per-hour quota exceeded")
		return false, nil
	}

	total := 0
	onBreak := 0
	for _, a := range s.registry.ListAll() {
		if a.Status == types.AgentRetired {
			continue
		}
		total++
		if a.Status == types.AgentOnBreak {
			onBreak++
		}
	}
	if total > 0 && float64(onBreak+1)/float64(total) > s.cfg.BreakMaxConcurrentFraction {
		s.publishBreakDenied(agentID, reason, "global break load exceeds BreakMaxConcurrentFraction")
		return false, nil
	}

	expires := now.Add(time.Duration(minutes) * time.Minute)
	if err := s.registry.SetStatus(ctx, agentID, types.AgentOnBreak, reason, &expires); err != nil {
		return false, fmt.Errorf("supervisor: grant break: %w", err)
	}

	s.mu.Lock()
	st.breaksTaken = append(st.breaksTaken, now)
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.BreakGranted, Data: map[string]any{
			"agent_id": agentID.String(), "minutes": minutes, "reason": reason,
		}})
	}
	return true, nil
}

func (s *Supervisor) publishBreakDenied(agentID uuid.UUID, reason, denialReason string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.BreakDenied, Data: map[string]any{
		"agent_id": agentID.String(), "reason": reason, "denied_because": denialReason,
	}})
}
