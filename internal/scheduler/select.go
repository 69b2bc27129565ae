package scheduler

import (
	"github.com/axe-engine/axe/pkg/types"
)

// eligible returns the active agents whose rate limit currently allows a
// dispatch. Sleeping, on-break, degraded, and retired agents
// are never candidates. The check is non-consuming; the selected agent's
// capacity is drawn in runOneTurn just before dispatch.
func (s *Scheduler) eligible() []*types.Agent {
	var out []*types.Agent
	for _, a := range s.registry.ListActive() {
		if ok, _ := s.sup.CanDispatch(a.AgentID, 0); ok {
			out = append(out, a)
		}
	}
	return out
}

// selectNext picks the next agent to run: round-robin
// order, unless some candidate's level exceeds every other candidate's by
// at least cfg.LevelPreemptionMargin, in which case that agent preempts
// the rotation.
func (s *Scheduler) selectNext(candidates []*types.Agent) *types.Agent {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 {
		s.lastSelected = candidates[0].Alias
		return candidates[0]
	}

	if preempt := s.levelPreemption(candidates); preempt != nil {
		s.lastSelected = preempt.Alias
		return preempt
	}

	s.syncRoundRobinOrder(candidates)
	next := s.nextInRotation(candidates)
	s.lastSelected = next.Alias
	return next
}

// levelPreemption returns the candidate whose level exceeds every other
// candidate's level by at least the configured margin, or nil if none
// qualifies. Ties (more than one candidate clears the margin) fall back to
// round-robin, since no single agent then "exceeds every other".
func (s *Scheduler) levelPreemption(candidates []*types.Agent) *types.Agent {
	margin := s.cfg.LevelPreemptionMargin
	if margin <= 0 {
		return nil
	}
	var winner *types.Agent
	for _, a := range candidates {
		exceedsAll := true
		for _, other := range candidates {
			if other.AgentID == a.AgentID {
				continue
			}
			if a.Level-other.Level < margin {
				exceedsAll = false
				break
			}
		}
		if exceedsAll {
			if winner != nil {
				return nil // more than one qualifies; ambiguous, defer to round-robin
			}
			winner = a
		}
	}
	return winner
}

// syncRoundRobinOrder establishes the rotation order the first time it
// sees a set of candidates, and appends any new aliases (newly registered
// agents) to the end, preserving the relative order of aliases already
// known.
func (s *Scheduler) syncRoundRobinOrder(candidates []*types.Agent) {
	known := make(map[string]bool, len(s.roundRobinOrder))
	for _, alias := range s.roundRobinOrder {
		known[alias] = true
	}
	for _, a := range candidates {
		if !known[a.Alias] {
			s.roundRobinOrder = append(s.roundRobinOrder, a.Alias)
			known[a.Alias] = true
		}
	}
}

// nextInRotation walks s.roundRobinOrder starting just after lastSelected,
// returning the first entry that is also present in candidates.
func (s *Scheduler) nextInRotation(candidates []*types.Agent) *types.Agent {
	byAlias := make(map[string]*types.Agent, len(candidates))
	for _, a := range candidates {
		byAlias[a.Alias] = a
	}

	startIdx := 0
	for i, alias := range s.roundRobinOrder {
		if alias == s.lastSelected {
			startIdx = i + 1
			break
		}
	}
	n := len(s.roundRobinOrder)
	for i := 0; i < n; i++ {
		alias := s.roundRobinOrder[(startIdx+i)%n]
		if a, ok := byAlias[alias]; ok {
			return a
		}
	}
	// Unreachable when candidates is non-empty and syncRoundRobinOrder ran
	// first, but fall back to the first candidate defensively.
	return candidates[0]
}
