package supervisor

import (
	"time"

	"github.com/google/uuid"
)

// AllowDispatch consumes rate-limit capacity for agentID's next provider
// dispatch. On denial the caller should defer the
// turn for the returned wait duration; no turn is consumed.
func (s *Supervisor) AllowDispatch(agentID uuid.UUID, estimatedTokens int64) (ok bool, wait time.Duration) {
	now := time.Now().UTC()
	s.mu.Lock()
	st := s.stateFor(agentID, now)
	s.mu.Unlock()
	return st.bucket.Allow(estimatedTokens, now)
}

// CanDispatch is the non-consuming variant of AllowDispatch, used by the
// scheduler's candidate filter so agents that are not ultimately selected
// this round keep their capacity.
func (s *Supervisor) CanDispatch(agentID uuid.UUID, estimatedTokens int64) (ok bool, wait time.Duration) {
	now := time.Now().UTC()
	s.mu.Lock()
	st := s.stateFor(agentID, now)
	s.mu.Unlock()
	return st.bucket.Peek(estimatedTokens, now)
}
