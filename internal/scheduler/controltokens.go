package scheduler

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/pkg/types"
)

// Control token patterns. Matching is exact and case-sensitive; no
// fuzzy or partial recognition, since a malformed token is just prose.
var (
	reSleep        = regexp.MustCompile(`\[\[SLEEP: (\d+), ([^\]]*)\]\]`)
	reBreak        = regexp.MustCompile(`\[\[BREAK: (\d+), ([^\]]*)\]\]`)
	reEmergency    = regexp.MustCompile(`(?s)\[\[EMERGENCY\]\](.*?)\[\[/EMERGENCY\]\]`)
	reGithubReady  = regexp.MustCompile(`\[\[GITHUB_READY: ([^,]+), ([^\]]*)\]\]`)
	reTaskComplete = regexp.MustCompile(`\[\[TASK_COMPLETE\]\]`)
)

// scanControlTokens applies every control token found in reply for agent.
// Each handler is independent: one token's
// failure (e.g. a denied break) never prevents the others from running.
func (s *Scheduler) scanControlTokens(ctx context.Context, agent *types.Agent, reply string) {
	for _, m := range reSleep.FindAllStringSubmatch(reply, -1) {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if err := s.sup.RequestSleep(ctx, agent.AgentID, minutes, strings.TrimSpace(m[2])); err != nil {
			s.log.Warn().Err(err).Str("agent", agent.Alias).Msg("sleep request failed")
		}
	}

	for _, m := range reBreak.FindAllStringSubmatch(reply, -1) {
		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, err := s.sup.RequestBreak(ctx, agent.AgentID, minutes, strings.TrimSpace(m[2])); err != nil {
			s.log.Warn().Err(err).Str("agent", agent.Alias).Msg("break request failed")
		}
	}

	for _, m := range reEmergency.FindAllStringSubmatch(reply, -1) {
		s.sup.RecordEmergency(agent.Alias, []byte(strings.TrimSpace(m[1])))
	}

	if s.session.GithubEnabled {
		for _, m := range reGithubReady.FindAllStringSubmatch(reply, -1) {
			s.handleGithubReady(ctx, agent, strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
		}
	}

	if reTaskComplete.MatchString(reply) {
		s.recordCompletionVote(agent.Alias, true)
	} else {
		s.recordCompletionVote(agent.Alias, false)
	}
}

// handleGithubReady invokes the optional GitHub collaborator. With no
// approver configured this is a logged no-op: the external collaborator is
// outside core scope, and a reply claiming readiness without one present
// must not silently stall the session.
func (s *Scheduler) handleGithubReady(ctx context.Context, agent *types.Agent, branch, message string) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.GithubPushRequested, Data: map[string]any{
			"agent": agent.Alias, "branch": branch, "message": message,
		}})
	}
	if s.github == nil {
		s.log.Info().Str("agent", agent.Alias).Str("branch", branch).
			Msg("github_ready token seen but no GitHub collaborator is configured")
		return
	}
	diff := "" // the collaborator computes its own diff against branch; core holds none
	approved, err := s.github.Approve(ctx, branch, message, diff)
	if err != nil {
		s.log.Error().Err(err).Str("branch", branch).Msg("github approval request failed")
		return
	}
	s.log.Info().Bool("approved", approved).Str("branch", branch).Msg("github approval result")
}

// recordCompletionVote shifts ok into alias's two-turn completion window.
// Unanimity is judged over the last two turns per active agent, not a
// single turn, so one reflexive completion claim can't end the session
// alone.
func (s *Scheduler) recordCompletionVote(alias string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.completionVotes[alias]
	s.completionVotes[alias] = [2]bool{prev[1], ok}
}
