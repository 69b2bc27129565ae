package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/provider"
	"github.com/axe-engine/axe/pkg/types"
)

// runOneTurn executes one full turn for a single agent: select, prompt,
// dispatch, parse, execute, scan control tokens, persist. It returns
// advanced=false when no agent was eligible this round (every active
// agent is currently rate-limited), in which case the caller backs off
// and retries rather than treating it as an error.
func (s *Scheduler) runOneTurn(ctx context.Context) (advanced bool, err error) {
	candidates := s.eligible()
	if len(candidates) == 0 {
		return false, nil
	}
	agent := s.selectNext(candidates)
	if agent == nil {
		return false, nil
	}
	if ok, wait := s.sup.AllowDispatch(agent.AgentID, 0); !ok {
		// Lost the capacity between the candidate check and selection;
		// defer rather than dispatch over the limit.
		s.log.Debug().Str("agent", agent.Alias).Dur("wait", wait).Msg("rate limit hit at selection; turn deferred")
		return false, nil
	}

	s.mu.Lock()
	s.logicalTurn++
	logicalTurn := s.logicalTurn
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TurnStarted, Data: map[string]any{
			"agent": agent.Alias, "agent_id": agent.AgentID.String(),
		}})
	}

	messages := s.buildPrompt(agent)

	result, err := s.dispatch(ctx, agent.ModelRef, messages)
	if err != nil {
		if errors.Is(err, provider.ErrRateLimited) {
			// Explicit quota denial: defer, consume no turn.
			s.log.Warn().Str("agent", agent.Alias).Msg("provider rate limited; turn deferred")
			return false, nil
		}
		// Transient failure exhausted its retries: abandon the turn
		// and mark the agent degraded.
		if derr := s.sup.MarkDegraded(ctx, agent.AgentID, "provider dispatch failed"); derr != nil {
			s.log.Error().Err(derr).Str("agent", agent.Alias).Msg("failed to mark agent degraded")
		}
		return true, fmt.Errorf("dispatch for %s: %w", agent.Alias, err)
	}

	turnTokens := result.Usage.InputTokens + result.Usage.OutputTokens
	s.mu.Lock()
	s.session.TokensUsed += turnTokens
	s.mu.Unlock()

	if err := s.sup.RecordTurnUsage(ctx, agent.AgentID, turnTokens); err != nil {
		s.log.Error().Err(err).Str("agent", agent.Alias).Msg("failed to record turn usage")
	}

	turnIdx, err := s.tr.Append(ctx, types.TranscriptEntry{
		SessionID:   s.session.SessionID,
		Author:      agent.Alias,
		Kind:        types.EntryMessage,
		Body:        result.Reply,
		LogicalTurn: logicalTurn,
	})
	if err != nil {
		return true, fmt.Errorf("append reply for %s: %w", agent.Alias, err)
	}

	ops := s.parse(result.Reply)
	for _, op := range ops {
		opResult, err := s.runner.Run(ctx, op)
		if err != nil {
			s.log.Error().Err(err).Str("agent", agent.Alias).Str("kind", string(op.Kind)).Msg("operation execution error")
		}
		if err := s.sup.RecordOperation(ctx, agent.AgentID, op, opResult); err != nil {
			s.log.Error().Err(err).Str("agent", agent.Alias).Msg("supervisor failed to record operation")
		}
		if err := s.store.RecordToolInvocation(ctx, agent.AgentID.String(), toolNameFor(op),
			opResult.Status == types.ResultOK, opResult.DurationS); err != nil {
			s.log.Error().Err(err).Str("agent", agent.Alias).Msg("failed to record tool stats")
		}
		if _, err := s.tr.Append(ctx, types.TranscriptEntry{
			SessionID:   s.session.SessionID,
			Author:      agent.Alias,
			Kind:        types.EntryOperationResult,
			Body:        formatOperationResult(op, opResult),
			LogicalTurn: logicalTurn,
		}); err != nil {
			s.log.Error().Err(err).Str("agent", agent.Alias).Msg("failed to append operation result")
		}
	}

	if err := s.sup.ObserveTurn(ctx, agent.AgentID); err != nil {
		s.log.Error().Err(err).Str("agent", agent.Alias).Msg("supervisor turn observation failed")
	}

	s.scanControlTokens(ctx, agent, result.Reply)

	s.maybeCompress(ctx)

	if err := s.store.SaveSession(ctx, s.session); err != nil {
		s.log.Error().Err(err).Msg("failed to persist session after turn")
	}

	if err := s.sup.Tick(ctx, time.Now().UTC()); err != nil {
		return true, fmt.Errorf("supervisor tick: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TurnComplete, Data: map[string]any{
			"agent": agent.Alias, "turn_index": turnIdx, "tokens": turnTokens,
		}})
	}

	return true, nil
}

// maybeCompress folds the transcript's oldest range into a summary entry
// once the high-water mark is crossed. A nil Summarizer disables
// compression rather than failing the turn.
func (s *Scheduler) maybeCompress(ctx context.Context) {
	if s.summ == nil {
		return
	}
	err := s.tr.Compress(ctx, s.cfg.Compression, func(ctx context.Context, entries []types.TranscriptEntry, targetTokens int) (string, error) {
		msgs := make([]provider.Message, 0, len(entries))
		for _, e := range entries {
			msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: formatEntry(e)})
		}
		return s.summ.Summarize(ctx, msgs, targetTokens)
	})
	if err != nil {
		s.log.Error().Err(err).Msg("transcript compression failed")
	}
}

// toolNameFor derives the stats key for an executed Operation: the leading
// command word for Exec, the operation kind otherwise.
func toolNameFor(op types.Operation) string {
	if op.Kind == types.OpExec {
		if fields := strings.Fields(op.Command); len(fields) > 0 {
			return fields[0]
		}
	}
	return string(op.Kind)
}

func formatOperationResult(op types.Operation, result types.OperationResult) string {
	switch op.Kind {
	case types.OpExec:
		return fmt.Sprintf("$ %s\nexit=%d\n%s%s", op.Command, result.ExitCode, result.Stdout, result.Stderr)
	case types.OpRead:
		if result.Status == types.ResultOK {
			return result.Text
		}
		return result.ErrorMessage
	case types.OpListDir:
		if result.Status == types.ResultOK {
			return strings.Join(result.Entries, "\n")
		}
		return result.ErrorMessage
	default:
		if result.Status == types.ResultOK {
			return fmt.Sprintf("wrote %d bytes to %s", result.BytesWritten, op.Path)
		}
		return result.ErrorMessage
	}
}
