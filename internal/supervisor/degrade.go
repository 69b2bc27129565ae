package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/pkg/types"
)

// degradationWindow is how many recent operations the composite score is
// computed over.
const degradationWindow = 20

// doomLoopThreshold is how many identical operations in a row from one
// agent count as a repeat-loop signal.
const doomLoopThreshold = 3

// opOutcome is the Supervisor's observable-only view of one executed
// Operation: it never inspects the agent's code or reasoning — the core
// does not judge correctness — only the shape of the
// OperationResult the Runner already produced.
type opOutcome struct {
	dedupKey       string
	isExec         bool
	resultError    bool
	resultDenied   bool
	looksLikeTest  bool
	diffLineCount  int
}

// RecordOperation feeds one executed Operation/OperationResult pair into
// the agent's degradation window and doom-loop detector. Called by the
// scheduler after every ToolRunner invocation; the periodic score check
// itself runs once per reply in ObserveTurn, so a multi-operation turn
// counts as a single turn toward the check cadence.
func (s *Supervisor) RecordOperation(ctx context.Context, agentID uuid.UUID, op types.Operation, result types.OperationResult) error {
	now := time.Now().UTC()
	outcome := opOutcome{
		dedupKey:      op.DedupKey(),
		isExec:        op.Kind == types.OpExec,
		resultError:   result.Status == types.ResultError,
		resultDenied:  result.Status == types.ResultDenied,
		looksLikeTest: op.Kind == types.OpExec && looksLikeTestCommand(op.Command),
		diffLineCount: strings.Count(result.Diff, "\n"),
	}

	s.mu.Lock()
	st := s.stateFor(agentID, now)
	st.recentOps = append(st.recentOps, outcome)
	if len(st.recentOps) > degradationWindow {
		st.recentOps = st.recentOps[len(st.recentOps)-degradationWindow:]
	}

	st.lastOpKeys = append(st.lastOpKeys, outcome.dedupKey)
	if len(st.lastOpKeys) > doomLoopThreshold {
		st.lastOpKeys = st.lastOpKeys[len(st.lastOpKeys)-doomLoopThreshold:]
	}
	doomLoop := len(st.lastOpKeys) == doomLoopThreshold && allSame(st.lastOpKeys)
	s.mu.Unlock()

	if doomLoop && s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.DegradationFlagged, Data: map[string]any{
			"agent_id": agentID.String(), "reason": "doom_loop",
		}})
	}
	return nil
}

// ObserveTurn counts one completed reply toward the agent's degradation
// check cadence and, every DegradationCheckEveryN turns, computes the
// composite score over its recent operations, sleeping the agent when the
// score crosses the threshold.
func (s *Supervisor) ObserveTurn(ctx context.Context, agentID uuid.UUID) error {
	now := time.Now().UTC()

	s.mu.Lock()
	st := s.stateFor(agentID, now)
	st.turnsSinceCheck++
	due := st.turnsSinceCheck >= s.cfg.DegradationCheckEveryN
	if due {
		st.turnsSinceCheck = 0
	}
	doomLoop := len(st.lastOpKeys) == doomLoopThreshold && allSame(st.lastOpKeys)
	ops := append([]opOutcome(nil), st.recentOps...)
	s.mu.Unlock()

	if !due {
		return nil
	}
	score := compositeScore(ops, doomLoop)
	if score <= s.cfg.DegradationScoreThreshold {
		return nil
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.DegradationFlagged, Data: map[string]any{
			"agent_id": agentID.String(), "score": score,
		}})
	}
	return s.putToSleep(ctx, agentID, "degradation score exceeded threshold", now)
}

// compositeScore weighs the four degradation rates. Each is a proxy computed
// purely from OperationResult shapes the Runner already reports — never
// from reading or judging the agent's actual output:
//
//	syntax_errors_rate   — Exec results with Status==error
//	test_failures_rate   — Exec results against a test-looking command with Status==error
//	semantic_smell_rate  — Denied results (policy friction proxy)
//	diff_size_anomaly    — 1.0 on a detected doom loop, else a large-diff ratio
func compositeScore(ops []opOutcome, doomLoop bool) float64 {
	if len(ops) == 0 {
		return 0
	}
	var execN, syntaxErr, testFail, denied, bigDiff int
	for _, o := range ops {
		if o.isExec {
			execN++
			if o.resultError {
				syntaxErr++
				if o.looksLikeTest {
					testFail++
				}
			}
		}
		if o.resultDenied {
			denied++
		}
		if o.diffLineCount > 200 {
			bigDiff++
		}
	}
	n := float64(len(ops))
	syntaxRate := 0.0
	testRate := 0.0
	if execN > 0 {
		syntaxRate = float64(syntaxErr) / float64(execN)
		testRate = float64(testFail) / float64(execN)
	}
	smellRate := float64(denied) / n
	diffAnomaly := float64(bigDiff) / n
	if doomLoop {
		diffAnomaly = 1.0
	}
	return 0.4*syntaxRate + 0.3*testRate + 0.2*smellRate + 0.1*diffAnomaly
}

// MarkDegraded transitions an agent to degraded, used by the scheduler when
// a provider dispatch exhausts its transient-failure retries. The agent
// stays out of the rotation until the
// operator or a future supervisor policy re-activates it.
func (s *Supervisor) MarkDegraded(ctx context.Context, agentID uuid.UUID, reason string) error {
	if err := s.registry.SetStatus(ctx, agentID, types.AgentDegraded, reason, nil); err != nil {
		return fmt.Errorf("supervisor: mark degraded: %w", err)
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.DegradationFlagged, Data: map[string]any{
			"agent_id": agentID.String(), "reason": reason,
		}})
	}
	return nil
}

func allSame(keys []string) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i] != keys[0] {
			return false
		}
	}
	return true
}

func looksLikeTestCommand(cmd string) bool {
	lower := strings.ToLower(cmd)
	return strings.Contains(lower, "test") || strings.Contains(lower, "pytest") || strings.Contains(lower, "jest")
}
