// Package store is the durable, single-file relational persistence layer
// for agents, transcripts, analyses, and sessions. It is backed by
// modernc.org/sqlite (a pure-Go driver, chosen so the binary stays
// cgo-free) in WAL journal mode, which gives serialized writes with
// non-blocking readers without any bespoke locking of our own.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"

	"github.com/axe-engine/axe/pkg/types"
)

// Store is the single-file relational persistence layer. All
// exported methods are safe for concurrent use; SQLite's WAL mode serializes
// writers while letting readers proceed without blocking on them.
type Store struct {
	db     *sql.DB
	log    zerolog.Logger
	writeM sync.Mutex // serializes the turn_index allocation in AppendTranscript
}

// DefaultPath resolves the database file location next to the installed
// application, not inside the session workspace, so XP and agent history
// persist across workspace changes. It uses the
// running executable's directory, falling back to the current directory
// only if the executable path cannot be resolved.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "axe.db"
	}
	real, err := filepath.EvalSymlinks(exe)
	if err != nil {
		real = exe
	}
	return filepath.Join(filepath.Dir(real), "axe.db")
}

// Open opens (creating if absent) the SQLite database at path, enables WAL
// journal mode, and ensures the schema is present and compatible.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes internally; avoid contention surprises
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign_keys: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAgent upserts an Agent row.
func (s *Store) SaveAgent(ctx context.Context, a *types.Agent) error {
	var sleepExp any
	if a.SleepExpiresAt != nil {
		sleepExp = a.SleepExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (agent_id, alias, model_ref, role, xp, level, status, is_supervisor, sleep_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			alias=excluded.alias, model_ref=excluded.model_ref, role=excluded.role,
			xp=excluded.xp, level=excluded.level, status=excluded.status,
			is_supervisor=excluded.is_supervisor, sleep_expires_at=excluded.sleep_expires_at,
			updated_at=excluded.updated_at
	`,
		a.AgentID.String(), a.Alias, a.ModelRef, a.Role, a.XP, a.Level, string(a.Status),
		boolToInt(a.IsSupervisor), sleepExp,
		a.CreatedAt.UTC().Format(time.RFC3339Nano), a.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: save agent %s: %w", a.Alias, err)
	}
	return nil
}

// GetAgent resolves an Agent by alias or by agent_id (UUID string).
func (s *Store) GetAgent(ctx context.Context, aliasOrID string) (*types.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT agent_id, alias, model_ref, role, xp, level, status, is_supervisor, sleep_expires_at, created_at, updated_at
		FROM agents WHERE agent_id = ? OR alias = ? LIMIT 1
	`, aliasOrID, aliasOrID)
	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get agent %s: %w", aliasOrID, err)
	}
	return a, nil
}

// AgentFilter narrows ListAgents; a zero-value filter matches everything.
type AgentFilter struct {
	Status *types.AgentStatus
}

// ListAgents returns all agents matching filter, ordered by alias.
func (s *Store) ListAgents(ctx context.Context, filter AgentFilter) ([]*types.Agent, error) {
	query := `
		SELECT agent_id, alias, model_ref, role, xp, level, status, is_supervisor, sleep_expires_at, created_at, updated_at
		FROM agents`
	var args []any
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY alias`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list agents: %w", err)
	}
	defer rows.Close()

	var out []*types.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan agent row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*types.Agent, error) {
	var (
		agentID, alias, modelRef, role, status string
		xp                                     int64
		level, isSupervisor                    int
		sleepExp                               sql.NullString
		createdAt, updatedAt                   string
	)
	if err := row.Scan(&agentID, &alias, &modelRef, &role, &xp, &level, &status, &isSupervisor, &sleepExp, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a := &types.Agent{
		AgentID:      uuid.MustParse(agentID),
		Alias:        alias,
		ModelRef:     modelRef,
		Role:         role,
		XP:           xp,
		Level:        level,
		Status:       types.AgentStatus(status),
		IsSupervisor: isSupervisor != 0,
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		a.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		a.UpdatedAt = t
	}
	if sleepExp.Valid {
		if t, err := time.Parse(time.RFC3339Nano, sleepExp.String); err == nil {
			a.SleepExpiresAt = &t
		}
	}
	return a, nil
}

// AppendTranscript assigns the next turn_index for session_id and inserts
// entry, returning the allocated index. Writes are serialized by writeM so
// index allocation and insert happen atomically from the caller's view.
func (s *Store) AppendTranscript(ctx context.Context, sessionID string, entry types.TranscriptEntry) (int64, error) {
	s.writeM.Lock()
	defer s.writeM.Unlock()

	var nextIdx int64
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(turn_index), -1) + 1 FROM transcript_entries WHERE session_id = ?`, sessionID)
	if err := row.Scan(&nextIdx); err != nil {
		return 0, fmt.Errorf("store: allocate turn index: %w", err)
	}
	entry.SessionID = sessionID
	entry.TurnIndex = nextIdx

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transcript_entries
			(session_id, turn_index, author, kind, body, token_count_estimated, logical_turn,
			 compressed_range_start, compressed_range_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.SessionID, entry.TurnIndex, entry.Author, string(entry.Kind), entry.Body,
		entry.TokenCountEstimated, entry.LogicalTurn,
		entry.CompressedRangeStart, entry.CompressedRangeEnd,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: append transcript entry: %w", err)
	}
	return nextIdx, nil
}

// TranscriptRange optionally bounds LoadTranscript; a nil End means "to the
// end".
type TranscriptRange struct {
	Start int64
	End   *int64
}

// LoadTranscript returns entries for sessionID in turn_index order, bounded
// by rng if non-nil.
func (s *Store) LoadTranscript(ctx context.Context, sessionID string, rng *TranscriptRange) ([]types.TranscriptEntry, error) {
	query := `
		SELECT session_id, turn_index, author, kind, body, token_count_estimated, logical_turn,
		       compressed_range_start, compressed_range_end, created_at
		FROM transcript_entries WHERE session_id = ?`
	args := []any{sessionID}
	if rng != nil {
		query += ` AND turn_index >= ?`
		args = append(args, rng.Start)
		if rng.End != nil {
			query += ` AND turn_index <= ?`
			args = append(args, *rng.End)
		}
	}
	query += ` ORDER BY turn_index`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load transcript: %w", err)
	}
	defer rows.Close()

	var out []types.TranscriptEntry
	for rows.Next() {
		var e types.TranscriptEntry
		var kind, createdAt string
		var rangeStart, rangeEnd sql.NullInt64
		if err := rows.Scan(&e.SessionID, &e.TurnIndex, &e.Author, &kind, &e.Body,
			&e.TokenCountEstimated, &e.LogicalTurn, &rangeStart, &rangeEnd, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan transcript row: %w", err)
		}
		e.Kind = types.EntryKind(kind)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		if rangeStart.Valid {
			v := rangeStart.Int64
			e.CompressedRangeStart = &v
		}
		if rangeEnd.Valid {
			v := rangeEnd.Int64
			e.CompressedRangeEnd = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// XPEvent is one persisted award_xp delta. The agent's cumulative xp column
// always equals the sum of its deltas, so XP history survives resume and
// the total stays auditable.
type XPEvent struct {
	EventID   string
	AgentID   string
	Delta     int64
	Reason    string
	CreatedAt time.Time
}

// RecordXPEvent appends one award_xp delta for agentID.
func (s *Store) RecordXPEvent(ctx context.Context, agentID string, delta int64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO xp_events (event_id, agent_id, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, ulid.Make().String(), agentID, delta, reason, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: record xp event: %w", err)
	}
	return nil
}

// ListXPEvents returns agentID's XP history, oldest first.
func (s *Store) ListXPEvents(ctx context.Context, agentID string) ([]XPEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, agent_id, delta, reason, created_at
		FROM xp_events WHERE agent_id = ? ORDER BY event_id
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("store: list xp events: %w", err)
	}
	defer rows.Close()

	var out []XPEvent
	for rows.Next() {
		var e XPEvent
		var reason sql.NullString
		var createdAt string
		if err := rows.Scan(&e.EventID, &e.AgentID, &e.Delta, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan xp event row: %w", err)
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SumXPDeltas returns the total of agentID's persisted deltas, which must
// equal the agent row's xp column.
func (s *Store) SumXPDeltas(ctx context.Context, agentID string) (int64, error) {
	var total int64
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(delta), 0) FROM xp_events WHERE agent_id = ?`, agentID)
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("store: sum xp deltas: %w", err)
	}
	return total, nil
}

// SaveAnalysis persists an immutable WorkshopAnalysis record, assigning an
// AnalysisID via ULID if one isn't already set.
func (s *Store) SaveAnalysis(ctx context.Context, rec *types.WorkshopAnalysis) (string, error) {
	if rec.AnalysisID == "" {
		rec.AnalysisID = ulid.Make().String()
	}
	var agentID any
	if rec.AgentID != nil {
		agentID = *rec.AgentID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (analysis_id, tool_name, target, agent_id, timestamp, results_json, status, duration_s, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.AnalysisID, rec.ToolName, rec.Target, agentID,
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.ResultsJSON,
		string(rec.Status), rec.DurationS, rec.ErrorMessage)
	if err != nil {
		return "", fmt.Errorf("store: save analysis: %w", err)
	}
	return rec.AnalysisID, nil
}

// AnalysisFilter narrows ListAnalyses.
type AnalysisFilter struct {
	ToolName string
	AgentID  string
	Limit    int
}

// ListAnalyses returns analyses matching filter, most recent first.
func (s *Store) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]*types.WorkshopAnalysis, error) {
	query := `SELECT analysis_id, tool_name, target, agent_id, timestamp, results_json, status, duration_s, error_message FROM analyses WHERE 1=1`
	var args []any
	if filter.ToolName != "" {
		query += ` AND tool_name = ?`
		args = append(args, filter.ToolName)
	}
	if filter.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, filter.AgentID)
	}
	query += ` ORDER BY timestamp DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list analyses: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkshopAnalysis
	for rows.Next() {
		var rec types.WorkshopAnalysis
		var agentID sql.NullString
		var ts, status string
		var errMsg sql.NullString
		if err := rows.Scan(&rec.AnalysisID, &rec.ToolName, &rec.Target, &agentID, &ts,
			&rec.ResultsJSON, &status, &rec.DurationS, &errMsg); err != nil {
			return nil, fmt.Errorf("store: scan analysis row: %w", err)
		}
		rec.Status = types.WorkshopStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = t
		}
		if agentID.Valid {
			v := agentID.String
			rec.AgentID = &v
		}
		if errMsg.Valid {
			rec.ErrorMessage = errMsg.String
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ToolStats is one row of stats_by_tool's result map.
type ToolStats struct {
	Count       int64
	AvgDuration float64
	OK          int64
	Fail        int64
}

// StatsByTool aggregates tool_stats, optionally scoped to one agent.
func (s *Store) StatsByTool(ctx context.Context, agentID string) (map[string]ToolStats, error) {
	query := `SELECT tool_name, SUM(count), SUM(ok_count), SUM(fail_count), SUM(total_duration_s) FROM tool_stats`
	var args []any
	if agentID != "" {
		query += ` WHERE agent_id = ?`
		args = append(args, agentID)
	}
	query += ` GROUP BY tool_name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: stats by tool: %w", err)
	}
	defer rows.Close()

	out := map[string]ToolStats{}
	for rows.Next() {
		var tool string
		var count, ok, fail int64
		var totalDur float64
		if err := rows.Scan(&tool, &count, &ok, &fail, &totalDur); err != nil {
			return nil, fmt.Errorf("store: scan tool stats row: %w", err)
		}
		stat := ToolStats{Count: count, OK: ok, Fail: fail}
		if count > 0 {
			stat.AvgDuration = totalDur / float64(count)
		}
		out[tool] = stat
	}
	return out, rows.Err()
}

// RecordToolInvocation updates the per-agent, per-tool running stats used
// by StatsByTool. The scheduler calls it after every executed operation.
func (s *Store) RecordToolInvocation(ctx context.Context, agentID, toolName string, ok bool, durationS float64) error {
	okInc, failInc := 0, 0
	if ok {
		okInc = 1
	} else {
		failInc = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_stats (agent_id, tool_name, count, ok_count, fail_count, total_duration_s)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(agent_id, tool_name) DO UPDATE SET
			count = count + 1,
			ok_count = ok_count + excluded.ok_count,
			fail_count = fail_count + excluded.fail_count,
			total_duration_s = total_duration_s + excluded.total_duration_s
	`, agentID, toolName, okInc, failInc, durationS)
	if err != nil {
		return fmt.Errorf("store: record tool invocation: %w", err)
	}
	return nil
}

// SaveSession upserts a Session row.
func (s *Store) SaveSession(ctx context.Context, sess *types.Session) error {
	activeAgents, err := json.Marshal(sess.ActiveAgents)
	if err != nil {
		return fmt.Errorf("store: marshal active agents: %w", err)
	}
	policyJSON, err := marshalPolicy(sess.Policy)
	if err != nil {
		return fmt.Errorf("store: marshal policy: %w", err)
	}
	var endedAt any
	if sess.EndedAt != nil {
		endedAt = sess.EndedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, workspace_root, active_agents, time_budget_seconds, token_budget_total,
			tokens_used, github_enabled, policy_json, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			active_agents=excluded.active_agents, tokens_used=excluded.tokens_used,
			policy_json=excluded.policy_json, ended_at=excluded.ended_at
	`, sess.SessionID, sess.WorkspaceRoot, string(activeAgents), sess.TimeBudgetSecs,
		sess.TokenBudgetTotal, sess.TokensUsed, boolToInt(sess.GithubEnabled), policyJSON,
		sess.StartedAt.UTC().Format(time.RFC3339Nano), endedAt)
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", sess.SessionID, err)
	}
	return nil
}

// ResumeSession reloads a Session row for crash-resume.
func (s *Store) ResumeSession(ctx context.Context, sessionID string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, workspace_root, active_agents, time_budget_seconds, token_budget_total,
		       tokens_used, github_enabled, policy_json, started_at, ended_at
		FROM sessions WHERE session_id = ?
	`, sessionID)

	var (
		sess                       types.Session
		activeAgentsJSON, policyJSON string
		startedAt                  string
		endedAt                    sql.NullString
		githubEnabled              int
	)
	err := row.Scan(&sess.SessionID, &sess.WorkspaceRoot, &activeAgentsJSON, &sess.TimeBudgetSecs,
		&sess.TokenBudgetTotal, &sess.TokensUsed, &githubEnabled, &policyJSON, &startedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: resume session %s: %w", sessionID, err)
	}
	sess.GithubEnabled = githubEnabled != 0
	if err := json.Unmarshal([]byte(activeAgentsJSON), &sess.ActiveAgents); err != nil {
		return nil, fmt.Errorf("%w: active_agents: %v", ErrCorrupt, err)
	}
	policy, err := unmarshalPolicy(policyJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: policy: %v", ErrCorrupt, err)
	}
	sess.Policy = policy
	if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
		sess.StartedAt = t
	}
	if endedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, endedAt.String); err == nil {
			sess.EndedAt = &t
		}
	}
	return &sess, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
