package types

import "time"

// Session is one bounded interactive run over a workspace. A Session owns
// exactly one Transcript.
type Session struct {
	SessionID       string    `json:"session_id"`
	WorkspaceRoot   string    `json:"workspace_root"` // absolute path
	ActiveAgents    []string  `json:"active_agents"`  // aliases
	TimeBudgetSecs  int64     `json:"time_budget_seconds"`
	TokenBudgetTotal int64    `json:"token_budget_total"`
	GithubEnabled   bool      `json:"github_enabled"`
	Policy          ToolPolicy `json:"policy"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`

	// TokensUsed is the running total consumed so far this session;
	// mutated by the scheduler after each provider dispatch.
	TokensUsed int64 `json:"tokens_used"`
}

// Active reports whether the session has not yet ended.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// WorkshopStatus is the completion tag of a WorkshopAnalysis record.
type WorkshopStatus string

const (
	WorkshopCompleted WorkshopStatus = "completed"
	WorkshopFailed    WorkshopStatus = "failed"
)

// WorkshopAnalysis is an externally-produced analysis artifact persisted by
// the Store; the core never reads its contents, only stores and lists it.
type WorkshopAnalysis struct {
	AnalysisID   string         `json:"analysis_id"`
	ToolName     string         `json:"tool_name"`
	Target       string         `json:"target"`
	AgentID      *string        `json:"agent_id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	ResultsJSON  string         `json:"results_json"`
	Status       WorkshopStatus `json:"status"`
	DurationS    float64        `json:"duration_s"`
	ErrorMessage string         `json:"error_message,omitempty"`
}
