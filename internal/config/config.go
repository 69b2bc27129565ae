package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/axe-engine/axe/internal/supervisor"
	"github.com/axe-engine/axe/pkg/types"
)

// AgentSpec is one entry of the `agents` list.
type AgentSpec struct {
	Alias               string `yaml:"alias"`
	Role                string `yaml:"role"`
	ModelRef            string `yaml:"model_ref"`
	DefaultSystemPrompt string `yaml:"default_system_prompt"`
}

// SessionConfig holds `session.*` keys.
type SessionConfig struct {
	TimeBudgetSeconds int64 `yaml:"time_budget_seconds"`
	TokenBudgetTotal  int64 `yaml:"token_budget_total"`
}

// PolicyConfig holds `policy.*` keys, mirroring types.ToolPolicy's shape
// before it is compiled into allow/deny sets.
type PolicyConfig struct {
	AllowList               []string       `yaml:"allow_list"`
	DenyList                []string       `yaml:"deny_list"`
	ForbiddenPaths          []string       `yaml:"forbidden_paths"`
	WritablePaths           []string       `yaml:"writable_paths"`
	SandboxMode             string         `yaml:"sandbox_mode"`
	ExecutionTimeoutSeconds int            `yaml:"execution_timeout_seconds"`
	PerToolTimeouts         map[string]int `yaml:"per_tool_timeouts"`
}

// ToToolPolicy compiles the YAML-shaped lists into the set-backed
// types.ToolPolicy the Runner consumes.
func (p PolicyConfig) ToToolPolicy() types.ToolPolicy {
	allow := make(map[string]struct{}, len(p.AllowList))
	for _, c := range p.AllowList {
		allow[c] = struct{}{}
	}
	deny := make(map[string]struct{}, len(p.DenyList))
	for _, c := range p.DenyList {
		deny[c] = struct{}{}
	}
	mode := types.SandboxMode(p.SandboxMode)
	if mode == "" {
		mode = types.SandboxPathCheck
	}
	return types.ToolPolicy{
		AllowList:               allow,
		DenyList:                deny,
		ForbiddenPaths:          p.ForbiddenPaths,
		WritablePaths:           p.WritablePaths,
		SandboxMode:             mode,
		ExecutionTimeoutSeconds: p.ExecutionTimeoutSeconds,
		PerToolTimeouts:         p.PerToolTimeouts,
	}
}

// SupervisorConfig holds `supervisor.*` and `rate_limit.*` keys.
type SupervisorConfig struct {
	WorkHoursThresholdSeconds  int64   `yaml:"work_hours_threshold"`
	TokenThreshold             int64   `yaml:"token_threshold"`
	SleepMinutes               int     `yaml:"sleep_minutes"`
	DegradationScoreThreshold  float64 `yaml:"degradation_score_threshold"`
	DegradationCheckEveryN     int     `yaml:"degradation_check_every_n"`
	BreakMaxConcurrentFraction float64 `yaml:"break_max_concurrent_fraction"`
	BreakPerHour               int     `yaml:"break_per_hour"`
	BreakMaxMinutes            int     `yaml:"break_max_minutes"`
	MailboxDir                 string  `yaml:"mailbox_dir"`
	OperatorPublicKeyPath      string  `yaml:"operator_public_key_path"`
}

// RateLimitConfig holds `rate_limit.*` keys.
type RateLimitConfig struct {
	RPM int `yaml:"rpm"`
	TPM int `yaml:"tpm"`
}

// ToSupervisorConfig merges the supervisor and rate-limit sections into the
// supervisor package's own Config, filling any zero-valued duration/field
// from supervisor.DefaultConfig.
func (c *Config) ToSupervisorConfig() supervisor.Config {
	cfg := supervisor.DefaultConfig
	s := c.Supervisor
	if s.WorkHoursThresholdSeconds > 0 {
		cfg.WorkHoursThreshold = time.Duration(s.WorkHoursThresholdSeconds) * time.Second
	}
	if s.TokenThreshold > 0 {
		cfg.TokenThreshold = s.TokenThreshold
	}
	if s.SleepMinutes > 0 {
		cfg.SleepMinutes = s.SleepMinutes
	}
	if s.DegradationScoreThreshold > 0 {
		cfg.DegradationScoreThreshold = s.DegradationScoreThreshold
	}
	if s.DegradationCheckEveryN > 0 {
		cfg.DegradationCheckEveryN = s.DegradationCheckEveryN
	}
	if s.BreakMaxConcurrentFraction > 0 {
		cfg.BreakMaxConcurrentFraction = s.BreakMaxConcurrentFraction
	}
	if s.BreakPerHour > 0 {
		cfg.BreakPerHour = s.BreakPerHour
	}
	if s.BreakMaxMinutes > 0 {
		cfg.BreakMaxMinutes = s.BreakMaxMinutes
	}
	if c.RateLimit.RPM > 0 {
		cfg.RateLimitRPM = c.RateLimit.RPM
	}
	if c.RateLimit.TPM > 0 {
		cfg.RateLimitTPM = c.RateLimit.TPM
	}
	cfg.MailboxDir = s.MailboxDir
	cfg.OperatorPublicKeyPath = s.OperatorPublicKeyPath
	return cfg
}

// GitHubConfig holds `github.*` keys.
type GitHubConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BranchPrefix string `yaml:"branch_prefix"`
}

// TranscriptConfig holds `transcript.*` keys. WindowTokens is the
// canonical field; Load also accepts the legacy `context_tokens` and
// `context_window` aliases and logs a deprecation warning when either is
// used.
type TranscriptConfig struct {
	CompressionHighWaterTokens int `yaml:"compression_high_water_tokens"`
	WindowTokens               int `yaml:"window_tokens"`
}

// Config is the fully-resolved, typed view of the configuration surface.
type Config struct {
	WorkspaceRoot string           `yaml:"workspace_root"`
	Agents        []AgentSpec      `yaml:"agents"`
	Session       SessionConfig    `yaml:"session"`
	Policy        PolicyConfig     `yaml:"policy"`
	Supervisor    SupervisorConfig `yaml:"supervisor"`
	RateLimit     RateLimitConfig  `yaml:"rate_limit"`
	GitHub        GitHubConfig     `yaml:"github"`
	Transcript    TranscriptConfig `yaml:"transcript"`
}

// DefaultConfig is used for any key the loaded file and environment leave
// unset.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			TimeBudgetSeconds: 6 * 3600,
			TokenBudgetTotal:  2_000_000,
		},
		Policy: PolicyConfig{
			SandboxMode:             string(types.SandboxPathCheck),
			ExecutionTimeoutSeconds: 120,
		},
		Supervisor: SupervisorConfig{
			SleepMinutes:               supervisor.DefaultConfig.SleepMinutes,
			DegradationScoreThreshold:  supervisor.DefaultConfig.DegradationScoreThreshold,
			DegradationCheckEveryN:     supervisor.DefaultConfig.DegradationCheckEveryN,
			BreakMaxConcurrentFraction: supervisor.DefaultConfig.BreakMaxConcurrentFraction,
			BreakPerHour:               supervisor.DefaultConfig.BreakPerHour,
			BreakMaxMinutes:            supervisor.DefaultConfig.BreakMaxMinutes,
		},
		RateLimit: RateLimitConfig{
			RPM: supervisor.DefaultConfig.RateLimitRPM,
			TPM: supervisor.DefaultConfig.RateLimitTPM,
		},
		Transcript: TranscriptConfig{
			CompressionHighWaterTokens: 8000,
			WindowTokens:               4000,
		},
	}
}

// Load reads path (a YAML file) into a Config seeded from DefaultConfig,
// applies AXE_* environment overrides, and logs any unrecognized key
// instead of failing on it: unknown keys must never silently change
// behavior.
func Load(path string, log zerolog.Logger) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg, log)
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		warnUnknownKeys(root, log)
	}
	resolveTranscriptAliases(data, cfg, log)

	applyEnvOverrides(cfg, log)
	return cfg, nil
}

var knownTopLevelKeys = map[string]bool{
	"workspace_root": true, "agents": true, "session": true, "policy": true,
	"supervisor": true, "rate_limit": true, "github": true, "transcript": true,
}

// warnUnknownKeys walks the parsed document's top-level mapping and logs
// any key outside the recognized surface.
func warnUnknownKeys(root yaml.Node, log zerolog.Logger) {
	if len(root.Content) == 0 {
		return
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i < len(doc.Content)-1; i += 2 {
		key := doc.Content[i].Value
		if !knownTopLevelKeys[key] {
			log.Warn().Str("key", key).Msg("config: unrecognized top-level key ignored")
		}
	}
}

// resolveTranscriptAliases accepts `transcript.context_tokens` and
// `transcript.context_window` as legacy spellings of `window_tokens`,
// canonicalizing into cfg.Transcript.WindowTokens and logging a
// deprecation note.
func resolveTranscriptAliases(data []byte, cfg *Config, log zerolog.Logger) {
	var raw struct {
		Transcript map[string]yaml.Node `yaml:"transcript"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil || raw.Transcript == nil {
		return
	}
	for _, legacy := range []string{"context_tokens", "context_window"} {
		node, ok := raw.Transcript[legacy]
		if !ok {
			continue
		}
		var v int
		if err := node.Decode(&v); err != nil {
			continue
		}
		log.Warn().Str("legacy_key", "transcript."+legacy).Msg(
			"config: deprecated key, use transcript.window_tokens instead")
		cfg.Transcript.WindowTokens = v
	}
}

// applyEnvOverrides applies AXE_* environment variables, which take
// precedence over every file-sourced value.
func applyEnvOverrides(cfg *Config, log zerolog.Logger) {
	if v := os.Getenv("AXE_WORKSPACE_ROOT"); v != "" {
		cfg.WorkspaceRoot = v
	}
	if v := os.Getenv("AXE_SESSION_TIME_BUDGET_SECONDS"); v != "" {
		setInt64(&cfg.Session.TimeBudgetSeconds, v, "AXE_SESSION_TIME_BUDGET_SECONDS", log)
	}
	if v := os.Getenv("AXE_SESSION_TOKEN_BUDGET_TOTAL"); v != "" {
		setInt64(&cfg.Session.TokenBudgetTotal, v, "AXE_SESSION_TOKEN_BUDGET_TOTAL", log)
	}
	if v := os.Getenv("AXE_POLICY_SANDBOX_MODE"); v != "" {
		cfg.Policy.SandboxMode = v
	}
	if v := os.Getenv("AXE_RATE_LIMIT_RPM"); v != "" {
		setInt(&cfg.RateLimit.RPM, v, "AXE_RATE_LIMIT_RPM", log)
	}
	if v := os.Getenv("AXE_RATE_LIMIT_TPM"); v != "" {
		setInt(&cfg.RateLimit.TPM, v, "AXE_RATE_LIMIT_TPM", log)
	}
	if v := os.Getenv("AXE_GITHUB_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.GitHub.Enabled = b
		} else {
			log.Warn().Str("env", "AXE_GITHUB_ENABLED").Str("value", v).Msg("config: not a bool, ignored")
		}
	}
	if v := os.Getenv("AXE_GITHUB_BRANCH_PREFIX"); v != "" {
		cfg.GitHub.BranchPrefix = v
	}
	if v := os.Getenv("AXE_SUPERVISOR_MAILBOX_DIR"); v != "" {
		cfg.Supervisor.MailboxDir = v
	}
	if v := os.Getenv("AXE_SUPERVISOR_OPERATOR_PUBLIC_KEY_PATH"); v != "" {
		cfg.Supervisor.OperatorPublicKeyPath = v
	}
}

func setInt64(dst *int64, raw, envName string, log zerolog.Logger) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn().Str("env", envName).Str("value", raw).Msg("config: not an integer, ignored")
		return
	}
	*dst = n
}

func setInt(dst *int, raw, envName string, log zerolog.Logger) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("env", envName).Str("value", raw).Msg("config: not an integer, ignored")
		return
	}
	*dst = n
}
