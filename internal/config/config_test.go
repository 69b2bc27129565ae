package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axe-engine/axe/pkg/types"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(6*3600), cfg.Session.TimeBudgetSeconds)
	assert.Equal(t, string(types.SandboxPathCheck), cfg.Policy.SandboxMode)
}

func TestLoadParsesFullSurface(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
workspace_root: /srv/workspace
agents:
  - alias: builder
    role: worker
    model_ref: anthropic/claude-sonnet
    default_system_prompt: "build things"
session:
  time_budget_seconds: 1800
  token_budget_total: 500000
policy:
  allow_list: ["go", "git"]
  deny_list: ["rm"]
  forbidden_paths: ["/etc"]
  writable_paths: ["/srv/workspace"]
  sandbox_mode: namespace
  execution_timeout_seconds: 30
supervisor:
  work_hours_threshold: 3600
  sleep_minutes: 45
  break_per_hour: 3
rate_limit:
  rpm: 30
  tpm: 50000
github:
  enabled: true
  branch_prefix: axe/
transcript:
  compression_high_water_tokens: 9000
  window_tokens: 3000
`)

	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "/srv/workspace", cfg.WorkspaceRoot)
	require.Len(t, cfg.Agents, 1)
	assert.Equal(t, "builder", cfg.Agents[0].Alias)
	assert.Equal(t, int64(1800), cfg.Session.TimeBudgetSeconds)
	assert.Equal(t, "namespace", cfg.Policy.SandboxMode)
	assert.Equal(t, 45, cfg.Supervisor.SleepMinutes)
	assert.Equal(t, 30, cfg.RateLimit.RPM)
	assert.True(t, cfg.GitHub.Enabled)
	assert.Equal(t, 3000, cfg.Transcript.WindowTokens)

	policy := cfg.Policy.ToToolPolicy()
	assert.True(t, policy.AllowsCommand("go"))
	assert.False(t, policy.AllowsCommand("rm"))
}

func TestLoadAcceptsLegacyContextTokensAlias(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
transcript:
  context_tokens: 2500
`)
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Transcript.WindowTokens)
}

func TestLoadAcceptsLegacyContextWindowAlias(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
transcript:
  context_window: 7000
`)
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Transcript.WindowTokens)
}

func TestLoadLogsUnknownTopLevelKeyButStillParsesRest(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
totally_unknown_key: true
workspace_root: /srv/workspace
`)
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "/srv/workspace", cfg.WorkspaceRoot)
}

func TestEnvOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
rate_limit:
  rpm: 10
`)
	t.Setenv("AXE_RATE_LIMIT_RPM", "99")

	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.RateLimit.RPM)
}

func TestToSupervisorConfigFillsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "axe.yaml", `
supervisor:
  sleep_minutes: 90
  break_per_hour: 1
rate_limit:
  rpm: 12
  tpm: 4000
`)
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)

	sc := cfg.ToSupervisorConfig()
	assert.Equal(t, 90, sc.SleepMinutes)
	assert.Equal(t, 1, sc.BreakPerHour)
	assert.Equal(t, 12, sc.RateLimitRPM)
	assert.Equal(t, 4000, sc.RateLimitTPM)
}

func TestGetPathsUsesAxeNamespace(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdgdata")
	paths := GetPaths()
	assert.Equal(t, "/tmp/xdgdata/axe", paths.Data)
	assert.Equal(t, filepath.Join(paths.Data, "axe.db"), paths.StorePath())
}
