package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/axe-engine/axe/internal/agentregistry"
	"github.com/axe-engine/axe/internal/config"
	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/provider"
	"github.com/axe-engine/axe/internal/scheduler"
	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/internal/supervisor"
	"github.com/axe-engine/axe/internal/toolrunner"
	"github.com/axe-engine/axe/internal/transcript"
	"github.com/axe-engine/axe/pkg/types"
)

var (
	runConfigPath string
	runDryRun     bool
	runStorePath  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a new session from a config file and drive it to completion",
	Long: `run loads a YAML config, constructs the core components in
dependency order, and drives the session headlessly until a termination
condition is met.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "axe.yaml", "Path to the session YAML config")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Use the built-in echo provider instead of a real LLM collaborator")
	runCmd.Flags().StringVar(&runStorePath, "store", "", "Path to the SQLite store file (defaults to next to the executable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger("cmd")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn().Msg("signal received, stopping scheduler after in-flight turn")
		cancel()
	}()

	cfg, err := config.Load(runConfigPath, log)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.WorkspaceRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace root: %w", err)
		}
		cfg.WorkspaceRoot = wd
	}

	storePath := runStorePath
	if storePath == "" {
		storePath = store.DefaultPath()
	}

	st, err := store.Open(storePath, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	bus := eventbus.New()
	defer bus.Close()

	registry := agentregistry.New(st, bus, log)
	if err := registry.LoadFromStore(ctx); err != nil {
		return fmt.Errorf("load agent registry: %w", err)
	}

	policy := cfg.Policy.ToToolPolicy()

	sessionID := "sess_" + ulid.Make().String()
	session := &types.Session{
		SessionID:        sessionID,
		WorkspaceRoot:    cfg.WorkspaceRoot,
		TimeBudgetSecs:   cfg.Session.TimeBudgetSeconds,
		TokenBudgetTotal: cfg.Session.TokenBudgetTotal,
		GithubEnabled:    cfg.GitHub.Enabled,
		Policy:           policy,
		StartedAt:        time.Now().UTC(),
	}

	systemPrompts := make(map[string]string, len(cfg.Agents))
	for _, spec := range cfg.Agents {
		if _, err := registry.Resolve(spec.Alias); err != nil {
			if _, regErr := registry.Register(ctx, spec.Alias, spec.Role, spec.ModelRef); regErr != nil {
				return fmt.Errorf("register agent %s: %w", spec.Alias, regErr)
			}
		}
		systemPrompts[spec.Alias] = spec.DefaultSystemPrompt
		session.ActiveAgents = append(session.ActiveAgents, spec.Alias)
	}

	tr := transcript.New(sessionID, st, log)

	supCfg := cfg.ToSupervisorConfig()
	sup := supervisor.New(supCfg, registry, tr, bus, log)

	runner := toolrunner.New(cfg.WorkspaceRoot, &policy, log)

	var prov provider.Provider
	var summ provider.Summarizer
	if runDryRun {
		prov = &echoProvider{}
		summ = echoSummarizer{}
	} else {
		return fmt.Errorf("no provider collaborator configured; wire one in or pass --dry-run")
	}

	schedCfg := scheduler.DefaultConfig()
	schedCfg.SystemPrompts = systemPrompts
	if cfg.Transcript.WindowTokens > 0 {
		schedCfg.WindowTokens = cfg.Transcript.WindowTokens
	}
	if cfg.Transcript.CompressionHighWaterTokens > 0 {
		schedCfg.Compression.HighWaterTokens = cfg.Transcript.CompressionHighWaterTokens
	}

	sched := scheduler.New(session, registry, tr, sup, runner, nil, prov, summ, st, bus, nil, schedCfg, log)

	if err := st.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("persist initial session: %w", err)
	}

	log.Info().Str("session_id", sessionID).Str("workspace_root", cfg.WorkspaceRoot).
		Int("agents", len(session.ActiveAgents)).Msg("session starting")

	final, err := sched.Run(ctx)
	if err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}

	fmt.Printf("session %s ended, tokens_used=%d\n", final.SessionID, final.TokensUsed)
	return nil
}
