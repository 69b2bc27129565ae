package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/axe-engine/axe/internal/agentregistry"
	"github.com/axe-engine/axe/internal/eventbus"
	"github.com/axe-engine/axe/internal/provider"
	"github.com/axe-engine/axe/internal/scheduler"
	"github.com/axe-engine/axe/internal/store"
	"github.com/axe-engine/axe/internal/supervisor"
	"github.com/axe-engine/axe/internal/toolrunner"
	"github.com/axe-engine/axe/internal/transcript"
)

var (
	resumeSessionID string
	resumeDryRun    bool
	resumeStorePath string
)

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a previously persisted session after a crash or restart",
	Long: `resume rebuilds in-memory state purely from the Store: the
Session row, the full Transcript, all Agent rows and their XP history, and
any pending Supervisor timers. The scheduler continues from the next
logical turn.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&resumeDryRun, "dry-run", false, "Use the built-in echo provider instead of a real LLM collaborator")
	resumeCmd.Flags().StringVar(&resumeStorePath, "store", "", "Path to the SQLite store file (defaults to next to the executable)")
}

func runResume(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	log := logger("cmd")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	storePath := resumeStorePath
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	st, err := store.Open(storePath, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	session, err := st.ResumeSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("resume session %s: %w", sessionID, err)
	}
	if !session.Active() {
		return fmt.Errorf("session %s already ended", sessionID)
	}

	bus := eventbus.New()
	defer bus.Close()

	registry := agentregistry.New(st, bus, log)
	if err := registry.LoadFromStore(ctx); err != nil {
		return fmt.Errorf("load agent registry: %w", err)
	}

	tr := transcript.New(sessionID, st, log)
	if err := tr.LoadFromStore(ctx); err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}

	sup := supervisor.New(supervisor.DefaultConfig, registry, tr, bus, log)
	runner := toolrunner.New(session.WorkspaceRoot, &session.Policy, log)

	var prov provider.Provider
	var summ provider.Summarizer
	if resumeDryRun {
		prov = &echoProvider{}
		summ = echoSummarizer{}
	} else {
		return fmt.Errorf("no provider collaborator configured; pass --dry-run or wire one in")
	}

	schedCfg := scheduler.DefaultConfig()
	sched := scheduler.New(session, registry, tr, sup, runner, nil, prov, summ, st, bus, nil, schedCfg, log)

	log.Info().Str("session_id", sessionID).Int("turns_so_far", tr.Len()).
		Msg("session resumed")

	final, err := sched.Run(ctx)
	if err != nil {
		return fmt.Errorf("scheduler run: %w", err)
	}
	fmt.Printf("session %s ended, tokens_used=%d\n", final.SessionID, final.TokensUsed)
	return nil
}
