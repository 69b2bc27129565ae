package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/axe-engine/axe/internal/store"
)

var (
	statsAgentID string
	statsStorePath string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-tool invocation stats from the Store",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsAgentID, "agent", "", "Scope stats to a single agent ID")
	statsCmd.Flags().StringVar(&statsStorePath, "store", "", "Path to the SQLite store file (defaults to next to the executable)")
}

func runStats(cmd *cobra.Command, args []string) error {
	storePath := statsStorePath
	if storePath == "" {
		storePath = store.DefaultPath()
	}
	st, err := store.Open(storePath, logger("cmd"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	stats, err := st.StatsByTool(context.Background(), statsAgentID)
	if err != nil {
		return fmt.Errorf("stats by tool: %w", err)
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := stats[name]
		fmt.Printf("%-20s count=%-6d ok=%-6d fail=%-6d avg_duration_s=%.3f\n",
			name, s.Count, s.OK, s.Fail, s.AvgDuration)
	}
	if len(names) == 0 {
		fmt.Println("no tool invocations recorded")
	}
	return nil
}
