// Package commands provides the CLI command tree for the axe binary.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/axe-engine/axe/internal/logging"
)

var (
	// Version is set at build time via -ldflags.
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	logLevel string
	logFile  bool
	prettyLogs bool
)

var rootCmd = &cobra.Command{
	Use:   "axe",
	Short: "AXE - multi-agent orchestration engine",
	Long: `AXE hosts a pool of heterogeneous LLM workers that cooperate on
long-running software engineering tasks inside a shared project workspace.

Run 'axe run' to drive a session headlessly from a YAML config file.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    prettyLogs,
			LogToFile: logFile,
		}
		logging.Init(logCfg)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write logs to a timestamped file in /tmp")
	rootCmd.PersistentFlags().BoolVar(&prettyLogs, "pretty", false, "Human-readable console log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("axe %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logger returns the package-level zerolog.Logger initialized by
// PersistentPreRun, tagged for the given component.
func logger(component string) zerolog.Logger {
	return logging.Logger.With().Str("component", component).Logger()
}
