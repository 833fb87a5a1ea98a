// Package cli wires the campfire commands: corpus ingestion, one-shot
// questions, interactive chat, and status/config inspection.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess           = 0
	ExitGenericError      = 1
	ExitConfigInvalid     = 2
	ExitCorpusUnavailable = 3
	ExitModelUnreachable  = 4
	ExitAnswerBlocked     = 5
)

// GlobalFlags holds flags shared across all commands.
type GlobalFlags struct {
	ConfigPath string
	DBPath     string
	DocsDir    string
	Provider   string
	BaseURL    string
	Model      string
	JSON       bool
	Quiet      bool
	LogLevel   string
}

var globalFlags GlobalFlags

var rootCmd = &cobra.Command{
	Use:   "campfire",
	Short: "Safety-gated first-aid answers from an offline corpus",
	Long: "campfire answers emergency and first-aid questions with cited, " +
		"checklist-style guidance grounded in a local document corpus. " +
		"Every answer passes a safety gate before it is shown.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", ".campfire.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DBPath, "db", "", "corpus database path (default from config)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.DocsDir, "docs-dir", "", "source documents directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Provider, "provider", "", "llm provider: ollama, vllm, lmstudio")
	rootCmd.PersistentFlags().StringVar(&globalFlags.BaseURL, "base-url", "", "llm base URL")
	rootCmd.PersistentFlags().StringVar(&globalFlags.Model, "model", "", "llm model name")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.JSON, "json", false, "emit JSON output for automation")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Quiet, "quiet", false, "reduce output")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command; exit codes are set by the commands.
func Execute() error {
	return rootCmd.Execute()
}

// exitWith prints message to stderr and exits with code.
func exitWith(code int, msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(code)
}
