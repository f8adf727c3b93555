// Package cli provides the command-line interface for the Onyx admin console.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/raphaelgruber/onyx-admin/internal/config"
	"github.com/raphaelgruber/onyx-admin/internal/session"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose      bool
	outputFormat string

	// Global config and session
	cfg      config.Config
	sess     *session.Session
	closeLog func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "onyxadmin",
	Short: "Admin console for an Onyx deployment",
	Long: `onyxadmin manages an Onyx deployment from the terminal: connector
indexing, LLM and embedding providers, assistants, chat sharing and
workspace settings.

Configuration is read from ~/.config/onyxadmin/config.yaml (or $ONYX_CONFIG)
and ONYX_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip session setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		switch outputFormat {
		case formatTable, formatYAML:
		default:
			return fmt.Errorf("unknown output format %q (want %s or %s)", outputFormat, formatTable, formatYAML)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger, cleanup := config.SetupLogger(cfg, verbose)
		closeLog = cleanup
		sess = session.New(cfg, logger)
		logger.Debug("session started", "server", cfg.ServerURL, "profile", cfg.ProfilePath)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Commands observe Ctrl+C through cmd.Context().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// Post-run hooks do not run when a command fails.
	defer teardown()
	return rootCmd.ExecuteContext(ctx)
}

// teardown prints metrics in verbose mode, closes the session and then the
// log file.
func teardown() {
	if sess != nil {
		if verbose {
			printMetrics(sess.Metrics().Snapshot())
		}
		if err := sess.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close session: %v\n", err)
		}
		sess = nil
	}
	if closeLog != nil {
		if err := closeLog(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
		}
		closeLog = nil
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format (table or yaml)")

	// Add subcommands
	rootCmd.AddCommand(indexingCmd)
	rootCmd.AddCommand(connectorCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(embeddingCmd)
	rootCmd.AddCommand(personaCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(whoamiCmd)
}
