// Package cli is the plando command tree. The bare command opens the
// terminal UI; subcommands serve the HTTP API and run one-shot jobs against
// backup files.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"plando/internal/ui"
)

type rootOptions struct {
	configPath string
	load       string
	logFile    string
}

// Execute runs the command tree against os.Args.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "plando",
		Short: "plando - lists, dated tasks and reminders",
		Long: `plando keeps lists and dated tasks in memory and fires reminders for them.

Run without a subcommand to open the terminal UI. Data lives only for the
lifetime of the process; use export (x) and import (i) in the UI, or --load,
to carry it between runs.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default $PLANDO_CONFIG or ~/.config/plando/config.toml)")
	root.PersistentFlags().StringVar(&opts.load, "load", "", "import a .json or .db backup at startup")
	root.Flags().StringVar(&opts.logFile, "log-file", "", "write diagnostics to this file")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newConvertCmd())
	root.AddCommand(newNotifyCmd())
	return root
}

func runTUI(opts *rootOptions) error {
	logger := log.New(io.Discard, "", 0)
	if opts.logFile != "" {
		f, err := tea.LogToFile(opts.logFile, "plando")
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		logger = log.Default()
	}

	alerts := ui.NewAlerts()
	a, err := newApp(opts, alerts, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := ui.Run(a.svc, a.cfg, alerts); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
