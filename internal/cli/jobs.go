package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"plando/internal/reminder"
	"plando/internal/result"
	"plando/internal/service"
	"plando/internal/stats"
	"plando/internal/storage"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var from, to string
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print completion stats as JSON",
		Long: `Print completion counts and the per-day heatmap for a date window.

Without --from/--to the window is the trailing --days ending today.

Examples:
  plando stats --load backup.json
  plando stats --load plando.db --from 2024-05-01 --to 2024-05-31`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts, reminder.NotifierFunc(discardAlert), log.New(io.Discard, "", 0))
			if err != nil {
				return err
			}
			defer a.close()

			if days <= 0 {
				days = a.cfg.StatsDays
			}
			defFrom, defTo := stats.Trailing(time.Now(), days)
			if from == "" {
				from = defFrom
			}
			if to == "" {
				to = defTo
			}
			return printResult(cmd.OutOrStdout(), a.svc.StatsRange(from, to))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().IntVar(&days, "days", 0, "trailing window length (default stats_days)")
	return cmd
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert SRC DST",
		Short: "Convert a backup between JSON and SQLite",
		Long: `Read a backup and write it in the format DST's extension names
(.db, .sqlite or .sqlite3 for SQLite, anything else for JSON).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := reminder.New(reminder.NotifierFunc(discardAlert))
			defer sched.Stop()
			svc := service.New(storage.New(), sched)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			imported := svc.ImportBackup(ctx, args[0])
			if !imported.OK {
				return imported.Err()
			}
			exported := svc.ExportBackup(ctx, args[1])
			if !exported.OK {
				return exported.Err()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %d records: %s -> %s\n", imported.Data.Imported, imported.Data.FilePath, exported.Data.FilePath)
			return nil
		},
	}
}

func newNotifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notify TITLE [BODY]",
		Short: "Show a notification immediately",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sched := reminder.New(reminder.NotifierFunc(func(title, body string) error {
				_, err := fmt.Fprintf(out, "%s: %s\n", title, body)
				return err
			}))
			defer sched.Stop()
			svc := service.New(storage.New(), sched)

			var body string
			if len(args) > 1 {
				body = args[1]
			}
			return svc.ShowNotification(args[0], body).Err()
		},
	}
}

func discardAlert(string, string) error { return nil }

// printResult writes the envelope as indented JSON and returns its error,
// if any, so the process exits non-zero.
func printResult[T any](w io.Writer, r result.Result[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return err
	}
	return r.Err()
}
