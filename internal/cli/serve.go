package cli

import (
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"plando/internal/config"
	"plando/internal/reminder"
	"plando/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve every plando operation as JSON under /api.

Fired reminders are written to the log.

Examples:
  plando serve
  plando serve --addr 127.0.0.1:9000 --load backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(cmd.ErrOrStderr(), "plando: ", log.LstdFlags)
			notifier := reminder.NotifierFunc(func(title, body string) error {
				logger.Printf("reminder: %s: %s", title, body)
				return nil
			})

			a, err := newApp(opts, notifier, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if addr == "" {
				addr = os.Getenv(config.EnvAddr)
			}
			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			gin.SetMode(gin.ReleaseMode)
			srv := server.New(a.svc,
				server.WithLogger(logger),
				server.WithLocation(time.Local),
				server.WithReminderWindow(a.cfg.Window()),
				server.WithStatsDays(a.cfg.StatsDays),
			)
			return srv.Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $PLANDO_ADDR or [server] addr)")
	return cmd
}
