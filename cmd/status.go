package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	statusadapter "github.com/bnema/mailbot/internal/adapters/render/status"
	"github.com/bnema/mailbot/internal/application"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, breaker and credential state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if watch {
				if asJSON {
					return errors.New("--watch and --json cannot be combined")
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()

				load := func(ctx context.Context) (application.StatusReport, error) {
					return app.status.Report(ctx, app.cfg.Account)
				}
				return statusadapter.Watch(ctx, load, statusadapter.WatchOptions{
					Interval: interval,
					Input:    cmd.InOrStdin(),
					Output:   cmd.OutOrStdout(),
					Render:   statusadapter.RenderOptions{StaleAfter: staleAfter(app)},
				})
			}

			report, err := app.status.Report(cmd.Context(), app.cfg.Account)
			if err != nil {
				return fmt.Errorf("build status report: %w", err)
			}
			return writeStatusOutput(cmd, app, report, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the view open and refresh it")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Refresh interval for --watch")
	return cmd
}

func writeStatusOutput(cmd *cobra.Command, app *app, report application.StatusReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	rendered, err := app.statusRenderer(report, statusadapter.RenderOptions{
		Now:        report.GeneratedAt,
		StaleAfter: staleAfter(app),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

// staleAfter flags a snapshot once a live daemon has missed two writes.
func staleAfter(app *app) time.Duration {
	return 2 * app.cfg.Session.SnapshotInterval
}
