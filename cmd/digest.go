package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/mailbot/internal/application"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/spf13/cobra"
)

func newDigestCmd(app *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Run one digest pass and notify the chat",
		Long:  "Run one digest pass: fetch recent mail, classify it, and send what needs attention to the notify chat. Meant for a scheduler; failures are logged and exit 0 except when the account needs reauthorization.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.cfg.RequireNotifyChat(); err != nil {
				return err
			}

			release, acquired, err := app.acquireRole(roleDigest)
			if err != nil || !acquired {
				return err
			}
			defer release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.pruneAudit()

			open, err := app.digestBreaker.IsOpen(ctx)
			if err != nil {
				return err
			}
			if open {
				app.logger.Info("digest skipped, breaker open")
				if verbose {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), domain.DigestSkipped)
				}
				return nil
			}

			mail, err := app.mailClient(ctx)
			if err != nil {
				return err
			}
			transport, err := app.chatTransport(ctx)
			if err != nil {
				return err
			}
			gate, err := app.queryGate(ctx, app.digestBreaker)
			if err != nil {
				return err
			}

			pipeline, err := application.NewDigestPipeline(application.DigestDeps{
				Breaker:      app.digestBreaker,
				Mail:         mail,
				Gate:         gate,
				Scanner:      application.NewContaminationScanner(app.cfg.Digest.SystemPrompt),
				Notifier:     transport,
				NotifyChat:   app.cfg.Telegram.NotifyChatID,
				WindowHours:  app.cfg.Digest.WindowHours,
				SystemPrompt: app.cfg.Digest.SystemPrompt,
				MaxTurns:     app.cfg.Digest.MaxTurns,
				Audit:        app.audit,
				Metrics:      app.metrics,
				Logger:       app.logger,
			})
			if err != nil {
				return err
			}

			result, err := pipeline.Run(ctx)
			if verbose {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (run %s, %d fetched, %d significant)\n",
					result.Outcome, result.RunID, result.Fetched, len(result.Significant))
			}
			if errors.Is(err, domain.ErrReauthorizationRequired) {
				return fmt.Errorf("%w; run `mailbot auth login`", err)
			}
			if err != nil {
				app.logger.Warn("digest run failed", "run_id", result.RunID, "outcome", result.Outcome, "error", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the run outcome")
	return cmd
}
