package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/mailbot/internal/application"
	"github.com/spf13/cobra"
)

func newDaemonCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Serve the chat bot until interrupted",
		Long:  "Serve the chat bot: drafting sessions, /ask and /status. Exits quietly when another daemon already holds the lock.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.cfg.RequireAllowedChats(); err != nil {
				return err
			}

			release, acquired, err := app.acquireRole(roleDaemon)
			if err != nil || !acquired {
				return err
			}
			defer release()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app.pruneAudit()

			daemon, err := app.buildDaemon(ctx)
			if err != nil {
				return err
			}

			if addr := app.cfg.MetricsListen; addr != "" {
				go func() {
					if err := app.metrics.Serve(ctx, addr); err != nil {
						app.logger.Error("metrics endpoint stopped", "addr", addr, "error", err)
					}
				}()
			}

			return daemon.Run(ctx)
		},
	}
}

func (a *app) buildDaemon(ctx context.Context) (*application.Daemon, error) {
	transport, err := a.chatTransport(ctx)
	if err != nil {
		return nil, err
	}
	mail, err := a.mailClient(ctx)
	if err != nil {
		return nil, err
	}
	gate, err := a.queryGate(ctx, a.agentBreaker)
	if err != nil {
		return nil, err
	}

	conversation := application.NewConversationMachine(application.ConversationDeps{
		Mail:   mail,
		Audit:  a.audit,
		Clock:  a.clock,
		TTL:    a.cfg.Session.TTL,
		Logger: a.logger,
	})

	return application.NewDaemon(application.DaemonDeps{
		Transport:        transport,
		Conversation:     conversation,
		Gate:             gate,
		Breakers:         a.breakers(),
		Snapshots:        a.snapshots,
		AllowedChats:     a.cfg.Telegram.AllowedChatIDs,
		AskSystemPrompt:  askSystemPrompt,
		MaxTurns:         a.cfg.Digest.MaxTurns,
		SweepInterval:    a.cfg.Session.SweepInterval,
		SnapshotInterval: a.cfg.Session.SnapshotInterval,
		Audit:            a.audit,
		Metrics:          a.metrics,
		Clock:            a.clock,
		Logger:           a.logger,
	})
}
