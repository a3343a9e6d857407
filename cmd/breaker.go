package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/mailbot/internal/application"
	"github.com/bnema/mailbot/internal/domain"
	"github.com/spf13/cobra"
)

func newBreakerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect or reset circuit breakers",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:       "show [agent|digest]",
			Short:     "Show breaker state",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: []string{string(domain.OperationAgent), string(domain.OperationDigest)},
			RunE: func(cmd *cobra.Command, args []string) error {
				breakers := app.breakers()
				if len(args) == 1 {
					breaker, err := app.status.Breaker(domain.OperationName(args[0]))
					if err != nil {
						return err
					}
					breakers = []*application.CircuitBreaker{breaker}
				}

				now := app.clock.Now()
				for _, breaker := range breakers {
					status, err := breaker.Status(cmd.Context())
					if err != nil {
						return err
					}
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), formatBreakerLine(status, now)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:       "reset <agent|digest>",
			Short:     "Close a breaker and clear its failure count",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(domain.OperationAgent), string(domain.OperationDigest)},
			RunE: func(cmd *cobra.Command, args []string) error {
				breaker, err := app.status.Breaker(domain.OperationName(args[0]))
				if err != nil {
					return err
				}
				if err := breaker.Reset(cmd.Context()); err != nil {
					return fmt.Errorf("reset breaker %s: %w", args[0], err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Breaker %s reset\n", args[0])
				return err
			},
		},
	)

	return cmd
}

func formatBreakerLine(status domain.BreakerStatus, now time.Time) string {
	line := fmt.Sprintf("%s: %d/%d failures", status.Operation, status.State.FailureCount, status.State.MaxFailures)
	if !status.Open {
		return line + ", closed"
	}
	reopens := status.State.ReopensAt()
	return fmt.Sprintf("%s, open until %s (%s)", line, reopens.UTC().Format(time.RFC3339), reopens.Sub(now).Round(time.Second))
}
