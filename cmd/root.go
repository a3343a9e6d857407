package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mailbot",
		Short:         "mailbot: mailbox digest and chat drafting daemon",
		Long:          "mailbot watches a mailbox, sends a periodic digest of what needs attention to a chat, and drafts mail from chat conversations. Run `mailbot daemon` under a supervisor and `mailbot digest` from a scheduler.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp(os.Stderr)
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newDaemonCmd(app),
		newDigestCmd(app),
		newStatusCmd(app),
		newBreakerCmd(app),
		newAuthCmd(app),
	)

	return rootCmd
}
