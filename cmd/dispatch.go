package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run one outbound send batch and exit",
		Long: `Sends outreach mail to stored leads that have not been contacted yet,
bounded by the remaining daily quota. Sends are strictly sequential with
a fixed pause between messages.`,

		RunE: runDispatchCommand,
	}
}

func runDispatchCommand(cmd *cobra.Command, _ []string) error {
	state, err := resolveState(cmd.Context())
	if err != nil {
		return err
	}

	result := state.app.Dispatcher().RunDaily(cmd.Context())
	state.app.Logger().Info("dispatch finished",
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	fmt.Fprintf(cmd.OutOrStdout(), "sent %d, failed %d\n", result.Sent, result.Failed)
	return nil
}
