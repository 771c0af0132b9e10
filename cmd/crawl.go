package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one acquisition sweep and exit",
		Long: `Runs a single lead-acquisition sweep: picks today's search queries,
asks the discovery oracle for candidate company URLs, crawls each page,
and stores any new leads found. Pages are fetched sequentially with a
fixed pause between requests.`,

		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	state, err := resolveState(cmd.Context())
	if err != nil {
		return err
	}

	result := state.app.Crawler().RunSweep(cmd.Context())
	state.app.Logger().Info("sweep finished",
		zap.Int("searched", result.Searched),
		zap.Int("found", result.Found))
	fmt.Fprintf(cmd.OutOrStdout(), "searched %d pages, found %d new leads\n", result.Searched, result.Found)
	return nil
}
