// Package cmd defines the CLI commands for the leadflow executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logimarket/leadflow/internal/app"
	"github.com/logimarket/leadflow/internal/config"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It is a variable so tests can replace
// it with a fake factory.
var newApp = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadflow",
		Short: "Automated lead acquisition and outbound mail for the logistics marketplace",
		Long: `leadflow crawls the open web for small and mid-size logistics companies,
extracts their public contact details, and sends a rate-limited daily batch
of outreach mail. Run "serve" for the scheduled daemon, or "crawl" and
"dispatch" for one-shot runs.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, &runtimeState{app: a, cfg: cfg}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if state, ok := cmd.Context().Value(appKey).(*runtimeState); ok && state != nil {
				state.app.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables used when unset)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newDispatchCmd())

	return cmd
}

// runtimeState bundles the service container with the loaded config for
// subcommands.
type runtimeState struct {
	app *app.App
	cfg config.Config
}

func resolveState(ctx context.Context) (*runtimeState, error) {
	state, ok := ctx.Value(appKey).(*runtimeState)
	if !ok || state == nil {
		return nil, errors.New("application services not initialized")
	}
	return state, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
