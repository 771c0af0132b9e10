package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	systemclock "github.com/logimarket/leadflow/internal/clock/system"
	"github.com/logimarket/leadflow/internal/ops"
	"github.com/logimarket/leadflow/internal/schedule"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled acquisition and dispatch daemon",
		Long: `Runs the long-lived daemon: an acquisition sweep every morning and an
outbound send batch later in the day, both at fixed local wall-clock
times. Also serves health and metrics endpoints.`,

		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	state, err := resolveState(cmd.Context())
	if err != nil {
		return err
	}
	logger := state.app.Logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.New(systemclock.New(), state.app.Location(), logger)
	scheduler.Register("crawl", schedule.Trigger{
		Hour:   state.cfg.Schedule.CrawlHour,
		Minute: state.cfg.Schedule.CrawlMinute,
	}, func(ctx context.Context) error {
		result := state.app.Crawler().RunSweep(ctx)
		logger.Info("scheduled sweep finished",
			zap.Int("searched", result.Searched),
			zap.Int("found", result.Found))
		return nil
	})
	scheduler.Register("dispatch", schedule.Trigger{
		Hour:   state.cfg.Schedule.SendHour,
		Minute: state.cfg.Schedule.SendMinute,
	}, func(ctx context.Context) error {
		result := state.app.Dispatcher().RunDaily(ctx)
		logger.Info("scheduled dispatch finished",
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed))
		return nil
	})

	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", state.cfg.Ops.Port),
		Handler:           ops.NewServer(state.app.Readiness, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.Int("port", state.cfg.Ops.Port))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	logger.Info("scheduler running",
		zap.String("timezone", state.cfg.Schedule.Timezone),
		zap.Int("crawl_hour", state.cfg.Schedule.CrawlHour),
		zap.Int("send_hour", state.cfg.Schedule.SendHour))
	scheduler.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown", zap.Error(err))
	}
	logger.Info("daemon stopped")
	return nil
}
