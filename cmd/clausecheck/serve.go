package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clausecheck/internal/playbook"
	"clausecheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	version, err := a.playbook.Seed(ctx, cfg.PlaybookSeed)
	if err != nil {
		logger.Warn("playbook seeding failed, starting without a playbook", zap.Error(err))
	} else {
		logger.Info("playbook ready",
			zap.String("version_id", version.ID),
			zap.String("version_label", version.VersionLabel))
	}

	srv := server.New(cfg.Server, a.store, a.orchestrator, a.bus, a.playbook, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx, cfg.Server.Addr)
	})
	if cfg.WatchSeed {
		watcher := playbook.NewWatcher(a.playbook, cfg.PlaybookSeed, logger)
		g.Go(func() error {
			err := watcher.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
