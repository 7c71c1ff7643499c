package main

import (
	"context"

	"github.com/hasanat/tracker/config"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/routes"
	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	var notifier services.Notifier
	var fanout *notify.Fanout
	if cfg.NotifyEnabled {
		fanout = notify.NewFanout(
			notify.NewGormDirectory(db),
			notify.NewExpoTransport(cfg.PushEndpoint, cfg.PushAccessToken, cfg.NotifyTimeout),
			notify.Options{BatchSize: cfg.NotifyBatchSize, Timeout: cfg.NotifyTimeout, Logger: utils.Logger.Named("notify")},
		)
		notifier = fanout
	}

	deps := routes.NewDependencies(db, cfg, utils.NewCache(), notifier, utils.SystemClock)
	r := routes.SetupRouter(deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.SweepEnabled {
		deps.Sweeper.Start(ctx)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err := utils.GraceServer(":"+cfg.AppPort, r)

	deps.Sweeper.Stop()
	if fanout != nil {
		fanout.Wait()
	}
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
