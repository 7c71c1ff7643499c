package routes

import (
	"gorm.io/gorm"

	"github.com/hasanat/tracker/config"
	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/services"
	"github.com/hasanat/tracker/timings"
	"github.com/hasanat/tracker/utils"
)

// Dependencies are the stores and services behind the HTTP API and the background sweeper.
type Dependencies struct {
	DB            *gorm.DB
	Ledger        *ledger.Store
	Timings       *timings.Store
	TimingsReader timings.Reader
	Prayers       *services.PrayerService
	Fasting       *services.FastingService
	Sweeper       *services.Sweeper
	Clock         utils.Clock
}

// NewDependencies builds every store and service from configuration. notifier may be nil to
// disable friend notifications.
func NewDependencies(db *gorm.DB, cfg config.AppConfig, cache utils.Cache, notifier services.Notifier, clock utils.Clock) *Dependencies {
	if clock == nil {
		clock = utils.SystemClock
	}
	logger := utils.Logger
	points := services.PointsFromConfig(cfg)
	ledgerStore := ledger.NewStore(db)
	timingsStore := timings.NewStore(db)
	reader := timings.NewCachedReader(timingsStore, cache, cfg.TimingsCacheTTL, logger.Named("timings"))

	return &Dependencies{
		DB:            db,
		Ledger:        ledgerStore,
		Timings:       timingsStore,
		TimingsReader: reader,
		Prayers:       services.NewPrayerService(db, ledgerStore, reader, points, notifier, logger.Named("prayers")),
		Fasting:       services.NewFastingService(db, ledgerStore, points, notifier, logger.Named("fasting")),
		Sweeper: services.NewSweeper(db, ledgerStore, timingsStore, notifier, logger.Named("sweeper"), services.SweepOptions{
			Interval:  cfg.SweepInterval,
			Lookback:  cfg.SweepLookback,
			BatchSize: cfg.SweepBatchSize,
			Clock:     clock,
		}),
		Clock: clock,
	}
}
