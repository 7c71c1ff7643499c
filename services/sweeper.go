package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/timewindow"
	"github.com/hasanat/tracker/timings"
	"github.com/hasanat/tracker/utils"
)

// SweepResult aggregates one sweep run.
type SweepResult struct {
	RunID     string        `json:"run_id"`
	Processed int           `json:"processed"`
	Missed    int           `json:"missed"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// SweepOptions tune a Sweeper. Zero values use a 15 minute interval, a 36 hour lookback and
// batches of 200.
type SweepOptions struct {
	Interval  time.Duration
	Lookback  time.Duration
	BatchSize int
	Clock     utils.Clock
}

// Sweeper turns prayers whose window closed without a mark into missed records. It is the only
// component that declares a prayer missed.
type Sweeper struct {
	db       *gorm.DB
	ledger   *ledger.Store
	timings  *timings.Store
	notifier Notifier
	logger   *zap.Logger
	opts     SweepOptions

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSweeper wires the sweeper. notifier and logger may be nil.
func NewSweeper(db *gorm.DB, ledgerStore *ledger.Store, timingsStore *timings.Store, notifier Notifier, logger *zap.Logger, opts SweepOptions) *Sweeper {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 36 * time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		db:       db,
		ledger:   ledgerStore,
		timings:  timingsStore,
		notifier: orNop(notifier),
		logger:   logger,
		opts:     opts,
	}
}

// RunMissedPrayerSweep examines every timetable whose fajr lies within the lookback and records
// each ended, unresolved prayer as missed. Failures are logged and counted; the run continues.
// Re-running is always safe.
func (s *Sweeper) RunMissedPrayerSweep(ctx context.Context, now time.Time) SweepResult {
	started := time.Now()
	res := SweepResult{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", res.RunID))

	users := make(map[uint]*models.User)
	err := s.timings.ScanFajrBetween(ctx, now.Add(-s.opts.Lookback), now, s.opts.BatchSize, func(rows []models.PrayerTimings) error {
		for i := range rows {
			res.Processed++
			s.sweepDay(ctx, log, &rows[i], now, users, &res)
		}
		return nil
	})
	if err != nil {
		res.Failed++
		log.Error("missed prayer sweep aborted scan", zap.Error(err))
	}

	res.Duration = time.Since(started)
	log.Info("missed prayer sweep finished",
		zap.Int("processed", res.Processed), zap.Int("missed", res.Missed),
		zap.Int("failed", res.Failed), zap.Duration("duration", res.Duration))
	return res
}

func (s *Sweeper) sweepDay(ctx context.Context, log *zap.Logger, t *models.PrayerTimings, now time.Time, users map[uint]*models.User, res *SweepResult) {
	var resolved []models.Prayer
	if err := s.db.WithContext(ctx).Model(&models.PrayerRecord{}).
		Where("user_id = ? AND date = ?", t.UserID, t.Date).
		Pluck("prayer", &resolved).Error; err != nil {
		res.Failed++
		log.Warn("load prayer records failed", zap.Uint("user_id", t.UserID), zap.String("date", t.Date), zap.Error(err))
		return
	}
	done := make(map[models.Prayer]bool, len(resolved))
	for _, p := range resolved {
		done[p] = true
	}

	for _, p := range models.ObligatoryPrayers {
		if done[p] {
			continue
		}
		w, err := timewindow.For(t, p, timewindow.DefaultOnTimeWindow)
		if err != nil || !w.HasEnded(now) {
			continue
		}
		inserted, err := s.recordMissed(ctx, t, w)
		if err != nil {
			res.Failed++
			log.Warn("record missed prayer failed",
				zap.Uint("user_id", t.UserID), zap.String("date", t.Date), zap.String("prayer", string(p)), zap.Error(err))
			continue
		}
		if !inserted {
			continue
		}
		res.Missed++

		user, ok := users[t.UserID]
		if !ok {
			if user, err = loadUser(ctx, s.db, t.UserID); err != nil {
				log.Warn("skip missed prayer notification", zap.Uint("user_id", t.UserID), zap.Error(err))
				continue
			}
			users[t.UserID] = user
		}
		s.notifier.Notify(t.UserID, notify.CategoryMissedPrayer, missedPrayerMessage(user, p))
	}
}

// recordMissed reports false when a mark or another sweep resolved the prayer first.
func (s *Sweeper) recordMissed(ctx context.Context, t *models.PrayerTimings, w timewindow.Window) (bool, error) {
	inserted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := &models.PrayerRecord{
			UserID:      t.UserID,
			Date:        t.Date,
			Prayer:      w.Prayer,
			Status:      models.StatusMissed,
			WindowStart: w.Start,
			WindowEnd:   w.End,
		}
		if err := tx.Create(record).Error; err != nil {
			if ledger.IsUniqueViolation(err) {
				return nil
			}
			return fmt.Errorf("insert missed record: %w", err)
		}
		if _, err := s.ledger.AppendTx(tx, ledger.NewEntry(t.UserID, t.Date, w.Prayer, models.ActionMissedPrayer, 0)); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// Start runs the sweep every interval until ctx ends or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				s.safeRun(ctx)
			}
		}
	}()
	s.logger.Info("missed prayer sweeper started", zap.Duration("interval", s.opts.Interval))
}

func (s *Sweeper) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("missed prayer sweep panicked", zap.Any("panic", r))
		}
	}()
	s.RunMissedPrayerSweep(ctx, s.opts.Clock())
}

// Stop ends the loop and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}
