package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/timewindow"
	"github.com/hasanat/tracker/timings"
)

// MarkResult is the outcome of a successful mark.
type MarkResult struct {
	Status models.PrayerStatus  `json:"status"`
	Points int                  `json:"points"`
	Record *models.PrayerRecord `json:"record"`
}

// PrayerService marks prayers as on time or late.
type PrayerService struct {
	db       *gorm.DB
	ledger   *ledger.Store
	timings  timings.Reader
	points   Points
	notifier Notifier
	logger   *zap.Logger
}

// NewPrayerService wires the marking service. notifier and logger may be nil.
func NewPrayerService(db *gorm.DB, ledgerStore *ledger.Store, reader timings.Reader, points Points, notifier Notifier, logger *zap.Logger) *PrayerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrayerService{
		db:       db,
		ledger:   ledgerStore,
		timings:  reader,
		points:   points,
		notifier: orNop(notifier),
		logger:   logger,
	}
}

// MarkPrayer records prayer for (userID, date) at now. Each triple resolves exactly once; a
// repeated or concurrent mark fails with ErrAlreadyLogged.
func (s *PrayerService) MarkPrayer(ctx context.Context, userID uint, date string, prayer models.Prayer, now time.Time) (*MarkResult, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if !prayer.IsObligatory() {
		return nil, ErrInvalidPrayer
	}

	t, err := s.timings.Get(ctx, userID, date)
	if errors.Is(err, timings.ErrNotFound) {
		return nil, ErrTimingsNotFound
	}
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.PrayerRecord{}).
		Where("user_id = ? AND date = ? AND prayer = ?", userID, date, prayer).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check prayer record: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyLogged
	}

	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	w, err := timewindow.For(t, prayer, user.OnTimeWindowMinutes)
	if err != nil {
		return nil, ErrInvalidPrayer
	}
	status, err := w.Evaluate(now)
	switch {
	case errors.Is(err, timewindow.ErrTooEarly):
		return nil, ErrTooEarly
	case errors.Is(err, timewindow.ErrClosed):
		return nil, ErrWindowClosed
	case err != nil:
		return nil, err
	}

	points, action := s.points.OnTime, models.ActionPrayerOnTime
	if status == models.StatusLate {
		points, action = s.points.Late, models.ActionPrayerLate
	}

	markedAt := now.UTC()
	record := &models.PrayerRecord{
		UserID:        userID,
		Date:          date,
		Prayer:        prayer,
		Status:        status,
		MarkedAt:      &markedAt,
		PointsAwarded: points,
		WindowStart:   w.Start,
		WindowEnd:     w.End,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			if ledger.IsUniqueViolation(err) {
				return ErrAlreadyLogged
			}
			return fmt.Errorf("insert prayer record: %w", err)
		}
		inserted, err := s.ledger.AppendTx(tx, ledger.NewEntry(userID, date, prayer, action, points))
		if err != nil {
			return err
		}
		if !inserted {
			s.logger.Info("ledger entry already present for new prayer record",
				zap.Uint("user_id", userID), zap.String("date", date), zap.String("prayer", string(prayer)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("prayer marked",
		zap.Uint("user_id", userID), zap.String("date", date), zap.String("prayer", string(prayer)),
		zap.String("status", string(status)), zap.Int("points", points))

	s.notifier.Notify(userID, notify.CategoryPrayerMarked, prayerMarkedMessage(user, prayer, status))

	return &MarkResult{Status: status, Points: points, Record: record}, nil
}

// Records lists the caller's prayer records for date in daily order.
func (s *PrayerService) Records(ctx context.Context, userID uint, date string) ([]models.PrayerRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var records []models.PrayerRecord
	if err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list prayer records: %w", err)
	}
	order := make(map[models.Prayer]int, len(models.ObligatoryPrayers))
	for i, p := range models.ObligatoryPrayers {
		order[p] = i
	}
	sort.Slice(records, func(i, j int) bool { return order[records[i].Prayer] < order[records[j].Prayer] })
	return records, nil
}

func prayerTitle(p models.Prayer) string {
	s := string(p)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func prayerMarkedMessage(u *models.User, p models.Prayer, status models.PrayerStatus) notify.Message {
	when := "on time"
	if status == models.StatusLate {
		when = "late"
	}
	return notify.Message{
		Title: u.DisplayNameOrUsername(),
		Body:  fmt.Sprintf("prayed %s %s", prayerTitle(p), when),
		Data:  map[string]string{"prayer": string(p), "status": string(status)},
	}
}

func missedPrayerMessage(u *models.User, p models.Prayer) notify.Message {
	return notify.Message{
		Title: u.DisplayNameOrUsername(),
		Body:  fmt.Sprintf("missed %s", prayerTitle(p)),
		Data:  map[string]string{"prayer": string(p)},
	}
}
