package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
)

// FastingResult carries the points applied by a fasting operation. A broken fast reports the
// negative revocation.
type FastingResult struct {
	Points int                   `json:"points"`
	Record *models.FastingRecord `json:"record"`
}

// FastingService declares and breaks daily fasts.
type FastingService struct {
	db       *gorm.DB
	ledger   *ledger.Store
	points   Points
	notifier Notifier
	logger   *zap.Logger
}

// NewFastingService wires the fasting service. notifier and logger may be nil.
func NewFastingService(db *gorm.DB, ledgerStore *ledger.Store, points Points, notifier Notifier, logger *zap.Logger) *FastingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FastingService{db: db, ledger: ledgerStore, points: points, notifier: orNop(notifier), logger: logger}
}

// SetFasting declares once per day whether the user is fasting. A fast earns the bonus.
func (s *FastingService) SetFasting(ctx context.Context, userID uint, date string, isFasting bool, now time.Time) (*FastingResult, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.FastingRecord{}).
		Where("user_id = ? AND date = ?", userID, date).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check fasting record: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadySet
	}

	points := 0
	if isFasting {
		points = s.points.FastingBonus
	}
	record := &models.FastingRecord{
		UserID:        userID,
		Date:          date,
		IsFasting:     isFasting,
		PointsAwarded: points,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			if ledger.IsUniqueViolation(err) {
				return ErrAlreadySet
			}
			return fmt.Errorf("insert fasting record: %w", err)
		}
		if !isFasting {
			return nil
		}
		_, err := s.ledger.AppendTx(tx, ledger.NewEntry(userID, date, "", models.ActionFastingBonus, points))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("fasting set", zap.Uint("user_id", userID), zap.String("date", date),
		zap.Bool("is_fasting", isFasting), zap.Int("points", points))

	if isFasting {
		user, err := loadUser(ctx, s.db, userID)
		if err != nil {
			s.logger.Warn("skip fasting notification", zap.Uint("user_id", userID), zap.Error(err))
		} else {
			s.notifier.Notify(userID, notify.CategoryFasting, notify.Message{
				Title: user.DisplayNameOrUsername(),
				Body:  "is fasting today",
			})
		}
	}
	return &FastingResult{Points: points, Record: record}, nil
}

// BreakFast revokes the day's fasting bonus. The bonus and the revocation sum to zero.
func (s *FastingService) BreakFast(ctx context.Context, userID uint, date string, now time.Time) (*FastingResult, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var record models.FastingRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoFastingLog
	}
	if err != nil {
		return nil, fmt.Errorf("load fasting record: %w", err)
	}
	if !record.IsFasting {
		return nil, ErrNotFasting
	}
	if record.Broken {
		return nil, ErrAlreadyBroken
	}

	revoked := -record.PointsAwarded
	brokenAt := now.UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FastingRecord{}).
			Where("id = ? AND broken = ?", record.ID, false).
			Updates(map[string]interface{}{
				"broken":         true,
				"broken_at":      brokenAt,
				"points_awarded": 0,
				"updated_at":     brokenAt,
			})
		if res.Error != nil {
			return fmt.Errorf("break fast: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyBroken
		}
		_, err := s.ledger.AppendTx(tx, ledger.NewEntry(userID, date, "", models.ActionFastingRevoke, revoked))
		return err
	})
	if err != nil {
		return nil, err
	}

	record.Broken = true
	record.BrokenAt = &brokenAt
	record.PointsAwarded = 0
	record.UpdatedAt = brokenAt
	s.logger.Info("fast broken", zap.Uint("user_id", userID), zap.String("date", date), zap.Int("points", revoked))
	return &FastingResult{Points: revoked, Record: &record}, nil
}

// Record returns the fasting record for date, or nil when none was declared.
func (s *FastingService) Record(ctx context.Context, userID uint, date string) (*models.FastingRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	var record models.FastingRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load fasting record: %w", err)
	}
	return &record, nil
}
