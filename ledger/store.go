// Package ledger is the append-only points log. Every scored event is one row keyed by a
// deterministic idempotency key; running totals are maintained in the same transaction and can
// be rebuilt from the log at any time.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hasanat/tracker/models"
)

// Store writes and reads ledger entries and their materialized totals.
type Store struct {
	db *gorm.DB
}

// NewStore creates a ledger store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Key derives the idempotency key for an event. Prayer events are keyed
// user:date:prayer:action, day-level events user:date:action.
func Key(userID uint, date string, prayer models.Prayer, action models.LedgerAction) string {
	parts := []string{strconv.FormatUint(uint64(userID), 10), date}
	if prayer != "" {
		parts = append(parts, string(prayer))
	}
	parts = append(parts, string(action))
	return strings.Join(parts, ":")
}

// NewEntry builds an entry with its idempotency key filled in.
func NewEntry(userID uint, date string, prayer models.Prayer, action models.LedgerAction, points int) *models.LedgerEntry {
	e := &models.LedgerEntry{
		UserID:         userID,
		Action:         action,
		Points:         points,
		Date:           date,
		IdempotencyKey: Key(userID, date, prayer, action),
	}
	if prayer != "" {
		p := prayer
		e.Prayer = &p
	}
	return e
}

// Append inserts entry in its own transaction. See AppendTx.
func (s *Store) Append(ctx context.Context, entry *models.LedgerEntry) (bool, error) {
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inserted, err = s.AppendTx(tx, entry)
		return err
	})
	return inserted, err
}

// AppendTx inserts entry inside tx and bumps the user's totals by its points. It returns false
// without error when the idempotency key already exists; the duplicate is dropped and totals
// are left untouched.
func (s *Store) AppendTx(tx *gorm.DB, entry *models.LedgerEntry) (bool, error) {
	if entry.IdempotencyKey == "" {
		return false, fmt.Errorf("ledger entry for user %d has no idempotency key", entry.UserID)
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "idempotency_key"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		if IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("insert ledger entry %s: %w", entry.IdempotencyKey, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if entry.Points == 0 {
		return true, nil
	}
	if err := bumpTotals(tx, entry.UserID, entry.Date, int64(entry.Points)); err != nil {
		return false, err
	}
	return true, nil
}

func bumpTotals(tx *gorm.DB, userID uint, date string, delta int64) error {
	now := time.Now()
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"all_time": gorm.Expr("all_time + ?", delta), "updated_at": now}),
	}).Create(&models.UserTotal{UserID: userID, AllTime: delta, UpdatedAt: now}).Error
	if err != nil {
		return fmt.Errorf("bump all-time total for user %d: %w", userID, err)
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"total": gorm.Expr("total + ?", delta), "updated_at": now}),
	}).Create(&models.DailyTotal{UserID: userID, Date: date, Total: delta, UpdatedAt: now}).Error
	if err != nil {
		return fmt.Errorf("bump daily total for user %d on %s: %w", userID, date, err)
	}
	return nil
}

// Totals returns the cached all-time total and the cached total for date.
func (s *Store) Totals(ctx context.Context, userID uint, date string) (allTime, daily int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&models.UserTotal{}).Where("user_id = ?", userID).
		Select("COALESCE(MAX(all_time),0)").Scan(&allTime).Error; err != nil {
		return 0, 0, fmt.Errorf("load all-time total: %w", err)
	}
	if err = db.Model(&models.DailyTotal{}).Where("user_id = ? AND date = ?", userID, date).
		Select("COALESCE(MAX(total),0)").Scan(&daily).Error; err != nil {
		return 0, 0, fmt.Errorf("load daily total: %w", err)
	}
	return allTime, daily, nil
}

// Sum adds up every ledger entry of a user. This is the authoritative figure.
func (s *Store) Sum(ctx context.Context, userID uint) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(points),0)").Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("sum ledger for user %d: %w", userID, err)
	}
	return sum, nil
}

// SumForDay adds up a user's entries for one date, optionally restricted to actions.
func (s *Store) SumForDay(ctx context.Context, userID uint, date string, actions ...models.LedgerAction) (int64, error) {
	var sum int64
	q := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ? AND date = ?", userID, date)
	if len(actions) > 0 {
		q = q.Where("action IN ?", actions)
	}
	if err := q.Select("COALESCE(SUM(points),0)").Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("sum ledger for user %d on %s: %w", userID, date, err)
	}
	return sum, nil
}

// History lists a user's entries newest first.
func (s *Store) History(ctx context.Context, userID uint, limit, offset int) ([]models.LedgerEntry, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	db := s.db.WithContext(ctx).Model(&models.LedgerEntry{}).Where("user_id = ?", userID)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	var entries []models.LedgerEntry
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, total, nil
}

// Reconcile rebuilds a user's cached totals from the ledger and returns the all-time sum. The
// totals row stays locked until the rebuild commits, so appends that bump it wait and apply
// their delta on top of the rebuilt figure.
func (s *Store) Reconcile(ctx context.Context, userID uint) (int64, error) {
	var allTime int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&models.UserTotal{UserID: userID, UpdatedAt: now}).Error; err != nil {
			return fmt.Errorf("seed totals row: %w", err)
		}
		var locked models.UserTotal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&locked).Error; err != nil {
			return fmt.Errorf("lock totals row: %w", err)
		}

		type dayRow struct {
			Date  string
			Total int64
		}
		var days []dayRow
		if err := tx.Model(&models.LedgerEntry{}).Where("user_id = ?", userID).
			Select("date, SUM(points) AS total").Group("date").Scan(&days).Error; err != nil {
			return fmt.Errorf("aggregate ledger: %w", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.DailyTotal{}).Error; err != nil {
			return fmt.Errorf("clear daily totals: %w", err)
		}
		for _, d := range days {
			allTime += d.Total
			if err := tx.Create(&models.DailyTotal{UserID: userID, Date: d.Date, Total: d.Total, UpdatedAt: now}).Error; err != nil {
				return fmt.Errorf("write daily total %s: %w", d.Date, err)
			}
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"all_time": allTime, "updated_at": now}),
		}).Create(&models.UserTotal{UserID: userID, AllTime: allTime, UpdatedAt: now}).Error
	})
	if err != nil {
		return 0, err
	}
	return allTime, nil
}
