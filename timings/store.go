// Package timings stores each user's daily prayer timetable and serves it through a
// per-user-per-day cache. Rows are immutable once written.
package timings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/timewindow"
	"github.com/hasanat/tracker/utils"
)

// ErrNotFound is returned when no timetable exists for (user, date).
var ErrNotFound = errors.New("prayer timings not found")

// Reader is the read side consumed by the scoring services.
type Reader interface {
	Get(ctx context.Context, userID uint, date string) (*models.PrayerTimings, error)
}

// Store persists timetables with gorm.
type Store struct {
	db *gorm.DB
}

// NewStore creates a timings store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get loads the timetable for (user, date).
func (s *Store) Get(ctx context.Context, userID uint, date string) (*models.PrayerTimings, error) {
	var t models.PrayerTimings
	err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load timings for user %d on %s: %w", userID, date, err)
	}
	return &t, nil
}

// Save validates t and inserts it unless a row for (user, date) already exists, in which case
// the stored row is returned unchanged. created reports which happened.
func (s *Store) Save(ctx context.Context, t *models.PrayerTimings) (stored *models.PrayerTimings, created bool, err error) {
	if t.Midnight.IsZero() {
		t.Midnight = timewindow.DeriveMidnight(t.Fajr, t.Maghrib)
	}
	normalize(t)
	if err := timewindow.Validate(t); err != nil {
		return nil, false, err
	}

	err = s.db.WithContext(ctx).Create(t).Error
	if err == nil {
		return t, true, nil
	}
	if !ledger.IsUniqueViolation(err) {
		return nil, false, fmt.Errorf("save timings for user %d on %s: %w", t.UserID, t.Date, err)
	}
	existing, getErr := s.Get(ctx, t.UserID, t.Date)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

// ScanFajrBetween walks every timetable whose fajr lies in [from, to] in id order, batchSize
// rows at a time. fn errors stop the walk.
func (s *Store) ScanFajrBetween(ctx context.Context, from, to time.Time, batchSize int, fn func([]models.PrayerTimings) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var batch []models.PrayerTimings
	res := s.db.WithContext(ctx).
		Where("fajr >= ? AND fajr <= ?", from.UTC(), to.UTC()).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(batch)
		})
	return res.Error
}

func normalize(t *models.PrayerTimings) {
	t.Fajr = t.Fajr.UTC()
	t.Sunrise = t.Sunrise.UTC()
	t.Dhuhr = t.Dhuhr.UTC()
	t.Asr = t.Asr.UTC()
	t.Maghrib = t.Maghrib.UTC()
	t.Isha = t.Isha.UTC()
	t.Midnight = t.Midnight.UTC()
}

// CachedReader serves timetables from cache, falling back to the underlying reader. Only hits
// are cached; a missing timetable may be created at any moment.
type CachedReader struct {
	next   Reader
	cache  utils.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedReader wraps next with cache.
func NewCachedReader(next Reader, cache utils.Cache, ttl time.Duration, logger *zap.Logger) *CachedReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReader{next: next, cache: cache, ttl: ttl, logger: logger}
}

// CacheKey is the cache key of a (user, date) timetable.
func CacheKey(userID uint, date string) string {
	return "timings:" + strconv.FormatUint(uint64(userID), 10) + ":" + date
}

// Get returns the cached timetable or loads and caches it.
func (r *CachedReader) Get(ctx context.Context, userID uint, date string) (*models.PrayerTimings, error) {
	key := CacheKey(userID, date)
	if b, ok := r.cache.Get(ctx, key); ok {
		var t models.PrayerTimings
		if err := json.Unmarshal(b, &t); err == nil {
			return &t, nil
		}
		r.logger.Warn("discarding undecodable cached timings", zap.String("key", key))
		r.cache.Delete(ctx, key)
	}

	t, err := r.next.Get(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(t); err == nil {
		r.cache.Set(ctx, key, b, r.ttl)
	}
	return t, nil
}
