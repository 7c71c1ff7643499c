package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/testutil"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "7:2026-03-10:fajr:prayer_on_time", Key(7, "2026-03-10", models.Fajr, models.ActionPrayerOnTime))
	assert.Equal(t, "7:2026-03-10:fasting_bonus", Key(7, "2026-03-10", "", models.ActionFastingBonus))
	assert.Equal(t, "7:2026-03-10:isha:missed_prayer", Key(7, "2026-03-10", models.Isha, models.ActionMissedPrayer))
}

func TestAppend_DropsDuplicateKey(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	inserted, err := store.Append(ctx, NewEntry(1, "2026-03-10", models.Fajr, models.ActionPrayerOnTime, 10))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.Append(ctx, NewEntry(1, "2026-03-10", models.Fajr, models.ActionPrayerOnTime, 10))
	require.NoError(t, err)
	assert.False(t, inserted, "retry with the same key must be dropped")

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	allTime, daily, err := store.Totals(ctx, 1, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(10), allTime)
	assert.Equal(t, int64(10), daily)
}

func TestAppend_ZeroPointEntryLeavesTotalsAlone(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	inserted, err := store.Append(ctx, NewEntry(3, "2026-03-10", models.Asr, models.ActionMissedPrayer, 0))
	require.NoError(t, err)
	assert.True(t, inserted)

	var totals int64
	require.NoError(t, db.Model(&models.UserTotal{}).Count(&totals).Error)
	assert.Zero(t, totals)
}

func TestAppend_RequiresKey(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	_, err := store.Append(context.Background(), &models.LedgerEntry{UserID: 1, Date: "2026-03-10", Points: 5})
	assert.Error(t, err)
}

func TestTotals_MatchLedgerSum(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	entries := []*models.LedgerEntry{
		NewEntry(1, "2026-03-10", models.Fajr, models.ActionPrayerOnTime, 10),
		NewEntry(1, "2026-03-10", models.Dhuhr, models.ActionPrayerLate, 5),
		NewEntry(1, "2026-03-10", "", models.ActionFastingBonus, 20),
		NewEntry(1, "2026-03-10", "", models.ActionFastingRevoke, -20),
		NewEntry(1, "2026-03-11", models.Asr, models.ActionPrayerOnTime, 10),
		NewEntry(1, "2026-03-11", models.Isha, models.ActionMissedPrayer, 0),
		NewEntry(2, "2026-03-11", models.Asr, models.ActionPrayerOnTime, 10),
		NewEntry(1, "2026-03-10", models.Fajr, models.ActionPrayerOnTime, 10), // duplicate
	}
	for _, e := range entries {
		_, err := store.Append(ctx, e)
		require.NoError(t, err)
	}

	sum, err := store.Sum(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(25), sum)

	allTime, daily, err := store.Totals(ctx, 1, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, sum, allTime)
	assert.Equal(t, int64(15), daily)

	_, daily, err = store.Totals(ctx, 1, "2026-03-11")
	require.NoError(t, err)
	assert.Equal(t, int64(10), daily)

	fasting, err := store.SumForDay(ctx, 1, "2026-03-10", models.ActionFastingBonus, models.ActionFastingRevoke)
	require.NoError(t, err)
	assert.Zero(t, fasting)
}

func TestAppend_ConcurrentSameKey(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := store.Append(ctx, NewEntry(9, "2026-03-10", models.Maghrib, models.ActionPrayerOnTime, 10))
			assert.NoError(t, err)
			results <- inserted
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for r := range results {
		if r {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	allTime, _, err := store.Totals(ctx, 9, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(10), allTime)
}

func TestAppend_ConcurrentDistinctKeysSameUser(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, p := range models.ObligatoryPrayers {
		wg.Add(1)
		go func(p models.Prayer) {
			defer wg.Done()
			_, err := store.Append(ctx, NewEntry(4, "2026-03-10", p, models.ActionPrayerOnTime, 10))
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	allTime, daily, err := store.Totals(ctx, 4, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(50), allTime)
	assert.Equal(t, int64(50), daily)
}

func TestReconcile_RebuildsDriftedTotals(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	_, err := store.Append(ctx, NewEntry(5, "2026-03-10", models.Fajr, models.ActionPrayerOnTime, 10))
	require.NoError(t, err)
	_, err = store.Append(ctx, NewEntry(5, "2026-03-11", models.Fajr, models.ActionPrayerLate, 5))
	require.NoError(t, err)

	// simulate drift in the caches
	require.NoError(t, db.Model(&models.UserTotal{}).Where("user_id = ?", 5).Update("all_time", 999).Error)
	require.NoError(t, db.Where("user_id = ? AND date = ?", 5, "2026-03-11").Delete(&models.DailyTotal{}).Error)

	allTime, err := store.Reconcile(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), allTime)

	cachedAll, daily, err := store.Totals(ctx, 5, "2026-03-11")
	require.NoError(t, err)
	assert.Equal(t, int64(15), cachedAll)
	assert.Equal(t, int64(5), daily)
}

func TestReconcile_ConcurrentWithAppends(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)
	ctx := context.Background()

	_, err := store.Append(ctx, NewEntry(6, "2026-03-09", models.Isha, models.ActionPrayerOnTime, 10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i, p := range models.ObligatoryPrayers {
		wg.Add(2)
		go func(p models.Prayer) {
			defer wg.Done()
			_, err := store.Append(ctx, NewEntry(6, "2026-03-10", p, models.ActionPrayerLate, 5))
			assert.NoError(t, err)
		}(p)
		go func(i int) {
			defer wg.Done()
			_, err := store.Reconcile(ctx, 6)
			assert.NoError(t, err, "reconcile %d", i)
		}(i)
	}
	wg.Wait()

	sum, err := store.Sum(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(35), sum)

	allTime, daily, err := store.Totals(ctx, 6, "2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, sum, allTime)
	assert.Equal(t, int64(25), daily)
}

func TestReconcile_EmptyLedger(t *testing.T) {
	db := testutil.NewDB(t)
	store := NewStore(db)

	allTime, err := store.Reconcile(context.Background(), 77)
	require.NoError(t, err)
	assert.Zero(t, allTime)

	var row models.UserTotal
	require.NoError(t, db.First(&row, "user_id = ?", 77).Error)
	assert.Zero(t, row.AllTime)
}

func TestHistory_NewestFirst(t *testing.T) {
	store := NewStore(testutil.NewDB(t))
	ctx := context.Background()

	for _, p := range []models.Prayer{models.Fajr, models.Dhuhr, models.Asr} {
		_, err := store.Append(ctx, NewEntry(6, "2026-03-10", p, models.ActionPrayerOnTime, 10))
		require.NoError(t, err)
	}

	entries, total, err := store.History(ctx, 6, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].Prayer)
	assert.Equal(t, models.Asr, *entries[0].Prayer)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsUniqueViolation(assertErr("Error 1062 (23000): Duplicate entry '1-2026-03-10-fajr' for key")))
	assert.True(t, IsUniqueViolation(assertErr("UNIQUE constraint failed: prayer_records.user_id")))
	assert.False(t, IsUniqueViolation(assertErr("connection refused")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
