package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hasanat/tracker/ledger"
	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/testutil"
	"github.com/hasanat/tracker/timings"
)

const day = "2026-03-10"

type sent struct {
	actor    uint
	category notify.Category
	msg      notify.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeNotifier) Notify(actorID uint, category notify.Category, msg notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{actor: actorID, category: category, msg: msg})
}

func (f *fakeNotifier) byCategory(c notify.Category) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.category == c {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	ledger   *ledger.Store
	timings  *timings.Store
	notifier *fakeNotifier
	prayers  *PrayerService
	fasting  *FastingService
	sweeper  *Sweeper
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		ledger:   ledger.NewStore(db),
		timings:  timings.NewStore(db),
		notifier: &fakeNotifier{},
	}
	f.prayers = NewPrayerService(db, f.ledger, f.timings, DefaultPoints, f.notifier, nil)
	f.fasting = NewFastingService(db, f.ledger, DefaultPoints, f.notifier, nil)
	f.sweeper = NewSweeper(db, f.ledger, f.timings, f.notifier, nil, SweepOptions{})
	return f
}

// user creates a user with a 30 minute window and the standard timetable on day.
func (f *fixture) user(t *testing.T, name string) *models.User {
	u := testutil.CreateUser(t, f.db, name, 30)
	testutil.CreateTimings(t, f.db, u.ID, day)
	return u
}

func (f *fixture) records(t *testing.T, userID uint) []models.PrayerRecord {
	var out []models.PrayerRecord
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}

func (f *fixture) entries(t *testing.T, userID uint) []models.LedgerEntry {
	var out []models.LedgerEntry
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("id").Find(&out).Error)
	return out
}

func (f *fixture) requireTotalsMatchLedger(t *testing.T, userID uint, date string) {
	t.Helper()
	ctx := context.Background()
	allTime, daily, err := f.ledger.Totals(ctx, userID, date)
	require.NoError(t, err)
	sum, err := f.ledger.Sum(ctx, userID)
	require.NoError(t, err)
	daySum, err := f.ledger.SumForDay(ctx, userID, date)
	require.NoError(t, err)
	require.Equal(t, sum, allTime)
	require.Equal(t, daySum, daily)
}
