package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasanat/tracker/models"
	"github.com/hasanat/tracker/notify"
	"github.com/hasanat/tracker/testutil"
)

func TestFasting_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "amina")
	now := testutil.Clock(day, "04:00")

	res, err := f.fasting.SetFasting(ctx, u.ID, day, true, now)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Points)

	_, err = f.fasting.SetFasting(ctx, u.ID, day, true, now)
	assert.ErrorIs(t, err, ErrAlreadySet)
	assert.Len(t, f.entries(t, u.ID), 1)

	res, err = f.fasting.BreakFast(ctx, u.ID, day, testutil.Clock(day, "13:00"))
	require.NoError(t, err)
	assert.Equal(t, -20, res.Points)

	record, err := f.fasting.Record(ctx, u.ID, day)
	require.NoError(t, err)
	assert.True(t, record.Broken)
	assert.Equal(t, 0, record.PointsAwarded)
	require.NotNil(t, record.BrokenAt)

	entries := f.entries(t, u.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionFastingRevoke, entries[1].Action)
	assert.Equal(t, -20, entries[1].Points)

	net, err := f.ledger.SumForDay(ctx, u.ID, day, models.ActionFastingBonus, models.ActionFastingRevoke)
	require.NoError(t, err)
	assert.Equal(t, int64(0), net)
	f.requireTotalsMatchLedger(t, u.ID, day)

	_, err = f.fasting.BreakFast(ctx, u.ID, day, testutil.Clock(day, "14:00"))
	assert.ErrorIs(t, err, ErrAlreadyBroken)
}

func TestFasting_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "amina")
	now := testutil.Clock(day, "04:00")

	_, err := f.fasting.BreakFast(ctx, u.ID, day, now)
	assert.ErrorIs(t, err, ErrNoFastingLog)

	res, err := f.fasting.SetFasting(ctx, u.ID, day, false, now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Points)
	assert.Empty(t, f.entries(t, u.ID))

	_, err = f.fasting.BreakFast(ctx, u.ID, day, now)
	assert.ErrorIs(t, err, ErrNotFasting)

	_, err = f.fasting.SetFasting(ctx, u.ID, "2026-3-10", true, now)
	assert.ErrorIs(t, err, ErrInvalidDate)

	assert.Empty(t, f.notifier.byCategory(notify.CategoryFasting))
}

func TestFasting_NotifiesOnlyWhenFasting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "amina")

	_, err := f.fasting.SetFasting(ctx, u.ID, day, true, testutil.Clock(day, "04:00"))
	require.NoError(t, err)
	_, err = f.fasting.BreakFast(ctx, u.ID, day, testutil.Clock(day, "12:00"))
	require.NoError(t, err)

	got := f.notifier.byCategory(notify.CategoryFasting)
	require.Len(t, got, 1)
	assert.Equal(t, "is fasting today", got[0].msg.Body)
}

func TestTotalsMatchLedgerAfterMixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "amina")
	testutil.CreateTimings(t, f.db, u.ID, "2026-03-11")

	_, err := f.prayers.MarkPrayer(ctx, u.ID, day, models.Fajr, testutil.Clock(day, "05:40"))
	require.NoError(t, err)
	_, err = f.prayers.MarkPrayer(ctx, u.ID, day, models.Dhuhr, testutil.Clock(day, "13:30"))
	require.NoError(t, err)
	_, err = f.fasting.SetFasting(ctx, u.ID, day, true, testutil.Clock(day, "04:00"))
	require.NoError(t, err)
	_, err = f.fasting.BreakFast(ctx, u.ID, day, testutil.Clock(day, "14:00"))
	require.NoError(t, err)
	f.sweeper.RunMissedPrayerSweep(ctx, testutil.Clock("2026-03-11", "06:00"))
	_, err = f.prayers.MarkPrayer(ctx, u.ID, "2026-03-11", models.Fajr, testutil.Clock("2026-03-11", "05:31"))
	require.NoError(t, err)
	_, err = f.fasting.SetFasting(ctx, u.ID, "2026-03-11", true, testutil.Clock("2026-03-11", "04:00"))
	require.NoError(t, err)

	f.requireTotalsMatchLedger(t, u.ID, day)
	f.requireTotalsMatchLedger(t, u.ID, "2026-03-11")

	allTime, _, err := f.ledger.Totals(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Equal(t, int64(10+5+20-20+10+20), allTime)
}
