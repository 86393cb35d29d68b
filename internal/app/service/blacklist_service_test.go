package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

type blacklistFixture struct {
	svc      *BlacklistService
	store    *testsetup.MemoryBlacklistStore
	clock    *testsetup.FakeClock
	notifier *testsetup.RecordingNotifier
	caps     *testsetup.StaticCapabilities
}

func newBlacklist(t *testing.T) blacklistFixture {
	t.Helper()
	f := blacklistFixture{
		store:    testsetup.NewMemoryBlacklistStore(),
		clock:    testsetup.NewFakeClock(),
		notifier: &testsetup.RecordingNotifier{},
		caps:     testsetup.NewCapabilities(),
	}
	f.caps.Admins["admin"] = true
	log, _ := testsetup.NewLogger()
	f.svc = NewBlacklistService(context.Background(), f.store, f.caps, f.notifier, f.clock, log, nil)
	return f
}

func TestBlacklist_PermanentNeverExpires(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	e, err := f.svc.Suspend(ctx, "g", "admin", "u", "toxic", 0)
	require.NoError(t, err)
	assert.True(t, e.Permanent)

	f.clock.Advance(10 * 365 * 24 * time.Hour)
	assert.True(t, f.svc.IsSuspended(ctx, "u"))
	assert.True(t, f.store.Has("u"))
}

func TestBlacklist_TimedExpiresLazily(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	_, err := f.svc.Suspend(ctx, "g", "admin", "u", "afk", 2)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	assert.True(t, f.svc.IsSuspended(ctx, "u"))
	assert.True(t, f.store.Has("u"))

	f.clock.Advance(2 * time.Hour)
	assert.False(t, f.svc.IsSuspended(ctx, "u"))
	assert.False(t, f.store.Has("u"))

	_, ok := f.svc.Status(ctx, "u")
	assert.False(t, ok)
}

func TestBlacklist_SuspendOverwrites(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	_, err := f.svc.Suspend(ctx, "g", "admin", "u", "first", 0)
	require.NoError(t, err)
	_, err = f.svc.Suspend(ctx, "g", "admin", "u", "second", 1)
	require.NoError(t, err)

	e, ok := f.svc.Status(ctx, "u")
	require.True(t, ok)
	assert.Equal(t, "second", e.Reason)
	assert.False(t, e.Permanent)

	f.clock.Advance(2 * time.Hour)
	assert.False(t, f.svc.IsSuspended(ctx, "u"))
}

func TestBlacklist_Validation(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	_, err := f.svc.Suspend(ctx, "g", "admin", "u", "x", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = f.svc.Suspend(ctx, "g", "random", "u", "x", 1)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.False(t, f.svc.IsSuspended(ctx, "u"))
}

func TestBlacklist_Lift(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	err := f.svc.Lift(ctx, "g", "admin", "u")
	assert.ErrorIs(t, err, domain.ErrNotSuspended)

	_, err = f.svc.Suspend(ctx, "g", "admin", "u", "x", 0)
	require.NoError(t, err)
	require.NoError(t, f.svc.Lift(ctx, "g", "admin", "u"))
	assert.False(t, f.svc.IsSuspended(ctx, "u"))
	assert.False(t, f.store.Has("u"))

	assert.Equal(t, []domain.EventKind{domain.EventPlayerSuspended, domain.EventPlayerUnsuspended}, f.notifier.Kinds())
}

func TestBlacklist_LiftExpiredIsNotSuspended(t *testing.T) {
	f := newBlacklist(t)
	ctx := context.Background()

	_, err := f.svc.Suspend(ctx, "g", "admin", "u", "afk", 1)
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	err = f.svc.Lift(ctx, "g", "admin", "u")
	assert.ErrorIs(t, err, domain.ErrNotSuspended)
	assert.False(t, f.store.Has("u"))
	assert.Equal(t, []domain.EventKind{domain.EventPlayerSuspended}, f.notifier.Kinds())
}

func TestBlacklist_SurvivesStoreAndNotifierFailures(t *testing.T) {
	store := testsetup.NewMemoryBlacklistStore()
	store.Entries["old"] = domain.BlacklistEntry{Permanent: true}
	caps := testsetup.NewCapabilities()
	caps.Admins["admin"] = true
	n := &testsetup.RecordingNotifier{Fail: true}
	log, hook := testsetup.NewLogger()
	clk := testsetup.NewFakeClock()

	svc := NewBlacklistService(context.Background(), store, caps, n, clk, log, nil)
	assert.True(t, svc.IsSuspended(context.Background(), "old"))

	store.Fail = true
	_, err := svc.Suspend(context.Background(), "g", "admin", "u", "x", 0)
	require.NoError(t, err)
	assert.True(t, svc.IsSuspended(context.Background(), "u"))
	// un warning por el store y otro por el notifier
	assert.Equal(t, 2, testsetup.Warnings(hook))
}
