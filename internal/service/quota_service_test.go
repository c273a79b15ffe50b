package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeys/reeys-backend/internal/models"
	"github.com/reeys/reeys-backend/internal/service/servicetest"
)

func seedAccount(store *servicetest.MemStore, uid string, weekly int, weekStart time.Time) {
	store.Put(&models.Account{
		UID:             uid,
		Role:            models.RoleNormal,
		WeeklyGenerated: weekly,
		WeekStartDate:   &weekStart,
	})
}

func TestQuotaAllowsRequestWithinLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	seedAccount(store, "user-1", 295, now.Add(-24*time.Hour))

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuotaRejectsRequestOverLimit(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	seedAccount(store, "user-1", 295, now.Add(-24*time.Hour))

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", 6)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuotaStaleWindowRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	seedAccount(store, "user-1", 299, now.Add(-8*24*time.Hour))

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	// After rollover the whole limit is available again.
	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", WeeklyGenerationLimit)
	require.NoError(t, err)
	assert.True(t, ok)

	account := store.Get("user-1")
	require.NotNil(t, account.WeekStartDate)
	assert.True(t, account.WeekStartDate.Equal(now))
	assert.Equal(t, 0, account.WeeklyGenerated)
}

func TestQuotaExactlySevenDaysRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	seedAccount(store, "user-1", 300, now.Add(-7*24*time.Hour))

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestQuotaMissingWindowIsAnchored(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	store.Put(&models.Account{UID: "user-1", Role: models.RoleNormal, WeeklyGenerated: 50})

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", 10)
	require.NoError(t, err)
	assert.True(t, ok)

	account := store.Get("user-1")
	require.NotNil(t, account.WeekStartDate)
	assert.True(t, account.WeekStartDate.Equal(now))
}

func TestQuotaAbsentAccountBootstrapsWithZeroUsage(t *testing.T) {
	store := servicetest.NewMemStore()
	quota := NewQuota(store, testLogger())

	ok, err := quota.CheckWeeklyLimit(context.Background(), "user-1", WeeklyGenerationLimit)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = quota.CheckWeeklyLimit(context.Background(), "user-1", WeeklyGenerationLimit+1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuotaIncrementUsageBumpsBothCounters(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := servicetest.NewMemStore()
	seedAccount(store, "user-1", 10, now.Add(-time.Hour))

	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)

	require.NoError(t, quota.IncrementUsage(context.Background(), "user-1", 4))

	account := store.Get("user-1")
	assert.Equal(t, 14, account.WeeklyGenerated)
	assert.Equal(t, 4, account.TotalGenerated)
}
