package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeys/reeys-backend/internal/apperr"
	"github.com/reeys/reeys-backend/internal/models"
	"github.com/reeys/reeys-backend/internal/service/servicetest"
	"github.com/reeys/reeys-backend/internal/workpool"
)

type generatorFixture struct {
	store    *servicetest.MemStore
	gateway  *servicetest.FakeGateway
	uploader *servicetest.FakeUploader
	images   *servicetest.FakeImageStore
	packs    *servicetest.FakePackStore
	gen      *Generator
}

func newGeneratorFixture(t *testing.T, now time.Time) *generatorFixture {
	t.Helper()
	store := servicetest.NewMemStore()
	store.Now = fixedClock(now)

	ledger := NewLedger(store, store, testLogger())
	ledger.now = fixedClock(now)
	quota := NewQuota(store, testLogger())
	quota.now = fixedClock(now)
	subs := NewSubscriptions(store, ledger, store, testLogger())
	subs.now = fixedClock(now)
	roles := NewRoles(store, testLogger())

	f := &generatorFixture{
		store:    store,
		gateway:  &servicetest.FakeGateway{},
		uploader: &servicetest.FakeUploader{},
		images:   &servicetest.FakeImageStore{},
		packs:    &servicetest.FakePackStore{Packs: map[string]*models.Pack{}},
	}
	f.gen = NewGenerator(testLogger(), f.gateway, f.uploader, f.images, f.packs,
		ledger, quota, roles, subs, workpool.New(2))
	return f
}

func (f *generatorFixture) seedUser(uid string, balance int, role models.Role, now time.Time) {
	weekStart := now
	f.store.Put(&models.Account{
		UID:           uid,
		Balance:       balance,
		Role:          role,
		WeekStartDate: &weekStart,
	})
}

func (f *generatorFixture) seedPack(id, name string, prompts []string) {
	f.packs.Packs[id] = &models.Pack{ID: id, Name: name, Prompts: prompts, IsActive: true}
}

func TestGenerateSingleChargesOneToken(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 10, models.RoleNormal, now)

	result, err := f.gen.GenerateSingle(context.Background(), "user-1", []byte("orig"), "make it pop", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("image:make it pop"), result.ImageData)
	assert.Equal(t, 9, result.TokensRemaining)

	account := f.store.Get("user-1")
	assert.Equal(t, 9, account.Balance)
	assert.Equal(t, 1, account.WeeklyGenerated)
	assert.Equal(t, 1, account.TotalGenerated)
}

func TestGenerateSingleInsufficientTokens(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 0, models.RoleNormal, now)

	_, err := f.gen.GenerateSingle(context.Background(), "user-1", []byte("orig"), "p", nil)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.FailedPrecondition, appErr.Code)
	assert.Equal(t, true, appErr.Details["needsTokens"])
	assert.Equal(t, 0, appErr.Details["balance"])
	assert.Equal(t, 1, appErr.Details["required"])
	assert.Empty(t, f.gateway.Prompts)
}

func TestGenerateSingleGatewayFailureChargesNothing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 10, models.RoleNormal, now)
	f.gateway.GenerateImageFn = func(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error) {
		return nil, errors.New("model unavailable")
	}

	_, err := f.gen.GenerateSingle(context.Background(), "user-1", []byte("orig"), "p", nil)
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.Internal, appErr.Code)
	assert.Equal(t, 10, f.store.Get("user-1").Balance)
}

func TestGenerateSingleRefillsDueSubscription(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	weekStart := now
	lastAdd := now.Add(-8 * 24 * time.Hour)
	f.store.Put(&models.Account{
		UID:                "user-1",
		Balance:            0,
		Role:               models.RoleNormal,
		SubscriptionStatus: models.SubscriptionActive,
		WeekStartDate:      &weekStart,
		LastTokenAdd:       &lastAdd,
	})

	// The refill lands before the balance check, so a zero balance passes.
	result, err := f.gen.GenerateSingle(context.Background(), "user-1", []byte("orig"), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, WeeklyTokenGrant-1, result.TokensRemaining)
}

func TestGeneratePackDropsFailedTaskAndChargesForProduced(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 50, models.RoleNormal, now)
	f.seedPack("pack-1", "Vintage", []string{"p0", "p1", "p2", "p3", "p4"})
	f.gateway.GenerateImageFn = func(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error) {
		if prompt == "p2" {
			return nil, errors.New("safety block")
		}
		return []byte("image:" + prompt), nil
	}

	result, err := f.gen.GeneratePack(context.Background(), "user-1", "pack-1", []byte("orig"))
	require.NoError(t, err)

	assert.Equal(t, "Vintage", result.PackName)
	assert.Equal(t, 4, result.GeneratedCount)
	assert.Equal(t, 5, result.TotalPrompts)
	require.Len(t, result.Images, 4)

	indices := make([]int, 0, len(result.Images))
	for _, img := range result.Images {
		indices = append(indices, img.Index)
		assert.NotEmpty(t, img.ImageURL)
		assert.NotEmpty(t, img.DocumentID)
	}
	assert.Equal(t, []int{0, 1, 3, 4}, indices)

	// Charged for the four produced images, not the five requested.
	account := f.store.Get("user-1")
	assert.Equal(t, 46, account.Balance)
	assert.Equal(t, 46, result.TokensRemaining)
	assert.Equal(t, 4, account.WeeklyGenerated)
	assert.Len(t, f.images.Saved, 4)
}

func TestGeneratePackAllTasksFail(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 50, models.RoleNormal, now)
	f.seedPack("pack-1", "Vintage", []string{"p0", "p1"})
	f.gateway.GenerateImageFn = func(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error) {
		return nil, errors.New("safety block")
	}

	_, err := f.gen.GeneratePack(context.Background(), "user-1", "pack-1", []byte("orig"))
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.Internal, appErr.Code)
	assert.Equal(t, 50, f.store.Get("user-1").Balance)
	assert.Equal(t, 0, f.store.Get("user-1").WeeklyGenerated)
}

func TestGeneratePackUnknownOrInactivePack(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 50, models.RoleNormal, now)
	f.packs.Packs["pack-off"] = &models.Pack{ID: "pack-off", Name: "Off", Prompts: []string{"p"}, IsActive: false}

	for _, packID := range []string{"missing", "pack-off"} {
		_, err := f.gen.GeneratePack(context.Background(), "user-1", packID, []byte("orig"))
		var appErr *apperr.Error
		require.True(t, errors.As(err, &appErr), "pack %s", packID)
		assert.Equal(t, apperr.NotFound, appErr.Code)
	}
}

func TestGeneratePackInsufficientBalanceForBatch(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 3, models.RoleNormal, now)
	f.seedPack("pack-1", "Vintage", []string{"p0", "p1", "p2", "p3", "p4"})

	_, err := f.gen.GeneratePack(context.Background(), "user-1", "pack-1", []byte("orig"))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.FailedPrecondition, appErr.Code)
	assert.Equal(t, 3, appErr.Details["balance"])
	assert.Equal(t, 5, appErr.Details["required"])
	assert.Empty(t, f.gateway.Prompts)
}

func TestGeneratePackWeeklyLimitExceeded(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	weekStart := now.Add(-time.Hour)
	f.store.Put(&models.Account{
		UID:             "user-1",
		Balance:         1000,
		Role:            models.RoleNormal,
		WeeklyGenerated: 298,
		WeekStartDate:   &weekStart,
	})
	f.seedPack("pack-1", "Vintage", []string{"p0", "p1", "p2"})

	_, err := f.gen.GeneratePack(context.Background(), "user-1", "pack-1", []byte("orig"))
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.FailedPrecondition, appErr.Code)
	assert.Equal(t, true, appErr.Details["weeklyLimitExceeded"])
	assert.Equal(t, WeeklyGenerationLimit, appErr.Details["weeklyLimit"])
	assert.Equal(t, 3, appErr.Details["imagesRequested"])
}

func TestPremiumBypassesBalanceButNotQuota(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	f.seedUser("user-1", 0, models.RolePremium, now)
	f.seedPack("pack-1", "Vintage", []string{"p0", "p1"})

	result, err := f.gen.GeneratePack(context.Background(), "user-1", "pack-1", []byte("orig"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.GeneratedCount)

	// Not charged, but the weekly quota still counts.
	account := f.store.Get("user-1")
	assert.Equal(t, 0, account.Balance)
	assert.Equal(t, 2, account.WeeklyGenerated)
}

func TestPremiumStillBoundByWeeklyQuota(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	weekStart := now.Add(-time.Hour)
	f.store.Put(&models.Account{
		UID:             "user-1",
		Balance:         0,
		Role:            models.RolePremium,
		WeeklyGenerated: WeeklyGenerationLimit,
		WeekStartDate:   &weekStart,
	})

	_, err := f.gen.GenerateSingle(context.Background(), "user-1", []byte("orig"), "p", nil)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.FailedPrecondition, appErr.Code)
	assert.Equal(t, true, appErr.Details["weeklyLimitExceeded"])
}

func TestImageByIDEnforcesOwnership(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	ctx := context.Background()

	docID, err := f.images.Save(ctx, "user-1", "https://cdn.test/a.jpg", "a.jpg", "p0")
	require.NoError(t, err)

	img, err := f.gen.ImageByID(ctx, "user-1", docID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/a.jpg", img.ImageURL)

	_, err = f.gen.ImageByID(ctx, "user-2", docID)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.NotFound, appErr.Code)

	_, err = f.gen.ImageByID(ctx, "user-1", "missing")
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.NotFound, appErr.Code)
}

func TestAdminBypassesBalanceAndQuota(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newGeneratorFixture(t, now)
	weekStart := now.Add(-time.Hour)
	f.store.Put(&models.Account{
		UID:             "admin-1",
		Balance:         0,
		Role:            models.RoleAdmin,
		WeeklyGenerated: WeeklyGenerationLimit + 100,
		WeekStartDate:   &weekStart,
	})

	result, err := f.gen.GenerateSingle(context.Background(), "admin-1", []byte("orig"), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TokensRemaining)
	assert.Equal(t, 0, f.store.Get("admin-1").Balance)
	// Usage is still counted for admins.
	assert.Equal(t, WeeklyGenerationLimit+101, f.store.Get("admin-1").WeeklyGenerated)
}
