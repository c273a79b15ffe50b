package service

import (
	"context"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// AccountStore is the ledger store adapter contract. Every mutation is a
// single atomic statement at the store layer; cross-call sequences are not
// transactional.
type AccountStore interface {
	Find(ctx context.Context, uid string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	AddBalance(ctx context.Context, uid string, delta int) error
	DeductBalance(ctx context.Context, uid string, amount int) (bool, error)
	GrantSubscriptionTokens(ctx context.Context, uid string, amount int) error
	UpdateSubscription(ctx context.Context, uid string, status models.SubscriptionStatus, productID string) error
	ResetWeek(ctx context.Context, uid string, start time.Time) error
	IncrementGenerated(ctx context.Context, uid string, count int) error
}

// TransactionLog appends and reads audit records. Writes are treated as
// best-effort by callers: logged, never propagated.
type TransactionLog interface {
	Record(ctx context.Context, uid, event string, amount int, description string) error
	ListForUser(ctx context.Context, uid string, limit int) ([]models.Transaction, error)
}

type PackStore interface {
	FindByID(ctx context.Context, id string) (*models.Pack, error)
	List(ctx context.Context) ([]models.Pack, error)
}

type PremiumList interface {
	Contains(ctx context.Context, email string) (bool, error)
}

// ImageStore persists metadata for generated images and returns document ids.
type ImageStore interface {
	Save(ctx context.Context, userID, imageURL, fileName, prompt string) (string, error)
	FindByID(ctx context.Context, id string) (*models.GeneratedImage, error)
}

// BlobUploader stores image bytes externally and returns (publicURL, key).
type BlobUploader interface {
	Upload(ctx context.Context, userID string, data []byte, contentType string) (string, string, error)
}

// Gateway is the AI generation collaborator.
type Gateway interface {
	GenerateImage(ctx context.Context, original []byte, prompt string, reference []byte) ([]byte, error)
	GenerateSuggestions(ctx context.Context, image []byte) ([]models.Suggestion, error)
}

// defaultAccount is the lazily bootstrapped account shape: zero balance, no
// subscription, the weekly window anchored at now.
func defaultAccount(uid string, now time.Time) *models.Account {
	weekStart := now
	return &models.Account{
		UID:                uid,
		Balance:            0,
		SubscriptionStatus: models.SubscriptionNone,
		Role:               models.RoleNormal,
		WeekStartDate:      &weekStart,
	}
}
