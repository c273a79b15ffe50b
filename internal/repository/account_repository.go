package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// AccountRepository is the store adapter for per-user account documents.
// Every mutation is a single statement so concurrent requests for the same
// account can interleave without corrupting counters or balance.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Find(ctx context.Context, uid string) (*models.Account, error) {
	const query = `
SELECT uid, balance, subscription_status, COALESCE(subscription_product_id, ''), role,
       COALESCE(email, ''), COALESCE(name, ''), total_generated, weekly_generated,
       week_start_date, last_token_add, created_at, last_updated
FROM accounts WHERE uid = ?`
	row := r.db.QueryRowContext(ctx, query, uid)
	var a models.Account
	var weekStart, lastTokenAdd sql.NullTime
	if err := row.Scan(&a.UID, &a.Balance, &a.SubscriptionStatus, &a.SubscriptionProductID, &a.Role,
		&a.Email, &a.Name, &a.TotalGenerated, &a.WeeklyGenerated,
		&weekStart, &lastTokenAdd, &a.CreatedAt, &a.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if weekStart.Valid {
		t := weekStart.Time
		a.WeekStartDate = &t
	}
	if lastTokenAdd.Valid {
		t := lastTokenAdd.Time
		a.LastTokenAdd = &t
	}
	return &a, nil
}

// Create inserts the account if absent and is a no-op otherwise, so callers
// can bootstrap unconditionally.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	const query = `
INSERT INTO accounts (uid, balance, subscription_status, subscription_product_id, role, email, name,
                      total_generated, weekly_generated, week_start_date, last_token_add)
VALUES (?, ?, ?, NULLIF(?, ''), ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE uid = uid`
	var weekStart, lastTokenAdd any
	if account.WeekStartDate != nil {
		weekStart = *account.WeekStartDate
	}
	if account.LastTokenAdd != nil {
		lastTokenAdd = *account.LastTokenAdd
	}
	_, err := r.db.ExecContext(ctx, query,
		account.UID, account.Balance, account.SubscriptionStatus, account.SubscriptionProductID,
		account.Role, account.Email, account.Name,
		account.TotalGenerated, account.WeeklyGenerated, weekStart, lastTokenAdd)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// AddBalance atomically adjusts the balance, clamped at zero.
func (r *AccountRepository) AddBalance(ctx context.Context, uid string, delta int) error {
	const query = `UPDATE accounts SET balance = GREATEST(balance + ?, 0), last_updated = NOW() WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, delta, uid); err != nil {
		return fmt.Errorf("add balance: %w", err)
	}
	return nil
}

// DeductBalance decrements only when the balance covers the amount; the
// condition and the decrement are one statement, so the balance can never go
// negative regardless of concurrent deductions.
func (r *AccountRepository) DeductBalance(ctx context.Context, uid string, amount int) (bool, error) {
	const query = `
UPDATE accounts SET balance = balance - ?, last_updated = NOW()
WHERE uid = ? AND balance >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, uid, amount)
	if err != nil {
		return false, fmt.Errorf("deduct balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deduct rows affected: %w", err)
	}
	return affected > 0, nil
}

// GrantSubscriptionTokens credits the weekly subscription grant and stamps the
// refill timestamp in the same statement.
func (r *AccountRepository) GrantSubscriptionTokens(ctx context.Context, uid string, amount int) error {
	const query = `
UPDATE accounts SET balance = balance + ?, last_token_add = NOW(), last_updated = NOW()
WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, amount, uid); err != nil {
		return fmt.Errorf("grant subscription tokens: %w", err)
	}
	return nil
}

// UpdateSubscription sets the lifecycle status; the product id is kept when
// the event carries none.
func (r *AccountRepository) UpdateSubscription(ctx context.Context, uid string, status models.SubscriptionStatus, productID string) error {
	const query = `
UPDATE accounts
SET subscription_status = ?, subscription_product_id = COALESCE(NULLIF(?, ''), subscription_product_id), last_updated = NOW()
WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, status, productID, uid); err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// ResetWeek re-anchors the rolling window and zeroes the weekly counter.
func (r *AccountRepository) ResetWeek(ctx context.Context, uid string, start time.Time) error {
	const query = `
UPDATE accounts SET week_start_date = ?, weekly_generated = 0, last_updated = NOW()
WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, start, uid); err != nil {
		return fmt.Errorf("reset week: %w", err)
	}
	return nil
}

// IncrementGenerated adds to both the lifetime and the weekly counters.
func (r *AccountRepository) IncrementGenerated(ctx context.Context, uid string, count int) error {
	const query = `
UPDATE accounts SET total_generated = total_generated + ?, weekly_generated = weekly_generated + ?, last_updated = NOW()
WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, count, count, uid); err != nil {
		return fmt.Errorf("increment generated: %w", err)
	}
	return nil
}
