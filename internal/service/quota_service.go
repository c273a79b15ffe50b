package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WeeklyGenerationLimit bounds generations per account per rolling week.
// Fixed policy value, not configurable per account.
const WeeklyGenerationLimit = 300

const weekLength = 7 * 24 * time.Hour

// Quota tracks rolling 7-day generation counters. The window is re-anchored
// lazily at the point of use; there is no background sweep.
type Quota struct {
	accounts AccountStore
	log      *slog.Logger
	now      func() time.Time
}

func NewQuota(accounts AccountStore, log *slog.Logger) *Quota {
	return &Quota{
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
}

// CheckWeeklyLimit reports whether requested more generations fit in the
// current window. An absent account is bootstrapped and counts as zero usage.
func (q *Quota) CheckWeeklyLimit(ctx context.Context, uid string, requested int) (bool, error) {
	account, err := q.accounts.Find(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("check weekly limit: %w", err)
	}
	if account == nil {
		if err := q.accounts.Create(ctx, defaultAccount(uid, q.now())); err != nil {
			return false, fmt.Errorf("check weekly limit: %w", err)
		}
		return requested <= WeeklyGenerationLimit, nil
	}

	weekly, err := q.rolloverIfStale(ctx, uid, account.WeekStartDate, account.WeeklyGenerated)
	if err != nil {
		return false, err
	}
	return weekly+requested <= WeeklyGenerationLimit, nil
}

// IncrementUsage adds count to both the lifetime and the weekly counters,
// rolling the window over first if it went stale.
func (q *Quota) IncrementUsage(ctx context.Context, uid string, count int) error {
	account, err := q.accounts.Find(ctx, uid)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if account == nil {
		if err := q.accounts.Create(ctx, defaultAccount(uid, q.now())); err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
	} else {
		if _, err := q.rolloverIfStale(ctx, uid, account.WeekStartDate, account.WeeklyGenerated); err != nil {
			return err
		}
	}

	if err := q.accounts.IncrementGenerated(ctx, uid, count); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// rolloverIfStale re-anchors the window when it is unset or at least a week
// old and returns the weekly count valid after the check.
func (q *Quota) rolloverIfStale(ctx context.Context, uid string, weekStart *time.Time, weekly int) (int, error) {
	now := q.now()
	if weekStart == nil {
		if err := q.accounts.ResetWeek(ctx, uid, now); err != nil {
			return 0, fmt.Errorf("anchor week: %w", err)
		}
		return 0, nil
	}
	if now.Sub(*weekStart) >= weekLength {
		if err := q.accounts.ResetWeek(ctx, uid, now); err != nil {
			return 0, fmt.Errorf("roll week over: %w", err)
		}
		q.log.Info("weekly generation window reset", "uid", uid)
		return 0, nil
	}
	return weekly, nil
}
