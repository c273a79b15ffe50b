package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// Ledger owns the credit balance of every account. Deductions fail closed;
// grants never fail short of store unavailability. Audit records are written
// best-effort and never abort the mutation they describe.
type Ledger struct {
	accounts AccountStore
	txns     TransactionLog
	log      *slog.Logger
	now      func() time.Time
}

func NewLedger(accounts AccountStore, txns TransactionLog, log *slog.Logger) *Ledger {
	return &Ledger{
		accounts: accounts,
		txns:     txns,
		log:      log,
		now:      time.Now,
	}
}

// GetBalance returns the current balance, bootstrapping the account with a
// zero balance if it does not exist yet.
func (l *Ledger) GetBalance(ctx context.Context, uid string) (int, error) {
	account, err := l.accounts.Find(ctx, uid)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	if account == nil {
		if err := l.Bootstrap(ctx, uid); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return account.Balance, nil
}

// Deduct removes amount credits if the balance covers them. It returns false
// without error when it does not, or when the account had to be bootstrapped
// first. The balance read is advisory; the store-level decrement is
// conditional, so concurrent deductions cannot drive the balance negative.
func (l *Ledger) Deduct(ctx context.Context, uid string, amount int) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}

	account, err := l.accounts.Find(ctx, uid)
	if err != nil {
		return false, fmt.Errorf("deduct: %w", err)
	}
	if account == nil {
		if err := l.Bootstrap(ctx, uid); err != nil {
			return false, err
		}
		return false, nil
	}
	if account.Balance < amount {
		return false, nil
	}

	ok, err := l.accounts.DeductBalance(ctx, uid, amount)
	if err != nil {
		return false, fmt.Errorf("deduct: %w", err)
	}
	if !ok {
		return false, nil
	}

	l.record(ctx, uid, models.EventDeduction, -amount, fmt.Sprintf("Image generation: %d tokens", amount))
	return true, nil
}

// Grant credits the account, bootstrapping it if needed, and records a
// transaction tagged with the source.
func (l *Ledger) Grant(ctx context.Context, uid string, amount int, source string) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}

	account, err := l.accounts.Find(ctx, uid)
	if err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	if account == nil {
		if err := l.Bootstrap(ctx, uid); err != nil {
			return err
		}
	}

	if err := l.accounts.AddBalance(ctx, uid, amount); err != nil {
		return fmt.Errorf("grant: %w", err)
	}

	l.record(ctx, uid, source, amount, fmt.Sprintf("Tokens added: %d from %s", amount, source))
	return nil
}

// History returns the most recent audit records for the account, newest
// first.
func (l *Ledger) History(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	txns, err := l.txns.ListForUser(ctx, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// Bootstrap creates the account with default fields. It is idempotent: an
// existing account is left untouched.
func (l *Ledger) Bootstrap(ctx context.Context, uid string) error {
	if err := l.accounts.Create(ctx, defaultAccount(uid, l.now())); err != nil {
		return fmt.Errorf("bootstrap account: %w", err)
	}
	return nil
}

func (l *Ledger) record(ctx context.Context, uid, event string, amount int, description string) {
	if err := l.txns.Record(ctx, uid, event, amount, description); err != nil {
		l.log.Error("failed to record transaction", "uid", uid, "event", event, "err", err)
	}
}
