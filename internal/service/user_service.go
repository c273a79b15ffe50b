package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reeys/reeys-backend/internal/models"
)

// WelcomeTokens is the one-time signup grant.
const WelcomeTokens = 5

// Users initializes first-time accounts: welcome grant plus premium role for
// allow-listed emails. The operation is idempotent.
type Users struct {
	accounts AccountStore
	premium  PremiumList
	txns     TransactionLog
	log      *slog.Logger
	now      func() time.Time
}

func NewUsers(accounts AccountStore, premium PremiumList, txns TransactionLog, log *slog.Logger) *Users {
	return &Users{
		accounts: accounts,
		premium:  premium,
		txns:     txns,
		log:      log,
		now:      time.Now,
	}
}

type FirstTimeResult struct {
	Success       bool
	Message       string
	IsNewUser     bool
	Role          models.Role
	WelcomeTokens int
	Balance       int
}

// InitFirstTime creates the account with the welcome bonus, or reports that
// the user was already initialized without touching anything.
func (u *Users) InitFirstTime(ctx context.Context, uid, email, name string) (*FirstTimeResult, error) {
	existing, err := u.accounts.Find(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("init first-time user: %w", err)
	}
	if existing != nil {
		return &FirstTimeResult{
			Success:   true,
			Message:   "User already initialized",
			IsNewUser: false,
		}, nil
	}

	role := models.RoleNormal
	if email != "" {
		onList, err := u.premium.Contains(ctx, email)
		if err != nil {
			u.log.Warn("premium list lookup failed", "uid", uid, "err", err)
		} else if onList {
			role = models.RolePremium
			u.log.Info("premium role granted", "uid", uid, "email", email)
		}
	}

	account := defaultAccount(uid, u.now())
	account.Balance = WelcomeTokens
	account.Role = role
	account.Email = email
	account.Name = name
	if err := u.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("init first-time user: %w", err)
	}

	if err := u.txns.Record(ctx, uid, models.EventWelcomeBonus, WelcomeTokens,
		fmt.Sprintf("Welcome bonus for new user: %s role", role)); err != nil {
		u.log.Error("failed to record welcome bonus", "uid", uid, "err", err)
	}

	u.log.Info("first-time user initialized", "uid", uid, "role", role)
	return &FirstTimeResult{
		Success:       true,
		Message:       "User initialized successfully",
		IsNewUser:     true,
		Role:          role,
		WelcomeTokens: WelcomeTokens,
		Balance:       WelcomeTokens,
	}, nil
}
