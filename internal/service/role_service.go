package service

import (
	"context"
	"log/slog"

	"github.com/reeys/reeys-backend/internal/models"
)

// Roles resolves a user's entitlement tier. Admin bypasses credit cost and
// the weekly quota; premium bypasses credit cost only.
type Roles struct {
	accounts AccountStore
	log      *slog.Logger
}

func NewRoles(accounts AccountStore, log *slog.Logger) *Roles {
	return &Roles{accounts: accounts, log: log}
}

// Resolve returns the account's role, defaulting to normal on any lookup
// failure or absence so an outage can never escalate entitlements.
func (r *Roles) Resolve(ctx context.Context, uid string) models.Role {
	account, err := r.accounts.Find(ctx, uid)
	if err != nil {
		r.log.Warn("failed to resolve role", "uid", uid, "err", err)
		return models.RoleNormal
	}
	if account == nil || account.Role == "" {
		return models.RoleNormal
	}
	switch account.Role {
	case models.RoleAdmin, models.RolePremium, models.RoleNormal:
		return account.Role
	default:
		return models.RoleNormal
	}
}
