package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PremiumRepository checks the email allow-list used to assign the premium
// role at first-time initialization.
type PremiumRepository struct {
	db *sql.DB
}

func NewPremiumRepository(db *sql.DB) *PremiumRepository {
	return &PremiumRepository{db: db}
}

func (r *PremiumRepository) Contains(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	const query = `SELECT COUNT(*) FROM premium_emails WHERE email = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&count); err != nil {
		return false, fmt.Errorf("check premium email: %w", err)
	}
	return count > 0, nil
}
