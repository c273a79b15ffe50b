package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reeys/reeys-backend/internal/models"
)

// TransactionRepository appends audit records to the per-account history.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Record(ctx context.Context, uid, event string, amount int, description string) error {
	const query = `
INSERT INTO account_transactions (uid, event, amount, description)
VALUES (?, ?, ?, NULLIF(?, ''))`
	if _, err := r.db.ExecContext(ctx, query, uid, event, amount, description); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) ListForUser(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
SELECT id, uid, event, amount, COALESCE(description, ''), created_at
FROM account_transactions
WHERE uid = ?
ORDER BY id DESC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UID, &t.Event, &t.Amount, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
