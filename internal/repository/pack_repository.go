package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reeys/reeys-backend/internal/models"
)

// PackRepository reads prompt packs. Prompts are stored as a JSON array to
// keep their order.
type PackRepository struct {
	db *sql.DB
}

func NewPackRepository(db *sql.DB) *PackRepository {
	return &PackRepository{db: db}
}

func (r *PackRepository) FindByID(ctx context.Context, id string) (*models.Pack, error) {
	const query = `
SELECT id, name, prompts, is_active, created_at, updated_at
FROM packs WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var p models.Pack
	var rawPrompts string
	if err := row.Scan(&p.ID, &p.Name, &rawPrompts, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan pack: %w", err)
	}
	if err := json.Unmarshal([]byte(rawPrompts), &p.Prompts); err != nil {
		return nil, fmt.Errorf("parse pack prompts: %w", err)
	}
	return &p, nil
}

func (r *PackRepository) List(ctx context.Context) ([]models.Pack, error) {
	const query = `
SELECT id, name, prompts, is_active, created_at, updated_at
FROM packs
WHERE is_active = 1
ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	defer rows.Close()

	var packs []models.Pack
	for rows.Next() {
		var p models.Pack
		var rawPrompts string
		if err := rows.Scan(&p.ID, &p.Name, &rawPrompts, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pack: %w", err)
		}
		if err := json.Unmarshal([]byte(rawPrompts), &p.Prompts); err != nil {
			return nil, fmt.Errorf("parse pack prompts: %w", err)
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}
