package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/reeys/reeys-backend/internal/models"
)

// ImageRepository stores metadata records for generated images.
type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Save inserts a record for one generated image and returns its document id.
func (r *ImageRepository) Save(ctx context.Context, userID, imageURL, fileName, prompt string) (string, error) {
	prompts, err := json.Marshal([]string{prompt})
	if err != nil {
		return "", fmt.Errorf("marshal prompts: %w", err)
	}
	id := uuid.NewString()
	const query = `
INSERT INTO generated_images (id, user_id, image_url, file_name, prompts)
VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, userID, imageURL, fileName, string(prompts)); err != nil {
		return "", fmt.Errorf("insert generated image: %w", err)
	}
	return id, nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*models.GeneratedImage, error) {
	const query = `
SELECT id, user_id, image_url, file_name, prompts, created_at
FROM generated_images WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)
	var img models.GeneratedImage
	var rawPrompts string
	if err := row.Scan(&img.ID, &img.UserID, &img.ImageURL, &img.FileName, &rawPrompts, &img.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan generated image: %w", err)
	}
	if err := json.Unmarshal([]byte(rawPrompts), &img.Prompts); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}
	return &img, nil
}
