package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
)

var (
	ErrBookmarkNotFound = errors.New("bookmark not found")
	ErrBookmarkExists   = errors.New("bookmark already exists")
	ErrBookmarkJob      = errors.New("job not found")
)

type BookmarkRepository struct {
	db *sqlx.DB
}

func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Add сохраняет закладку. Вакансия должна существовать.
func (r *BookmarkRepository) Add(ctx context.Context, userID, jobID uuid.UUID) (*models.Bookmark, error) {
	bookmark := &models.Bookmark{UserID: userID, JobID: jobID}
	query := `INSERT INTO bookmarks (user_id, job_id) VALUES ($1, $2) RETURNING created_at`
	if err := r.db.QueryRowxContext(ctx, query, userID, jobID).Scan(&bookmark.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return nil, ErrBookmarkExists
			case "23503":
				return nil, ErrBookmarkJob
			}
		}
		return nil, fmt.Errorf("bookmark repository: add %w", err)
	}
	return bookmark, nil
}

func (r *BookmarkRepository) Remove(ctx context.Context, userID, jobID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = $1 AND job_id = $2`, userID, jobID)
	if err != nil {
		return fmt.Errorf("bookmark repository: remove %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bookmark repository: remove rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrBookmarkNotFound
	}
	return nil
}

func (r *BookmarkRepository) Exists(ctx context.Context, userID, jobID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bookmarks WHERE user_id = $1 AND job_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, userID, jobID); err != nil {
		return false, fmt.Errorf("bookmark repository: exists %w", err)
	}
	return exists, nil
}

// List возвращает закладки с данными вакансий, новые первыми.
func (r *BookmarkRepository) List(ctx context.Context, userID uuid.UUID) ([]models.BookmarkedJob, error) {
	query := `
		SELECT b.job_id, j.title, j.category, j.status,
			j.budget_min::text AS budget_min, j.budget_max::text AS budget_max, j.currency, b.created_at
		FROM bookmarks b
		JOIN jobs j ON j.id = b.job_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
	`
	items := []models.BookmarkedJob{}
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("bookmark repository: list %w", err)
	}
	return items, nil
}
