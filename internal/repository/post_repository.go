package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/repository/common"
)

// ErrPostNotFound возвращается, когда публикация не найдена.
var ErrPostNotFound = errors.New("post not found")

const postSelect = `
	SELECT p.id, p.author_id, p.content, p.post_type, p.tags, p.views, p.created_at, p.updated_at,
		(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
		(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p`

type PostRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (author_id, content, post_type, tags)
		VALUES ($1, $2, $3, $4)
		RETURNING id, views, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, post.AuthorID, post.Content, post.PostType, pq.Array([]string(post.Tags))).
		Scan(&post.ID, &post.Views, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return fmt.Errorf("post repository: create %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.GetContext(ctx, &post, postSelect+` WHERE p.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("post repository: get by id %w", err)
	}
	return &post, nil
}

// List возвращает ленту публикаций, при непустом postType только этого типа.
func (r *PostRepository) List(ctx context.Context, postType string, limit, offset int) ([]models.Post, int, error) {
	where := ""
	args := []interface{}{}
	argIndex := 1
	if postType != "" {
		where = fmt.Sprintf(" WHERE p.post_type = $%d", argIndex)
		args = append(args, postType)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts p`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("post repository: count %w", err)
	}

	query := postSelect + where + fmt.Sprintf(" ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	posts := []models.Post{}
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("post repository: list %w", err)
	}
	return posts, total, nil
}

func (r *PostRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("post repository: increment views %w", err)
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("post repository: delete %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("post repository: delete rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// ToggleLike снимает лайк, если он был, иначе ставит. Возвращает новое состояние и число лайков.
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (bool, int, error) {
	var liked bool
	var count int
	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return fmt.Errorf("post repository: unlike %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("post repository: unlike rows affected %w", err)
		}
		if removed == 0 {
			if _, err := tx.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID); err != nil {
				return fmt.Errorf("post repository: like %w", err)
			}
			liked = true
		}
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("post repository: count likes %w", err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

func (r *PostRepository) AddComment(ctx context.Context, comment *models.PostComment) error {
	query := `
		INSERT INTO post_comments (post_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, comment.PostID, comment.AuthorID, comment.Content).
		Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return fmt.Errorf("post repository: add comment %w", err)
	}
	return nil
}

func (r *PostRepository) ListComments(ctx context.Context, postID uuid.UUID) ([]models.PostComment, error) {
	comments := []models.PostComment{}
	query := `SELECT id, post_id, author_id, content, created_at FROM post_comments WHERE post_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &comments, query, postID); err != nil {
		return nil, fmt.Errorf("post repository: list comments %w", err)
	}
	return comments, nil
}

// UpsertReaction заменяет прежнюю реакцию пользователя на публикацию.
func (r *PostRepository) UpsertReaction(ctx context.Context, reaction *models.PostReaction) error {
	query := `
		INSERT INTO post_reactions (post_id, user_id, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO UPDATE SET kind = EXCLUDED.kind, created_at = NOW()
		RETURNING created_at
	`
	if err := r.db.QueryRowxContext(ctx, query, reaction.PostID, reaction.UserID, reaction.Kind).
		Scan(&reaction.CreatedAt); err != nil {
		return fmt.Errorf("post repository: upsert reaction %w", err)
	}
	return nil
}

func (r *PostRepository) ListReactions(ctx context.Context, postID uuid.UUID) ([]models.PostReaction, error) {
	reactions := []models.PostReaction{}
	query := `SELECT post_id, user_id, kind, created_at FROM post_reactions WHERE post_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &reactions, query, postID); err != nil {
		return nil, fmt.Errorf("post repository: list reactions %w", err)
	}
	return reactions, nil
}
