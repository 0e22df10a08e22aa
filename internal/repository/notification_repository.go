package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/repository/common"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationRepository отвечает за работу с уведомлениями.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository создаёт экземпляр репозитория.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create создаёт новое уведомление.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, sender_id, type, job_id, proposal_id, contract_id, post_id, message, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		n.UserID, n.SenderID, n.Type, n.JobID, n.ProposalID, n.ContractID, n.PostID, n.Message, n.IsRead,
	).Scan(&n.ID, &n.CreatedAt); err != nil {
		return fmt.Errorf("notification repository: create %w", err)
	}

	return nil
}

// GetByID возвращает уведомление по идентификатору.
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	return common.GetByID[models.Notification](ctx, r.db, "notifications", id, ErrNotificationNotFound)
}

// List возвращает список уведомлений пользователя с пагинацией.
func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	where := ` WHERE user_id = $1`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notifications`+where, userID); err != nil {
		return nil, 0, fmt.Errorf("notification repository: count %w", err)
	}

	query := `SELECT * FROM notifications` + where + ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("notification repository: list %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead отмечает уведомление как прочитанное.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notification repository: mark as read %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification repository: mark as read rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные и возвращает их число.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("notification repository: mark all as read %w", err)
	}

	return result.RowsAffected()
}

// Delete удаляет уведомление.
func (r *NotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notification repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("notification repository: delete rows affected %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений пользователя.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("notification repository: count unread %w", err)
	}

	return count, nil
}

// DeleteReadOlderThan удаляет прочитанные уведомления старше before.
func (r *NotificationRepository) DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("notification repository: cleanup %w", err)
	}

	return result.RowsAffected()
}
