package persistence

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const messageColumns = `id, sender_id, receiver_id, content, is_read, read_at, created_at`

const pairCondition = `((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))`

type MessageRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMessageRepositoryAdapter(db *sqlx.DB) *MessageRepositoryAdapter {
	return &MessageRepositoryAdapter{db: db}
}

func (r *MessageRepositoryAdapter) Create(ctx context.Context, msg *entity.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, content, is_read, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query, msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.IsRead, msg.ReadAt, msg.CreatedAt)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сообщение")
	}
	return nil
}

func (r *MessageRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	var row messageRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrMessageNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщение")
	}
	return row.toEntity(), nil
}

// FindConversation возвращает страницу переписки, новые сообщения первыми.
func (r *MessageRepositoryAdapter) FindConversation(ctx context.Context, userID, partnerID uuid.UUID, limit, offset int) ([]*entity.Message, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages WHERE `+pairCondition, userID, partnerID); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать сообщения")
	}

	var rows []messageRow
	query := `SELECT ` + messageColumns + ` FROM messages WHERE ` + pairCondition + `
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &rows, query, userID, partnerID, limit, offset); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сообщения")
	}
	messages := make([]*entity.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toEntity())
	}
	return messages, total, nil
}

func (r *MessageRepositoryAdapter) ExistsBetween(ctx context.Context, userID, partnerID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM messages WHERE `+pairCondition+`)`, userID, partnerID); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить переписку")
	}
	return exists, nil
}

// ListConversations берёт последнее сообщение с каждым собеседником и число непрочитанных от него.
func (r *MessageRepositoryAdapter) ListConversations(ctx context.Context, userID uuid.UUID) ([]*entity.ConversationSummary, error) {
	query := `
		SELECT DISTINCT ON (partner_id)
			partner_id, m.id, m.sender_id, m.receiver_id, m.content, m.is_read, m.read_at, m.created_at,
			(SELECT COUNT(*) FROM messages u
			 WHERE u.sender_id = partner_id AND u.receiver_id = $1 AND NOT u.is_read) AS unread_count
		FROM (
			SELECT *, CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS partner_id
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
		) m
		ORDER BY partner_id, m.created_at DESC
	`
	var rows []conversationSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить список переписок")
	}

	summaries := make([]*entity.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &entity.ConversationSummary{
			PartnerID:   row.PartnerID,
			LastMessage: *row.messageRow.toEntity(),
			UnreadCount: row.UnreadCount,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}

func (r *MessageRepositoryAdapter) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`, userID); err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать непрочитанные")
	}
	return count, nil
}

func (r *MessageRepositoryAdapter) MarkConversationRead(ctx context.Context, readerID, partnerID uuid.UUID) (int64, error) {
	query := `
		UPDATE messages SET is_read = TRUE, read_at = $3
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read
	`
	result, err := r.db.ExecContext(ctx, query, readerID, partnerID, time.Now())
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить переписку прочитанной")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат запроса")
	}
	return n, nil
}

func (r *MessageRepositoryAdapter) MarkRead(ctx context.Context, id, readerID uuid.UUID) error {
	query := `UPDATE messages SET is_read = TRUE, read_at = $3 WHERE id = $1 AND receiver_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, readerID, time.Now())
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить сообщение прочитанным")
	}
	return expectOneRow(result, apperror.ErrMessageNotFound)
}

type messageRow struct {
	ID         uuid.UUID  `db:"id"`
	SenderID   uuid.UUID  `db:"sender_id"`
	ReceiverID uuid.UUID  `db:"receiver_id"`
	Content    string     `db:"content"`
	IsRead     bool       `db:"is_read"`
	ReadAt     *time.Time `db:"read_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

func (r messageRow) toEntity() *entity.Message {
	return &entity.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		IsRead:     r.IsRead,
		ReadAt:     r.ReadAt,
		CreatedAt:  r.CreatedAt,
	}
}

type conversationSummaryRow struct {
	PartnerID uuid.UUID `db:"partner_id"`
	messageRow
	UnreadCount int `db:"unread_count"`
}
