package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification уведомление пользователя со ссылками на связанные сущности.
type Notification struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	SenderID   *uuid.UUID `db:"sender_id" json:"sender_id,omitempty"`
	Type       string     `db:"type" json:"type"`
	JobID      *uuid.UUID `db:"job_id" json:"job_id,omitempty"`
	ProposalID *uuid.UUID `db:"proposal_id" json:"proposal_id,omitempty"`
	ContractID *uuid.UUID `db:"contract_id" json:"contract_id,omitempty"`
	PostID     *uuid.UUID `db:"post_id" json:"post_id,omitempty"`
	Message    string     `db:"message" json:"message"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
