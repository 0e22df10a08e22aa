package entity

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
)

// NotificationEvent событие, которое порождает уведомление получателю.
type NotificationEvent struct {
	RecipientID uuid.UUID
	SenderID    uuid.UUID
	Type        valueobject.NotificationType
	JobID       *uuid.UUID
	ProposalID  *uuid.UUID
	ContractID  *uuid.UUID
	PostID      *uuid.UUID
	Message     string
}
