package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Update(ctx context.Context, job *entity.Job) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Job, error)
	List(ctx context.Context, filter JobFilter) ([]*entity.Job, int, error)
	ListHot(ctx context.Context, since time.Time, limit int) ([]*entity.Job, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	// UpdateStatus меняет статус только если текущий равен from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error
}

// JobFilter фильтр ленты вакансий. Пустое значение или "all" в полях-перечислениях фильтр не задаёт.
type JobFilter struct {
	Search          string
	Category        string
	BudgetType      string
	ExperienceLevel string
	Location        string
	Timeline        string
	BudgetMin       *decimal.Decimal
	BudgetMax       *decimal.Decimal
	SortBy          string

	// ExcludeAcceptedFor скрывает вакансии, где у пользователя уже принят отклик.
	ExcludeAcceptedFor *uuid.UUID
	Limit              int
	Offset             int
}
