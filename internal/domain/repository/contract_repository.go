package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
)

// ContractRepository все изменения статусов выполняет условным UPDATE по ожидаемому статусу.
// Если строка уже в другом статусе, возвращается apperror.ErrConcurrentUpdate.
type ContractRepository interface {
	// CreateFromProposal в одной транзакции создаёт контракт, принимает предложение и переводит вакансию.
	CreateFromProposal(ctx context.Context, contract *entity.Contract, proposalFrom valueobject.ProposalStatus, jobFrom valueobject.JobStatus) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	ExistsForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error)
	ExistsForJob(ctx context.Context, jobID uuid.UUID) (bool, error)
	List(ctx context.Context, filter ContractFilter) ([]*entity.Contract, int, error)

	Fund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, from, to valueobject.ContractStatus) error
	Activate(ctx context.Context, id uuid.UUID, startDate time.Time) error
	AddMilestone(ctx context.Context, m *entity.Milestone, contractStatus valueobject.ContractStatus) error
	// SaveMilestoneSubmission сохраняет этап, если в базе тот же статус и та же текущая сдача (fromSubmission, nil если её не было).
	SaveMilestoneSubmission(ctx context.Context, m *entity.Milestone, from valueobject.MilestoneStatus, fromSubmission *uuid.UUID) error
	// ReleasePayment атомарно переводит этап в paid и списывает сумму, не допуская отрицательного баланса.
	ReleasePayment(ctx context.Context, contractID, milestoneID uuid.UUID, amount decimal.Decimal) error
	// Complete закрывает контракт, только если в базе не осталось неоплаченных этапов.
	Complete(ctx context.Context, contract *entity.Contract, from valueobject.ContractStatus) error
}

type ContractFilter struct {
	UserID uuid.UUID

	// Role ограничивает выборку стороной контракта: client, freelancer или пусто для обеих.
	Role   string
	Status string
	Limit  int
	Offset int
}
