package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type UpdateStatusInput struct {
	ProposalID uuid.UUID
	ClientID   uuid.UUID
	Status     string
	Notes      *string
}

type UpdateProposalStatusUseCase struct {
	proposalRepo repository.ProposalRepository
	jobRepo      repository.JobRepository
	notifier     repository.Notifier
}

func NewUpdateProposalStatusUseCase(proposalRepo repository.ProposalRepository, jobRepo repository.JobRepository, notifier repository.Notifier) *UpdateProposalStatusUseCase {
	return &UpdateProposalStatusUseCase{
		proposalRepo: proposalRepo,
		jobRepo:      jobRepo,
		notifier:     notifier,
	}
}

func (uc *UpdateProposalStatusUseCase) Execute(ctx context.Context, input UpdateStatusInput) (*entity.Proposal, error) {
	proposal, err := uc.proposalRepo.FindByID(ctx, input.ProposalID)
	if err != nil {
		return nil, err
	}

	job, err := uc.jobRepo.FindByID(ctx, proposal.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(input.ClientID) {
		return nil, apperror.ErrForbidden
	}

	newStatus, err := valueobject.NewProposalStatus(input.Status)
	if err != nil {
		return nil, err
	}

	from := proposal.Status
	if err := proposal.ChangeStatus(newStatus, input.Notes); err != nil {
		return nil, err
	}
	if err := uc.proposalRepo.UpdateStatus(ctx, proposal.ID, from, newStatus, input.Notes); err != nil {
		return nil, err
	}

	notificationType := valueobject.NotificationProposalUpdated
	message := "Статус вашего отклика на «" + job.Title + "» изменён: " + string(newStatus)
	switch newStatus {
	case valueobject.ProposalStatusAccepted:
		notificationType = valueobject.NotificationProposalAccepted
		message = "Ваш отклик на «" + job.Title + "» принят"
	case valueobject.ProposalStatusDeclined:
		notificationType = valueobject.NotificationProposalRejected
		message = "Ваш отклик на «" + job.Title + "» отклонён"
	}

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: proposal.FreelancerID,
		SenderID:    input.ClientID,
		Type:        notificationType,
		JobID:       &job.ID,
		ProposalID:  &proposal.ID,
		Message:     message,
	})

	return proposal, nil
}
