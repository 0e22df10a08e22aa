package proposal

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type ApplyInput struct {
	JobID             uuid.UUID
	FreelancerID      uuid.UUID
	Role              valueobject.UserRole
	CoverLetter       string
	BidAmount         decimal.Decimal
	BidCurrency       string
	EstimatedDuration string
}

type ApplyToJobUseCase struct {
	proposalRepo repository.ProposalRepository
	jobRepo      repository.JobRepository
	notifier     repository.Notifier
}

func NewApplyToJobUseCase(proposalRepo repository.ProposalRepository, jobRepo repository.JobRepository, notifier repository.Notifier) *ApplyToJobUseCase {
	return &ApplyToJobUseCase{
		proposalRepo: proposalRepo,
		jobRepo:      jobRepo,
		notifier:     notifier,
	}
}

func (uc *ApplyToJobUseCase) Execute(ctx context.Context, input ApplyInput) (*entity.Proposal, error) {
	if input.Role != valueobject.RoleFreelancer {
		return nil, apperror.New(apperror.ErrCodeForbidden, "откликаться на вакансии могут только фрилансеры")
	}

	job, err := uc.jobRepo.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if job.ClientID == input.FreelancerID {
		return nil, apperror.New(apperror.ErrCodeBadRequest, "нельзя откликнуться на собственную вакансию")
	}
	if !job.IsOpen() {
		return nil, apperror.New(apperror.ErrCodeConflict, "вакансия больше не принимает отклики")
	}

	existing, err := uc.proposalRepo.FindByJobAndFreelancer(ctx, input.JobID, input.FreelancerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.ErrAlreadyApplied
	}

	proposal, err := entity.NewProposal(
		input.JobID,
		input.FreelancerID,
		input.CoverLetter,
		input.BidAmount,
		input.BidCurrency,
		input.EstimatedDuration,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.proposalRepo.Create(ctx, proposal); err != nil {
		return nil, err
	}

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: job.ClientID,
		SenderID:    input.FreelancerID,
		Type:        valueobject.NotificationNewProposal,
		JobID:       &job.ID,
		ProposalID:  &proposal.ID,
		Message:     "Новый отклик на вакансию «" + job.Title + "»",
	})

	return proposal, nil
}
