package contract

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type CreateContractInput struct {
	ProposalID uuid.UUID
	ClientID   uuid.UUID
	Terms      entity.ContractTerms
}

type CreateContractUseCase struct {
	contractRepo repository.ContractRepository
	proposalRepo repository.ProposalRepository
	jobRepo      repository.JobRepository
	notifier     repository.Notifier
}

func NewCreateContractUseCase(
	contractRepo repository.ContractRepository,
	proposalRepo repository.ProposalRepository,
	jobRepo repository.JobRepository,
	notifier repository.Notifier,
) *CreateContractUseCase {
	return &CreateContractUseCase{
		contractRepo: contractRepo,
		proposalRepo: proposalRepo,
		jobRepo:      jobRepo,
		notifier:     notifier,
	}
}

func (uc *CreateContractUseCase) Execute(ctx context.Context, input CreateContractInput) (*entity.Contract, error) {
	if err := entity.ValidateMilestones(input.Terms.Milestones); err != nil {
		return nil, err
	}

	proposal, err := uc.proposalRepo.FindByID(ctx, input.ProposalID)
	if err != nil {
		return nil, err
	}
	job, err := uc.jobRepo.FindByID(ctx, proposal.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(input.ClientID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создать контракт может только владелец вакансии")
	}

	exists, err := uc.contractRepo.ExistsForProposal(ctx, proposal.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrContractExists
	}

	if !proposal.IsAccepted() && !proposal.Status.CanTransitionTo(valueobject.ProposalStatusAccepted) {
		return nil, apperror.State("предложение в статусе " + string(proposal.Status) + " нельзя принять")
	}
	if job.Status != valueobject.JobStatusInProgress && !job.Status.CanTransitionTo(valueobject.JobStatusInProgress) {
		return nil, apperror.State("вакансия в статусе " + string(job.Status) + " не может перейти в работу")
	}

	contract, err := entity.NewContract(job, proposal, input.Terms)
	if err != nil {
		return nil, err
	}

	if sum := contract.MilestoneSum(); len(contract.Milestones) > 0 && !sum.Equal(contract.TotalAmount) {
		logger.Log.WithFields(logrus.Fields{
			"contract_id":   contract.ID,
			"total_amount":  contract.TotalAmount.String(),
			"milestone_sum": sum.String(),
		}).Warn("сумма этапов не совпадает с суммой контракта")
	}

	if err := uc.contractRepo.CreateFromProposal(ctx, contract, proposal.Status, job.Status); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("create").Inc()

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: contract.FreelancerID,
		SenderID:    contract.ClientID,
		Type:        valueobject.NotificationContractCreated,
		JobID:       &job.ID,
		ProposalID:  &proposal.ID,
		ContractID:  &contract.ID,
		Message:     "Создан контракт «" + contract.Title + "»",
	})

	return contract, nil
}
