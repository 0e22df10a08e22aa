package proposal

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type GetProposalUseCase struct {
	proposalRepo repository.ProposalRepository
	jobRepo      repository.JobRepository
}

func NewGetProposalUseCase(proposalRepo repository.ProposalRepository, jobRepo repository.JobRepository) *GetProposalUseCase {
	return &GetProposalUseCase{proposalRepo: proposalRepo, jobRepo: jobRepo}
}

// Execute доступен автору отклика и владельцу вакансии.
func (uc *GetProposalUseCase) Execute(ctx context.Context, proposalID, userID uuid.UUID) (*entity.Proposal, error) {
	proposal, err := uc.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.IsOwnedBy(userID) {
		return proposal, nil
	}

	job, err := uc.jobRepo.FindByID(ctx, proposal.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(userID) {
		return nil, apperror.ErrForbidden
	}
	return proposal, nil
}

type ListJobProposalsUseCase struct {
	proposalRepo repository.ProposalRepository
	jobRepo      repository.JobRepository
}

func NewListJobProposalsUseCase(proposalRepo repository.ProposalRepository, jobRepo repository.JobRepository) *ListJobProposalsUseCase {
	return &ListJobProposalsUseCase{proposalRepo: proposalRepo, jobRepo: jobRepo}
}

func (uc *ListJobProposalsUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) ([]*entity.Proposal, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(clientID) {
		return nil, apperror.ErrForbidden
	}
	return uc.proposalRepo.FindByJobID(ctx, jobID)
}

type MyProposalsUseCase struct {
	proposalRepo repository.ProposalRepository
}

func NewMyProposalsUseCase(proposalRepo repository.ProposalRepository) *MyProposalsUseCase {
	return &MyProposalsUseCase{proposalRepo: proposalRepo}
}

func (uc *MyProposalsUseCase) Execute(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Proposal, error) {
	return uc.proposalRepo.FindByFreelancerID(ctx, freelancerID)
}

type WithdrawProposalUseCase struct {
	proposalRepo repository.ProposalRepository
}

func NewWithdrawProposalUseCase(proposalRepo repository.ProposalRepository) *WithdrawProposalUseCase {
	return &WithdrawProposalUseCase{proposalRepo: proposalRepo}
}

func (uc *WithdrawProposalUseCase) Execute(ctx context.Context, proposalID, freelancerID uuid.UUID) error {
	proposal, err := uc.proposalRepo.FindByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if !proposal.IsOwnedBy(freelancerID) {
		return apperror.ErrForbidden
	}
	if !proposal.IsPending() {
		return apperror.State("отозвать можно только ожидающий отклик")
	}
	return uc.proposalRepo.Delete(ctx, proposalID)
}
