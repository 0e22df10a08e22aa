package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type UpdateJobInput struct {
	JobID    uuid.UUID
	ClientID uuid.UUID
	Fields   *entity.JobFields
	Status   *string
}

type UpdateJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewUpdateJobUseCase(jobRepo repository.JobRepository) *UpdateJobUseCase {
	return &UpdateJobUseCase{jobRepo: jobRepo}
}

func (uc *UpdateJobUseCase) Execute(ctx context.Context, input UpdateJobInput) (*entity.Job, error) {
	job, err := uc.jobRepo.FindByID(ctx, input.JobID)
	if err != nil {
		return nil, err
	}
	if !job.IsOwnedBy(input.ClientID) {
		return nil, apperror.ErrForbidden
	}

	if input.Fields != nil {
		if !job.IsOpen() {
			return nil, apperror.State("редактировать можно только открытую вакансию")
		}
		updated, err := entity.NewJob(job.ClientID, *input.Fields)
		if err != nil {
			return nil, err
		}
		updated.ID = job.ID
		updated.Status = job.Status
		updated.Views = job.Views
		updated.ProposalCount = job.ProposalCount
		updated.CreatedAt = job.CreatedAt
		if err := uc.jobRepo.Update(ctx, updated); err != nil {
			return nil, err
		}
		job = updated
	}

	if input.Status != nil {
		newStatus, err := valueobject.NewJobStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		from := job.Status
		if err := job.ChangeStatus(newStatus); err != nil {
			return nil, err
		}
		if err := uc.jobRepo.UpdateStatus(ctx, job.ID, from, newStatus); err != nil {
			return nil, err
		}
	}
	return job, nil
}

type DeleteJobUseCase struct {
	jobRepo      repository.JobRepository
	contractRepo repository.ContractRepository
}

func NewDeleteJobUseCase(jobRepo repository.JobRepository, contractRepo repository.ContractRepository) *DeleteJobUseCase {
	return &DeleteJobUseCase{jobRepo: jobRepo, contractRepo: contractRepo}
}

// Execute удаляет вакансию вместе с откликами (каскадом в БД).
func (uc *DeleteJobUseCase) Execute(ctx context.Context, jobID, clientID uuid.UUID) error {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.IsOwnedBy(clientID) {
		return apperror.ErrForbidden
	}
	hasContract, err := uc.contractRepo.ExistsForJob(ctx, jobID)
	if err != nil {
		return err
	}
	if hasContract {
		return apperror.State("нельзя удалить вакансию, по которой заключён контракт")
	}
	return uc.jobRepo.Delete(ctx, jobID)
}
