package job

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type CreateJobInput struct {
	ClientID uuid.UUID
	Role     valueobject.UserRole
	Fields   entity.JobFields
}

type CreateJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewCreateJobUseCase(jobRepo repository.JobRepository) *CreateJobUseCase {
	return &CreateJobUseCase{jobRepo: jobRepo}
}

func (uc *CreateJobUseCase) Execute(ctx context.Context, input CreateJobInput) (*entity.Job, error) {
	if input.Role != valueobject.RoleClient {
		return nil, apperror.New(apperror.ErrCodeForbidden, "размещать вакансии могут только клиенты")
	}

	job, err := entity.NewJob(input.ClientID, input.Fields)
	if err != nil {
		return nil, err
	}

	if err := uc.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}
