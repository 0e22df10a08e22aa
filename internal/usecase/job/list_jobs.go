package job

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	hotJobsWindow    = 7 * 24 * time.Hour
	hotJobsLimit     = 6
)

type ListJobsUseCase struct {
	jobRepo repository.JobRepository
}

func NewListJobsUseCase(jobRepo repository.JobRepository) *ListJobsUseCase {
	return &ListJobsUseCase{jobRepo: jobRepo}
}

// Execute отдаёт открытые вакансии; callerID может быть uuid.Nil для гостя.
func (uc *ListJobsUseCase) Execute(ctx context.Context, filter repository.JobFilter, callerID uuid.UUID) ([]*entity.Job, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if callerID != uuid.Nil {
		filter.ExcludeAcceptedFor = &callerID
	}
	return uc.jobRepo.List(ctx, filter)
}

type HotJobsUseCase struct {
	jobRepo repository.JobRepository
	now     func() time.Time
}

func NewHotJobsUseCase(jobRepo repository.JobRepository) *HotJobsUseCase {
	return &HotJobsUseCase{jobRepo: jobRepo, now: time.Now}
}

// Execute возвращает свежие вакансии за неделю, добирая более старыми открытыми.
func (uc *HotJobsUseCase) Execute(ctx context.Context) ([]*entity.Job, error) {
	return uc.jobRepo.ListHot(ctx, uc.now().Add(-hotJobsWindow), hotJobsLimit)
}
