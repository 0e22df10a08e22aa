package job

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
)

type GetJobUseCase struct {
	jobRepo repository.JobRepository
}

func NewGetJobUseCase(jobRepo repository.JobRepository) *GetJobUseCase {
	return &GetJobUseCase{jobRepo: jobRepo}
}

func (uc *GetJobUseCase) Execute(ctx context.Context, jobID uuid.UUID) (*entity.Job, error) {
	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := uc.jobRepo.IncrementViews(ctx, jobID); err != nil {
		logger.Log.WithFields(logrus.Fields{"job_id": jobID, "error": err}).Warn("не удалось увеличить счётчик просмотров")
	} else {
		job.Views++
	}
	return job, nil
}

// MyJob вакансия клиента вместе с откликами.
type MyJob struct {
	Job       *entity.Job
	Proposals []*entity.Proposal
}

type MyJobsUseCase struct {
	jobRepo      repository.JobRepository
	proposalRepo repository.ProposalRepository
}

func NewMyJobsUseCase(jobRepo repository.JobRepository, proposalRepo repository.ProposalRepository) *MyJobsUseCase {
	return &MyJobsUseCase{jobRepo: jobRepo, proposalRepo: proposalRepo}
}

func (uc *MyJobsUseCase) Execute(ctx context.Context, clientID uuid.UUID) ([]MyJob, error) {
	jobs, err := uc.jobRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]MyJob, 0, len(jobs))
	for _, j := range jobs {
		proposals, err := uc.proposalRepo.FindByJobID(ctx, j.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, MyJob{Job: j, Proposals: proposals})
	}
	return out, nil
}
