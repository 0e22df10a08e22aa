package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
)

type ProposalRepository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error)
	FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Proposal, error)
	FindByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Proposal, error)
	FindByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Proposal, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProposalStatus, notes *string) error
}
