package contract

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

func loadAsClient(ctx context.Context, repo repository.ContractRepository, contractID, userID uuid.UUID) (*entity.Contract, error) {
	c, err := repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsClient(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "действие доступно только клиенту контракта")
	}
	return c, nil
}

func loadAsFreelancer(ctx context.Context, repo repository.ContractRepository, contractID, userID uuid.UUID) (*entity.Contract, error) {
	c, err := repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsFreelancer(userID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "действие доступно только исполнителю контракта")
	}
	return c, nil
}

func loadAsParty(ctx context.Context, repo repository.ContractRepository, contractID, userID uuid.UUID) (*entity.Contract, error) {
	c, err := repo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !c.IsParty(userID) {
		return nil, apperror.ErrForbidden
	}
	return c, nil
}
