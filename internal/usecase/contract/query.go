package contract

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/storage"
)

type GetContractUseCase struct {
	contractRepo repository.ContractRepository
}

func NewGetContractUseCase(contractRepo repository.ContractRepository) *GetContractUseCase {
	return &GetContractUseCase{contractRepo: contractRepo}
}

func (uc *GetContractUseCase) Execute(ctx context.Context, contractID, userID uuid.UUID) (*entity.Contract, error) {
	return loadAsParty(ctx, uc.contractRepo, contractID, userID)
}

type MyContractsUseCase struct {
	contractRepo repository.ContractRepository
}

func NewMyContractsUseCase(contractRepo repository.ContractRepository) *MyContractsUseCase {
	return &MyContractsUseCase{contractRepo: contractRepo}
}

func (uc *MyContractsUseCase) Execute(ctx context.Context, filter repository.ContractFilter) ([]*entity.Contract, int, error) {
	switch filter.Role {
	case "", "client", "freelancer":
	default:
		return nil, 0, apperror.New(apperror.ErrCodeValidation, "role должен быть client или freelancer")
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.contractRepo.List(ctx, filter)
}

// DownloadedFile открытый файл сдачи вместе с метаданными для ответа.
type DownloadedFile struct {
	File   entity.SubmittedFile
	Body   io.ReadCloser
	Length int64
}

type DownloadFileUseCase struct {
	contractRepo repository.ContractRepository
	files        FileStorage
}

func NewDownloadFileUseCase(contractRepo repository.ContractRepository, files FileStorage) *DownloadFileUseCase {
	return &DownloadFileUseCase{contractRepo: contractRepo, files: files}
}

func (uc *DownloadFileUseCase) Execute(ctx context.Context, contractID, milestoneID, fileID, userID uuid.UUID) (*DownloadedFile, error) {
	c, err := loadAsParty(ctx, uc.contractRepo, contractID, userID)
	if err != nil {
		return nil, err
	}
	f, err := c.FindFile(milestoneID, fileID)
	if err != nil {
		return nil, err
	}
	body, length, err := uc.files.Open(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			// Ссылка в сдаче есть, а содержимого в хранилище нет.
			logger.Log.WithFields(logrus.Fields{
				"contract_id": contractID,
				"file_id":     fileID,
				"storage_key": f.StorageKey,
			}).Warn("файл сдачи отсутствует в хранилище")
			return nil, apperror.ErrFileNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeStorage, "не удалось открыть файл")
	}
	return &DownloadedFile{File: *f, Body: body, Length: length}, nil
}
