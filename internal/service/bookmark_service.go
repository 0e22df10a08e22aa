package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
)

// BookmarkRepository хранилище закладок на вакансии.
type BookmarkRepository interface {
	Add(ctx context.Context, userID, jobID uuid.UUID) (*models.Bookmark, error)
	Remove(ctx context.Context, userID, jobID uuid.UUID) error
	Exists(ctx context.Context, userID, jobID uuid.UUID) (bool, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.BookmarkedJob, error)
}

// BookmarkService управляет закладками пользователя.
type BookmarkService struct {
	repo BookmarkRepository
}

func NewBookmarkService(repo BookmarkRepository) *BookmarkService {
	return &BookmarkService{repo: repo}
}

// Add добавляет вакансию в закладки.
func (s *BookmarkService) Add(ctx context.Context, userID, jobID uuid.UUID) (*models.Bookmark, error) {
	bookmark, err := s.repo.Add(ctx, userID, jobID)
	switch {
	case err == nil:
		return bookmark, nil
	case errors.Is(err, repository.ErrBookmarkExists):
		return nil, apperror.New(apperror.ErrCodeConflict, "вакансия уже в закладках")
	case errors.Is(err, repository.ErrBookmarkJob):
		return nil, apperror.ErrJobNotFound
	default:
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось добавить закладку")
	}
}

func (s *BookmarkService) Remove(ctx context.Context, userID, jobID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, jobID); err != nil {
		if errors.Is(err, repository.ErrBookmarkNotFound) {
			return apperror.New(apperror.ErrCodeNotFound, "закладка не найдена")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить закладку")
	}
	return nil
}

func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, jobID uuid.UUID) (bool, error) {
	ok, err := s.repo.Exists(ctx, userID, jobID)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить закладку")
	}
	return ok, nil
}

// List возвращает закладки, новые первыми.
func (s *BookmarkService) List(ctx context.Context, userID uuid.UUID) ([]models.BookmarkedJob, error) {
	items, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить закладки")
	}
	if items == nil {
		items = []models.BookmarkedJob{}
	}
	return items, nil
}
