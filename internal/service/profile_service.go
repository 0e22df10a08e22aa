package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/validation"
)

const (
	profileCacheTTL       = 30 * time.Second
	topFreelancersTTL     = 5 * time.Minute
	defaultTopFreelancers = 10
	maxTopFreelancers     = 50
)

// ProfileRepository операции над профилем пользователя.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
	TopFreelancers(ctx context.Context, limit int) ([]models.User, error)
}

// UpdateProfileInput частичное обновление: nil поля не меняются.
type UpdateProfileInput struct {
	Bio    *string
	Skills []string
	Role   *string
}

// ProfileService работа с профилями и рейтингом исполнителей.
type ProfileService struct {
	repo  ProfileRepository
	cache *CacheService
}

// NewProfileService создаёт сервис. cache может быть nil.
func NewProfileService(repo ProfileRepository, cache *CacheService) *ProfileService {
	return &ProfileService{repo: repo, cache: cache}
}

// Get возвращает пользователя по идентификатору.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить профиль")
	}
	return user, nil
}

// Public возвращает публичный профиль, кэшируя его на короткое время.
func (s *ProfileService) Public(ctx context.Context, userID uuid.UUID) (models.PublicProfile, error) {
	load := func() (interface{}, error) {
		user, err := s.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		return user.Public(), nil
	}

	if s.cache == nil {
		v, err := load()
		if err != nil {
			return models.PublicProfile{}, err
		}
		return v.(models.PublicProfile), nil
	}

	v, err := s.cache.GetOrSet(ctx, ProfileCacheKey(userID), profileCacheTTL, load)
	if err != nil {
		return models.PublicProfile{}, err
	}
	return v.(models.PublicProfile), nil
}

// Update меняет bio, навыки и роль. Переключение доступно только между client и freelancer.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	var violations []apperror.FieldError
	if err := validation.ValidateBio(in.Bio); err != nil {
		violations = append(violations, apperror.FieldError{Field: "bio", Message: err.Error()})
	}
	if in.Skills != nil {
		if err := validation.ValidateSkills(in.Skills); err != nil {
			violations = append(violations, apperror.FieldError{Field: "skills", Message: err.Error()})
		}
	}
	if in.Role != nil && *in.Role != models.RoleClient && *in.Role != models.RoleFreelancer {
		violations = append(violations, apperror.FieldError{Field: "role", Message: "роль должна быть client или freelancer"})
	}
	if len(violations) > 0 {
		return nil, apperror.Validation(violations)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin && in.Role != nil {
		return nil, apperror.New(apperror.ErrCodeForbidden, "роль администратора нельзя сменить")
	}

	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		user.Bio = &bio
	}
	if in.Skills != nil {
		user.Skills = normalizeSkills(in.Skills)
	}
	if in.Role != nil {
		user.Role = *in.Role
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить профиль")
	}
	if s.cache != nil {
		s.cache.InvalidateUserCache(userID)
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": userID,
		"role":    user.Role,
	}).Info("profile service: профиль обновлён")

	return user, nil
}

// TopFreelancers возвращает рейтинг исполнителей по числу завершённых заказов.
func (s *ProfileService) TopFreelancers(ctx context.Context, limit int) ([]models.PublicProfile, error) {
	if limit <= 0 {
		limit = defaultTopFreelancers
	}
	if limit > maxTopFreelancers {
		limit = maxTopFreelancers
	}

	load := func() (interface{}, error) {
		users, err := s.repo.TopFreelancers(ctx, limit)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить рейтинг исполнителей")
		}
		profiles := make([]models.PublicProfile, 0, len(users))
		for i := range users {
			profiles = append(profiles, users[i].Public())
		}
		return profiles, nil
	}

	if s.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.([]models.PublicProfile), nil
	}

	v, err := s.cache.GetOrSet(ctx, TopFreelancersCacheKey(limit), topFreelancersTTL, load)
	if err != nil {
		return nil, err
	}
	return v.([]models.PublicProfile), nil
}

// normalizeSkills убирает пустые значения и дубликаты без учёта регистра.
func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		key := strings.ToLower(skill)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, skill)
	}
	return out
}
