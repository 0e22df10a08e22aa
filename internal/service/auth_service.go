package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
}

var (
	ErrEmailTaken     = apperror.New(apperror.ErrCodeConflict, "email или имя пользователя уже заняты")
	ErrAccountBlocked = apperror.New(apperror.ErrCodeForbidden, "аккаунт заблокирован")
	ErrInvalidRefresh = apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
)

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Username string
	Role     string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
	}
}

// Register создаёт нового пользователя и открывает ему сессию.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "email", Message: err.Error()}})
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "password", Message: err.Error()}})
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		username = deriveUsername(in.Email)
	} else if err := validation.ValidateUsername(username); err != nil {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "username", Message: err.Error()}})
	}

	role := in.Role
	if role == "" {
		role = models.RoleFreelancer
	}
	if role != models.RoleClient && role != models.RoleFreelancer {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "role", Message: "роль должна быть client или freelancer"}})
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось захешировать пароль")
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     username,
		PasswordHash: string(passHash),
		Role:         role,
		Skills:       []string{},
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать пользователя")
	}

	tokenPair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("auth service: пользователь зарегистрирован")

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пользователя")
	}

	if !user.IsActive {
		return nil, ErrAccountBlocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	// Сбой обновления last_login_at не прерывает вход
	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("auth service: не удалось обновить last_login_at")
	}

	tokenPair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Refresh проверяет сохранённую сессию и выпускает новую пару токенов.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	session, err := s.repo.GetSession(ctx, oldToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить сессию")
	}
	if session.UserID != userID {
		return nil, ErrInvalidRefresh
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пользователя")
	}
	if !user.IsActive {
		return nil, ErrAccountBlocked
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть сессию")
	}

	return s.openSession(ctx, user, meta)
}

// Logout удаляет сессию refresh токена. Неизвестный токен не считается ошибкой.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.DeleteSession(ctx, refreshToken); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось закрыть сессию")
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить пользователя")
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, meta map[string]string) (*TokenPair, error) {
	tokenPair, _, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось выпустить токены")
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	if meta != nil {
		if ua, ok := meta["user_agent"]; ok && ua != "" {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok && ip != "" {
			session.IPAddress = &ip
		}
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сессию")
	}
	return tokenPair, nil
}

// deriveUsername формирует username из email.
func deriveUsername(email string) string {
	name := strings.Split(email, "@")[0]
	name = strings.NewReplacer(".", "_", "+", "_").Replace(name)
	name = strings.ToLower(name)
	if len(name) < 3 {
		name = "user_" + uuid.NewString()[:6]
	}
	return name
}
