package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Silence()
	os.Exit(m.Run())
}

// mockAuthRepository реализует AuthRepository для тестов.
type mockAuthRepository struct {
	usersByEmail map[string]*models.User
	usersByID    map[uuid.UUID]*models.User
	sessions     map[string]*models.Session
}

func newMockAuthRepository() *mockAuthRepository {
	return &mockAuthRepository{
		usersByEmail: make(map[string]*models.User),
		usersByID:    make(map[uuid.UUID]*models.User),
		sessions:     make(map[string]*models.Session),
	}
}

func (m *mockAuthRepository) Create(ctx context.Context, user *models.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrUserExists
	}
	user.ID = uuid.New()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true
	m.usersByEmail[user.Email] = user
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockAuthRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := m.usersByID[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockAuthRepository) CreateSession(ctx context.Context, session *models.Session) error {
	session.ID = uuid.New()
	session.CreatedAt = time.Now()
	m.sessions[session.RefreshToken] = session
	return nil
}

func (m *mockAuthRepository) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s, ok := m.sessions[refreshToken]; ok {
		return s, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockAuthRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	delete(m.sessions, refreshToken)
	return nil
}

func (m *mockAuthRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if user, ok := m.usersByID[userID]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access", "refresh", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)

	ctx := context.Background()
	res, err := service.Register(ctx, RegisterInput{
		Email:    "Test@Example.com",
		Password: "Password123",
	}, map[string]string{"ip": "127.0.0.1"})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.User.ID)
	assert.Equal(t, "test@example.com", res.User.Email)
	assert.Equal(t, "test", res.User.Username)
	assert.Equal(t, models.RoleFreelancer, res.User.Role)
	require.Len(t, repo.sessions, 1)
	for _, s := range repo.sessions {
		require.NotNil(t, s.IPAddress)
		assert.Equal(t, "127.0.0.1", *s.IPAddress)
		assert.Nil(t, s.UserAgent)
	}

	loginRes, err := service.Login(ctx, LoginInput{
		Email:    "test@example.com",
		Password: "Password123",
	}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, loginRes.TokenPair.AccessToken)
	assert.NotNil(t, repo.usersByID[res.User.ID].LastLoginAt)

	userID, role, err := tokenManager.ParseAccess(loginRes.TokenPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)
	assert.Equal(t, models.RoleFreelancer, role)
}

func TestAuthService_Register_Rejects(t *testing.T) {
	tests := map[string]struct {
		input RegisterInput
		field string
	}{
		"bad email":    {input: RegisterInput{Email: "nope", Password: "Password123"}, field: "email"},
		"weak pass":    {input: RegisterInput{Email: "a@example.com", Password: "short"}, field: "password"},
		"admin signup": {input: RegisterInput{Email: "a@example.com", Password: "Password123", Role: models.RoleAdmin}, field: "role"},
		"bad username": {input: RegisterInput{Email: "a@example.com", Password: "Password123", Username: "9lives"}, field: "username"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			service := NewAuthService(newMockAuthRepository(), NewTokenManager("a", "r", time.Minute, time.Hour))

			_, err := service.Register(context.Background(), tc.input, nil)
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.field, appErr.Fields[0].Field)
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	service := NewAuthService(newMockAuthRepository(), NewTokenManager("a", "r", time.Minute, time.Hour))
	in := RegisterInput{Email: "dup@example.com", Password: "Password123", Role: models.RoleClient}

	_, err := service.Register(context.Background(), in, nil)
	require.NoError(t, err)

	_, err = service.Register(context.Background(), in, nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := newMockAuthRepository()
	service := NewAuthService(repo, NewTokenManager("a", "r", time.Minute, time.Hour))
	_, err := service.Register(context.Background(), RegisterInput{Email: "u@example.com", Password: "Password123"}, nil)
	require.NoError(t, err)

	_, err = service.Login(context.Background(), LoginInput{Email: "u@example.com", Password: "Wrong12345"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)

	_, err = service.Login(context.Background(), LoginInput{Email: "missing@example.com", Password: "Password123"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_Blocked(t *testing.T) {
	repo := newMockAuthRepository()
	service := NewAuthService(repo, NewTokenManager("a", "r", time.Minute, time.Hour))
	res, err := service.Register(context.Background(), RegisterInput{Email: "b@example.com", Password: "Password123"}, nil)
	require.NoError(t, err)
	res.User.IsActive = false

	_, err = service.Login(context.Background(), LoginInput{Email: "b@example.com", Password: "Password123"}, nil)
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

func TestAuthService_Refresh(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)

	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleFreelancer,
		IsActive:     true,
	}
	repo.usersByEmail[user.Email] = user
	repo.usersByID[user.ID] = user

	tokenPair, accessExp, refreshExp, err := tokenManager.GeneratePair(user)
	require.NoError(t, err)
	assert.False(t, accessExp.After(refreshExp), "access должен истекать раньше refresh")

	repo.sessions[tokenPair.RefreshToken] = &models.Session{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}

	newPair, err := service.Refresh(ctx, tokenPair.RefreshToken, nil)
	require.NoError(t, err)
	assert.NotEqual(t, tokenPair.RefreshToken, newPair.RefreshToken)
	assert.NotContains(t, repo.sessions, tokenPair.RefreshToken)
	assert.Contains(t, repo.sessions, newPair.RefreshToken)

	// Повторное использование старого токена отклоняется
	_, err = service.Refresh(ctx, tokenPair.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestAuthService_Logout(t *testing.T) {
	repo := newMockAuthRepository()
	tokenManager := NewTokenManager("a", "r", time.Minute, time.Hour)
	service := NewAuthService(repo, tokenManager)
	res, err := service.Register(context.Background(), RegisterInput{Email: "l@example.com", Password: "Password123"}, nil)
	require.NoError(t, err)

	require.NoError(t, service.Logout(context.Background(), res.TokenPair.RefreshToken))
	assert.Empty(t, repo.sessions)

	_, err = service.Refresh(context.Background(), res.TokenPair.RefreshToken, nil)
	assert.ErrorIs(t, err, ErrInvalidRefresh)
}
