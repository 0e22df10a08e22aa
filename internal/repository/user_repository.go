package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/repository/common"
)

var (
	// ErrUserNotFound возвращается, когда запись пользователя не найдена.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists возвращается при повторной регистрации email или username.
	ErrUserExists = errors.New("user already exists")
	// ErrSessionNotFound возвращается, когда refresh токен не сохранён или истёк.
	ErrSessionNotFound = errors.New("session not found")
)

const userColumns = `id, email, username, password_hash, role, bio, skills, completed_contracts, is_active, last_login_at, created_at, updated_at`

// UserRepository отвечает за работу с таблицами users и user_sessions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create создаёт нового пользователя.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, is_active, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role,
	).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUserExists
		}
		return fmt.Errorf("user repository: create %w", err)
	}

	return nil
}

// GetByEmail возвращает пользователя по email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return common.GetByField[models.User](ctx, r.db, "users", "email", email, ErrUserNotFound)
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return common.GetByID[models.User](ctx, r.db, "users", id, ErrUserNotFound)
}

// Exists проверяет, что активный пользователь существует.
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND is_active)`, id); err != nil {
		return false, fmt.Errorf("user repository: exists %w", err)
	}
	return exists, nil
}

// UpdateProfile сохраняет bio, навыки и роль.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET bio = $2, skills = $3, role = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query, user.ID, user.Bio, pq.Array([]string(user.Skills)), user.Role).
		Scan(&user.UpdatedAt); err != nil {
		return fmt.Errorf("user repository: update profile %w", err)
	}
	return nil
}

// TopFreelancers возвращает исполнителей с наибольшим числом завершённых заказов.
func (r *UserRepository) TopFreelancers(ctx context.Context, limit int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE role = 'freelancer' AND is_active
		ORDER BY completed_contracts DESC, created_at ASC
		LIMIT $1`

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, limit); err != nil {
		return nil, fmt.Errorf("user repository: top freelancers %w", err)
	}
	return users, nil
}

// CreateSession сохраняет новую сессию пользователя.
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO user_sessions (user_id, refresh_token, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		session.UserID,
		session.RefreshToken,
		session.UserAgent,
		session.IPAddress,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt); err != nil {
		return fmt.Errorf("user repository: create session %w", err)
	}

	return nil
}

// GetSession возвращает действующую сессию по refresh токену.
func (r *UserRepository) GetSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	var session models.Session
	query := `
		SELECT id, user_id, refresh_token, user_agent, ip_address, expires_at, created_at
		FROM user_sessions
		WHERE refresh_token = $1 AND expires_at > NOW()
	`
	if err := r.db.GetContext(ctx, &session, query, refreshToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("user repository: get session %w", err)
	}
	return &session, nil
}

// DeleteSession удаляет сессию по refresh токену.
func (r *UserRepository) DeleteSession(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("user repository: delete session %w", err)
	}

	return nil
}

// UpdateLastLoginAt обновляет время последнего входа пользователя.
func (r *UserRepository) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("user repository: update last login at %w", err)
	}

	return nil
}
