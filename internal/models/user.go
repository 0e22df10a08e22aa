package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID                 uuid.UUID      `db:"id" json:"id"`
	Email              string         `db:"email" json:"email"`
	Username           string         `db:"username" json:"username"`
	PasswordHash       string         `db:"password_hash" json:"-"`
	Role               string         `db:"role" json:"role"`
	Bio                *string        `db:"bio" json:"bio,omitempty"`
	Skills             pq.StringArray `db:"skills" json:"skills"`
	CompletedContracts int            `db:"completed_contracts" json:"completed_contracts"`
	IsActive           bool           `db:"is_active" json:"is_active"`
	LastLoginAt        *time.Time     `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// PublicProfile то, что видят другие пользователи.
type PublicProfile struct {
	ID                 uuid.UUID `json:"id"`
	Username           string    `json:"username"`
	Role               string    `json:"role"`
	Bio                *string   `json:"bio,omitempty"`
	Skills             []string  `json:"skills"`
	CompletedContracts int       `json:"completed_contracts"`
	CreatedAt          time.Time `json:"created_at"`
}

// Public возвращает профиль без приватных полей.
func (u *User) Public() PublicProfile {
	skills := []string(u.Skills)
	if skills == nil {
		skills = []string{}
	}
	return PublicProfile{
		ID:                 u.ID,
		Username:           u.Username,
		Role:               u.Role,
		Bio:                u.Bio,
		Skills:             skills,
		CompletedContracts: u.CompletedContracts,
		CreatedAt:          u.CreatedAt,
	}
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
