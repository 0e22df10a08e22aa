package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/models"
)

const tokenIssuer = "freelance-marketplace"

// ErrTokenType возвращается, когда refresh токен предъявлен вместо access и наоборот.
var ErrTokenType = errors.New("token: неверный тип токена")

// TokenPair хранит пару access/refresh токенов. ExpiresIn указан в секундах.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// accessClaims кладёт роль в access токен, чтобы middleware не ходил в базу.
type accessClaims struct {
	Role string `json:"role"`
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет JWT (HS256).
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	parser        *jwt.Parser
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// GeneratePair выпускает пару токенов и возвращает сроки их действия.
func (m *TokenManager) GeneratePair(user *models.User) (*TokenPair, time.Time, time.Time, error) {
	now := time.Now()
	accessExp := now.Add(m.accessTTL)
	refreshExp := now.Add(m.refreshTTL)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims{
		Role:             user.Role,
		Kind:             "access",
		RegisteredClaims: m.registered(user.ID, now, accessExp),
	})
	accessToken, err := access.SignedString(m.accessSecret)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	// Случайный jti делает каждый refresh токен уникальным даже при одинаковом iat.
	refreshClaims := m.registered(user.ID, now, refreshExp)
	refreshClaims.ID = uuid.NewString()
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(m.refreshSecret)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.accessTTL / time.Second),
	}, accessExp, refreshExp, nil
}

// ParseRefresh проверяет подпись refresh токена и возвращает его клеймы.
func (m *TokenManager) ParseRefresh(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.refreshSecret, nil
	}); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, ErrTokenType
	}
	return claims, nil
}

// ParseAccess извлекает userID и роль из access токена.
func (m *TokenManager) ParseAccess(token string) (uuid.UUID, string, error) {
	claims := &accessClaims{}
	if _, err := m.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}); err != nil {
		return uuid.Nil, "", err
	}
	if claims.Kind != "access" {
		return uuid.Nil, "", ErrTokenType
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", jwt.ErrTokenInvalidClaims
	}
	return userID, claims.Role, nil
}

func (m *TokenManager) registered(userID uuid.UUID, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}
