package db

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(100)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return conn, nil
}

// RunMigrations применяет все новые миграции из fsys. Уже применённые пропускаются.
func RunMigrations(conn *sqlx.DB, fsys fs.FS) (uint, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("postgres: не удалось открыть миграции: %w", err)
	}
	driver, err := postgres.WithInstance(conn.DB, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("postgres: не удалось создать драйвер миграций: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return 0, fmt.Errorf("postgres: не удалось инициализировать миграции: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("postgres: не удалось применить миграции: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("postgres: не удалось получить версию схемы: %w", err)
	}
	return version, nil
}
