package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetByID - универсальная функция для получения сущности по ID.
// Подходит только для моделей, чьи поля совпадают с колонками таблицы.
func GetByID[T any](ctx context.Context, db *sqlx.DB, table string, id interface{}, notFoundErr error) (*T, error) {
	return GetByField[T](ctx, db, table, "id", id, notFoundErr)
}

// GetByField - универсальная функция для получения сущности по любому полю
func GetByField[T any](ctx context.Context, db *sqlx.DB, table, field string, value interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field)

	if err := db.GetContext(ctx, &entity, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by %s from %s: %w", field, table, err)
	}

	return &entity, nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
