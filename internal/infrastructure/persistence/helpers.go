package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const pqUniqueViolation = "23505"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func expectOneRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить результат запроса")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// casStatus меняет статус строки, только если он всё ещё равен from.
// Таблица подставляется из констант адаптеров, не из пользовательского ввода.
func casStatus(ctx context.Context, db execer, table string, id uuid.UUID, from, to string) error {
	query := `UPDATE ` + table + ` SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`
	result, err := db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус")
	}
	return expectOneRow(result, apperror.ErrConcurrentUpdate)
}
