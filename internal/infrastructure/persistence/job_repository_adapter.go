package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const jobColumns = `
	j.id, j.client_id, j.title, j.description, j.category, j.skills,
	j.budget_min, j.budget_max, j.currency, j.budget_type, j.timeline,
	j.experience_level, j.location, j.status, j.views, j.created_at, j.updated_at,
	(SELECT COUNT(*) FROM proposals p WHERE p.job_id = j.id) AS proposal_count`

// timelineOrder сортирует по срочности в порядке valueobject.TimelineOrder.
var timelineOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE j.timeline")
	for i, t := range valueobject.TimelineOrder {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", t, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(valueobject.TimelineOrder))
	return b.String()
}()

type JobRepositoryAdapter struct {
	db *sqlx.DB
}

func NewJobRepositoryAdapter(db *sqlx.DB) *JobRepositoryAdapter {
	return &JobRepositoryAdapter{db: db}
}

func (r *JobRepositoryAdapter) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO jobs (id, client_id, title, description, category, skills, budget_min, budget_max,
			currency, budget_type, timeline, experience_level, location, status, views, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.ClientID, job.Title, job.Description, string(job.Category), pq.Array(job.Skills),
		job.Budget.Min, job.Budget.Max, string(job.Budget.Currency), string(job.BudgetType),
		string(job.Timeline), string(job.ExperienceLevel), string(job.Location), string(job.Status),
		job.Views, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать вакансию")
	}
	return nil
}

func (r *JobRepositoryAdapter) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE jobs SET title = $2, description = $3, category = $4, skills = $5, budget_min = $6,
			budget_max = $7, currency = $8, budget_type = $9, timeline = $10, experience_level = $11,
			location = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		job.ID, job.Title, job.Description, string(job.Category), pq.Array(job.Skills),
		job.Budget.Min, job.Budget.Max, string(job.Budget.Currency), string(job.BudgetType),
		string(job.Timeline), string(job.ExperienceLevel), string(job.Location), job.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить вакансию")
	}
	return expectOneRow(result, apperror.ErrJobNotFound)
}

func (r *JobRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить вакансию")
	}
	return expectOneRow(result, apperror.ErrJobNotFound)
}

func (r *JobRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var row jobRow
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrJobNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить вакансию")
	}
	return row.toEntity(), nil
}

func (r *JobRepositoryAdapter) FindByClientID(ctx context.Context, clientID uuid.UUID) ([]*entity.Job, error) {
	var rows []jobRow
	query := `SELECT ` + jobColumns + ` FROM jobs j WHERE j.client_id = $1 ORDER BY j.created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, clientID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить вакансии")
	}
	return toJobEntities(rows), nil
}

func (r *JobRepositoryAdapter) List(ctx context.Context, filter repository.JobFilter) ([]*entity.Job, int, error) {
	where := " WHERE j.status = 'open'"
	args := []interface{}{}
	argIndex := 1

	if filter.ExcludeAcceptedFor != nil {
		where += fmt.Sprintf(` AND NOT EXISTS (
			SELECT 1 FROM proposals ap
			WHERE ap.job_id = j.id AND ap.freelancer_id = $%d AND ap.status = 'accepted'
		)`, argIndex)
		args = append(args, *filter.ExcludeAcceptedFor)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		where += fmt.Sprintf(` AND (j.title ILIKE $%[1]d OR j.description ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(j.skills) s WHERE s ILIKE $%[1]d))`, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	for _, eq := range []struct{ column, value string }{
		{"j.category", filter.Category},
		{"j.budget_type", filter.BudgetType},
		{"j.experience_level", filter.ExperienceLevel},
		{"j.location", filter.Location},
		{"j.timeline", filter.Timeline},
	} {
		if eq.value == "" || eq.value == "all" {
			continue
		}
		where += fmt.Sprintf(" AND %s = $%d", eq.column, argIndex)
		args = append(args, eq.value)
		argIndex++
	}

	if filter.BudgetMin != nil {
		where += fmt.Sprintf(" AND j.budget_max >= $%d", argIndex)
		args = append(args, *filter.BudgetMin)
		argIndex++
	}
	if filter.BudgetMax != nil {
		where += fmt.Sprintf(" AND j.budget_min <= $%d", argIndex)
		args = append(args, *filter.BudgetMax)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM jobs j`+where, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать вакансии")
	}

	query := `SELECT ` + jobColumns + ` FROM jobs j` + where + jobOrderBy(filter.SortBy)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить вакансии")
	}
	return toJobEntities(rows), total, nil
}

func jobOrderBy(sortBy string) string {
	switch sortBy {
	case "oldest":
		return " ORDER BY j.created_at ASC"
	case "budget-high":
		return " ORDER BY j.budget_max DESC, j.created_at DESC"
	case "budget-low":
		return " ORDER BY j.budget_min ASC, j.created_at DESC"
	case "deadline":
		return " ORDER BY " + timelineOrder + " ASC, j.created_at DESC"
	default:
		return " ORDER BY j.created_at DESC"
	}
}

// ListHot сначала отдаёт вакансии новее since, затем добирает более старыми.
func (r *JobRepositoryAdapter) ListHot(ctx context.Context, since time.Time, limit int) ([]*entity.Job, error) {
	var rows []jobRow
	query := `SELECT ` + jobColumns + `
		FROM jobs j
		WHERE j.status = 'open'
		ORDER BY (j.created_at >= $1) DESC, j.created_at DESC
		LIMIT $2`
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить горячие вакансии")
	}
	return toJobEntities(rows), nil
}

func (r *JobRepositoryAdapter) IncrementViews(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE jobs SET views = views + 1 WHERE id = $1`, id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить просмотры")
	}
	return nil
}

func (r *JobRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.JobStatus) error {
	return casStatus(ctx, r.db, "jobs", id, string(from), string(to))
}

type jobRow struct {
	ID              uuid.UUID       `db:"id"`
	ClientID        uuid.UUID       `db:"client_id"`
	Title           string          `db:"title"`
	Description     string          `db:"description"`
	Category        string          `db:"category"`
	Skills          pq.StringArray  `db:"skills"`
	BudgetMin       decimal.Decimal `db:"budget_min"`
	BudgetMax       decimal.Decimal `db:"budget_max"`
	Currency        string          `db:"currency"`
	BudgetType      string          `db:"budget_type"`
	Timeline        string          `db:"timeline"`
	ExperienceLevel string          `db:"experience_level"`
	Location        string          `db:"location"`
	Status          string          `db:"status"`
	Views           int             `db:"views"`
	ProposalCount   int             `db:"proposal_count"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r jobRow) toEntity() *entity.Job {
	return &entity.Job{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Title:       r.Title,
		Description: r.Description,
		Category:    valueobject.Category(r.Category),
		Skills:      []string(r.Skills),
		Budget: valueobject.Budget{
			Min:      r.BudgetMin,
			Max:      r.BudgetMax,
			Currency: valueobject.Currency(r.Currency),
		},
		BudgetType:      valueobject.BudgetType(r.BudgetType),
		Timeline:        valueobject.Timeline(r.Timeline),
		ExperienceLevel: valueobject.ExperienceLevel(r.ExperienceLevel),
		Location:        valueobject.Location(r.Location),
		Status:          valueobject.JobStatus(r.Status),
		Views:           r.Views,
		ProposalCount:   r.ProposalCount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toJobEntities(rows []jobRow) []*entity.Job {
	jobs := make([]*entity.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.toEntity())
	}
	return jobs
}
