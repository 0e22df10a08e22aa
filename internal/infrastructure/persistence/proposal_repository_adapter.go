package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const proposalColumns = `id, job_id, freelancer_id, cover_letter, bid_amount, bid_currency,
	estimated_duration, status, client_notes, created_at, updated_at`

type ProposalRepositoryAdapter struct {
	db *sqlx.DB
}

func NewProposalRepositoryAdapter(db *sqlx.DB) *ProposalRepositoryAdapter {
	return &ProposalRepositoryAdapter{db: db}
}

func (r *ProposalRepositoryAdapter) Create(ctx context.Context, proposal *entity.Proposal) error {
	query := `
		INSERT INTO proposals (id, job_id, freelancer_id, cover_letter, bid_amount, bid_currency,
			estimated_duration, status, client_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		proposal.ID, proposal.JobID, proposal.FreelancerID, proposal.CoverLetter,
		proposal.Bid.Amount, string(proposal.Bid.Currency), string(proposal.EstimatedDuration),
		string(proposal.Status), proposal.ClientNotes, proposal.CreatedAt, proposal.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrAlreadyApplied
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать предложение")
	}
	return nil
}

func (r *ProposalRepositoryAdapter) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось удалить предложение")
	}
	return expectOneRow(result, apperror.ErrProposalNotFound)
}

func (r *ProposalRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Proposal, error) {
	var p proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrProposalNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return p.toEntity(), nil
}

func (r *ProposalRepositoryAdapter) FindByJobID(ctx context.Context, jobID uuid.UUID) ([]*entity.Proposal, error) {
	var rows []proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE job_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return toProposalEntities(rows), nil
}

func (r *ProposalRepositoryAdapter) FindByFreelancerID(ctx context.Context, freelancerID uuid.UUID) ([]*entity.Proposal, error) {
	var rows []proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE freelancer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, freelancerID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложения")
	}
	return toProposalEntities(rows), nil
}

// FindByJobAndFreelancer возвращает nil без ошибки, если отклика нет.
func (r *ProposalRepositoryAdapter) FindByJobAndFreelancer(ctx context.Context, jobID, freelancerID uuid.UUID) (*entity.Proposal, error) {
	var p proposalRow
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE job_id = $1 AND freelancer_id = $2`
	if err := r.db.GetContext(ctx, &p, query, jobID, freelancerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить предложение")
	}
	return p.toEntity(), nil
}

func (r *ProposalRepositoryAdapter) UpdateStatus(ctx context.Context, id uuid.UUID, from, to valueobject.ProposalStatus, notes *string) error {
	query := `
		UPDATE proposals SET status = $3, client_notes = COALESCE($4, client_notes), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, string(from), string(to), notes)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус предложения")
	}
	return expectOneRow(result, apperror.ErrConcurrentUpdate)
}

type proposalRow struct {
	ID                uuid.UUID       `db:"id"`
	JobID             uuid.UUID       `db:"job_id"`
	FreelancerID      uuid.UUID       `db:"freelancer_id"`
	CoverLetter       string          `db:"cover_letter"`
	BidAmount         decimal.Decimal `db:"bid_amount"`
	BidCurrency       string          `db:"bid_currency"`
	EstimatedDuration string          `db:"estimated_duration"`
	Status            string          `db:"status"`
	ClientNotes       *string         `db:"client_notes"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r proposalRow) toEntity() *entity.Proposal {
	return &entity.Proposal{
		ID:                r.ID,
		JobID:             r.JobID,
		FreelancerID:      r.FreelancerID,
		CoverLetter:       r.CoverLetter,
		Bid:               valueobject.Money{Amount: r.BidAmount, Currency: valueobject.Currency(r.BidCurrency)},
		EstimatedDuration: valueobject.Duration(r.EstimatedDuration),
		Status:            valueobject.ProposalStatus(r.Status),
		ClientNotes:       r.ClientNotes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toProposalEntities(rows []proposalRow) []*entity.Proposal {
	proposals := make([]*entity.Proposal, 0, len(rows))
	for _, row := range rows {
		proposals = append(proposals, row.toEntity())
	}
	return proposals
}
