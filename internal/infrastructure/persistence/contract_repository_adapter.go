package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
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

const contractColumns = `id, job_id, proposal_id, client_id, freelancer_id, title, scope, terms,
	total_amount, status, escrow_balance, start_date, end_date, created_at, updated_at`

const milestoneColumns = `id, contract_id, position, title, description, amount, due_date, status,
	escrow_funded, current_submission, submission_history, created_at, updated_at`

type ContractRepositoryAdapter struct {
	db *sqlx.DB
}

func NewContractRepositoryAdapter(db *sqlx.DB) *ContractRepositoryAdapter {
	return &ContractRepositoryAdapter{db: db}
}

func (r *ContractRepositoryAdapter) CreateFromProposal(ctx context.Context, contract *entity.Contract, proposalFrom valueobject.ProposalStatus, jobFrom valueobject.JobStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO contracts (id, job_id, proposal_id, client_id, freelancer_id, title, scope, terms,
			total_amount, status, escrow_balance, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = tx.ExecContext(ctx, query,
		contract.ID, contract.JobID, contract.ProposalID, contract.ClientID, contract.FreelancerID,
		contract.Title, contract.Scope, contract.Terms, contract.TotalAmount, string(contract.Status),
		contract.EscrowBalance, contract.StartDate, contract.EndDate, contract.CreatedAt, contract.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ErrContractExists
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать контракт")
	}

	for _, m := range contract.Milestones {
		if err := insertMilestone(ctx, tx, m); err != nil {
			return err
		}
	}

	if proposalFrom != valueobject.ProposalStatusAccepted {
		if err := casStatus(ctx, tx, "proposals", contract.ProposalID, string(proposalFrom), string(valueobject.ProposalStatusAccepted)); err != nil {
			return err
		}
	}
	if jobFrom != valueobject.JobStatusInProgress {
		if err := casStatus(ctx, tx, "jobs", contract.JobID, string(jobFrom), string(valueobject.JobStatusInProgress)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать контракт")
	}
	return nil
}

func insertMilestone(ctx context.Context, db execer, m *entity.Milestone) error {
	current, history, err := encodeSubmissions(m)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO contract_milestones (id, contract_id, position, title, description, amount, due_date,
			status, escrow_funded, current_submission, submission_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = db.ExecContext(ctx, query,
		m.ID, m.ContractID, m.Position, m.Title, m.Description, m.Amount, m.DueDate,
		string(m.Status), m.EscrowFunded, current, history, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать этап")
	}
	return nil
}

func (r *ContractRepositoryAdapter) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	var row contractRow
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракт")
	}
	contracts, err := r.withMilestones(ctx, []contractRow{row})
	if err != nil {
		return nil, err
	}
	return contracts[0], nil
}

func (r *ContractRepositoryAdapter) ExistsForProposal(ctx context.Context, proposalID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE proposal_id = $1)`, proposalID)
}

func (r *ContractRepositoryAdapter) ExistsForJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM contracts WHERE job_id = $1)`, jobID)
}

func (r *ContractRepositoryAdapter) exists(ctx context.Context, query string, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить контракт")
	}
	return exists, nil
}

func (r *ContractRepositoryAdapter) List(ctx context.Context, filter repository.ContractFilter) ([]*entity.Contract, int, error) {
	var where string
	switch filter.Role {
	case "client":
		where = " WHERE client_id = $1"
	case "freelancer":
		where = " WHERE freelancer_id = $1"
	default:
		where = " WHERE (client_id = $1 OR freelancer_id = $1)"
	}
	args := []interface{}{filter.UserID}
	argIndex := 2
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM contracts`+where, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать контракты")
	}

	query := `SELECT ` + contractColumns + ` FROM contracts` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []contractRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракты")
	}
	contracts, err := r.withMilestones(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return contracts, total, nil
}

// withMilestones загружает этапы для всех контрактов одним запросом.
func (r *ContractRepositoryAdapter) withMilestones(ctx context.Context, rows []contractRow) ([]*entity.Contract, error) {
	contracts := make([]*entity.Contract, 0, len(rows))
	if len(rows) == 0 {
		return contracts, nil
	}
	byID := make(map[uuid.UUID]*entity.Contract, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		c := row.toEntity()
		contracts = append(contracts, c)
		byID[c.ID] = c
		ids = append(ids, c.ID.String())
	}

	var mRows []milestoneRow
	query := `SELECT ` + milestoneColumns + ` FROM contract_milestones
		WHERE contract_id = ANY($1::uuid[]) ORDER BY contract_id, position`
	if err := r.db.SelectContext(ctx, &mRows, query, pq.Array(ids)); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить этапы")
	}
	for _, mr := range mRows {
		m, err := mr.toEntity()
		if err != nil {
			return nil, err
		}
		if c, ok := byID[m.ContractID]; ok {
			c.Milestones = append(c.Milestones, m)
		}
	}
	return contracts, nil
}

func (r *ContractRepositoryAdapter) Fund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, from, to valueobject.ContractStatus) error {
	query := `
		UPDATE contracts SET escrow_balance = escrow_balance + $2, status = $4, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, amount, string(from), string(to))
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось пополнить эскроу")
	}
	return expectOneRow(result, apperror.ErrConcurrentUpdate)
}

func (r *ContractRepositoryAdapter) Activate(ctx context.Context, id uuid.UUID, startDate time.Time) error {
	query := `
		UPDATE contracts SET status = 'active', start_date = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'funded'
	`
	result, err := r.db.ExecContext(ctx, query, id, startDate)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось активировать контракт")
	}
	return expectOneRow(result, apperror.ErrConcurrentUpdate)
}

// AddMilestone блокирует контракт, проверяет его статус и ставит этап в конец списка.
func (r *ContractRepositoryAdapter) AddMilestone(ctx context.Context, m *entity.Milestone, contractStatus valueobject.ContractStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}
	defer tx.Rollback()

	var status string
	if err := tx.GetContext(ctx, &status, `SELECT status FROM contracts WHERE id = $1 FOR UPDATE`, m.ContractID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrContractNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракт")
	}
	if status != string(contractStatus) {
		return apperror.ErrConcurrentUpdate
	}

	var position int
	query := `SELECT COALESCE(MAX(position) + 1, 0) FROM contract_milestones WHERE contract_id = $1`
	if err := tx.GetContext(ctx, &position, query, m.ContractID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось определить позицию этапа")
	}
	m.Position = position

	if err := insertMilestone(ctx, tx, m); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить этап")
	}
	return nil
}

// SaveMilestoneSubmission дополнительно сверяет id текущей сдачи: переход submitted -> submitted
// не меняет статус, и без этой проверки устаревшая копия затёрла бы новую сдачу.
func (r *ContractRepositoryAdapter) SaveMilestoneSubmission(ctx context.Context, m *entity.Milestone, from valueobject.MilestoneStatus, fromSubmission *uuid.UUID) error {
	current, history, err := encodeSubmissions(m)
	if err != nil {
		return err
	}
	var expected *string
	if fromSubmission != nil {
		id := fromSubmission.String()
		expected = &id
	}
	query := `
		UPDATE contract_milestones
		SET status = $3, current_submission = $4, submission_history = $5, updated_at = $6
		WHERE id = $1 AND status = $2 AND (current_submission ->> 'id') IS NOT DISTINCT FROM $7
	`
	result, err := r.db.ExecContext(ctx, query, m.ID, string(from), string(m.Status), current, history, m.UpdatedAt, expected)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить сдачу работы")
	}
	return expectOneRow(result, apperror.ErrConcurrentUpdate)
}

func (r *ContractRepositoryAdapter) ReleasePayment(ctx context.Context, contractID, milestoneID uuid.UUID, amount decimal.Decimal) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE contract_milestones SET status = 'paid', updated_at = NOW()
		WHERE id = $1 AND contract_id = $2 AND status = 'completed'
	`, milestoneID, contractID)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить этап")
	}
	if err := expectOneRow(result, apperror.ErrConcurrentUpdate); err != nil {
		return err
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE contracts SET escrow_balance = escrow_balance - $2, updated_at = NOW()
		WHERE id = $1 AND escrow_balance >= $2
	`, contractID, amount)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось списать эскроу")
	}
	if err := expectOneRow(result, apperror.State("недостаточно средств в эскроу")); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать выплату")
	}
	return nil
}

// Complete закрывает контракт, завершает вакансию и увеличивает счётчик заказов исполнителя.
func (r *ContractRepositoryAdapter) Complete(ctx context.Context, contract *entity.Contract, from valueobject.ContractStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось начать транзакцию")
	}
	defer tx.Rollback()

	// Блокировка сериализует завершение с AddMilestone, который держит ту же строку.
	var status string
	if err := tx.GetContext(ctx, &status, `SELECT status FROM contracts WHERE id = $1 FOR UPDATE`, contract.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrContractNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить контракт")
	}
	if status != string(from) {
		return apperror.ErrConcurrentUpdate
	}

	var unpaid bool
	if err := tx.GetContext(ctx, &unpaid, `
		SELECT EXISTS(SELECT 1 FROM contract_milestones WHERE contract_id = $1 AND status <> 'paid')
	`, contract.ID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось проверить этапы")
	}
	if unpaid {
		return apperror.State("все этапы должны быть оплачены до завершения контракта")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE contracts SET status = 'completed', end_date = $2, updated_at = NOW() WHERE id = $1
	`, contract.ID, contract.EndDate); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить контракт")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'in-progress'
	`, contract.JobID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось завершить вакансию")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET completed_contracts = completed_contracts + 1, updated_at = NOW() WHERE id = $1
	`, contract.FreelancerID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статистику исполнителя")
	}

	if err := tx.Commit(); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зафиксировать завершение контракта")
	}
	return nil
}

type contractRow struct {
	ID            uuid.UUID       `db:"id"`
	JobID         uuid.UUID       `db:"job_id"`
	ProposalID    uuid.UUID       `db:"proposal_id"`
	ClientID      uuid.UUID       `db:"client_id"`
	FreelancerID  uuid.UUID       `db:"freelancer_id"`
	Title         string          `db:"title"`
	Scope         string          `db:"scope"`
	Terms         string          `db:"terms"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Status        string          `db:"status"`
	EscrowBalance decimal.Decimal `db:"escrow_balance"`
	StartDate     *time.Time      `db:"start_date"`
	EndDate       *time.Time      `db:"end_date"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func (r contractRow) toEntity() *entity.Contract {
	return &entity.Contract{
		ID:            r.ID,
		JobID:         r.JobID,
		ProposalID:    r.ProposalID,
		ClientID:      r.ClientID,
		FreelancerID:  r.FreelancerID,
		Title:         r.Title,
		Scope:         r.Scope,
		Terms:         r.Terms,
		TotalAmount:   r.TotalAmount,
		Status:        valueobject.ContractStatus(r.Status),
		EscrowBalance: r.EscrowBalance,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type milestoneRow struct {
	ID                uuid.UUID       `db:"id"`
	ContractID        uuid.UUID       `db:"contract_id"`
	Position          int             `db:"position"`
	Title             string          `db:"title"`
	Description       string          `db:"description"`
	Amount            decimal.Decimal `db:"amount"`
	DueDate           time.Time       `db:"due_date"`
	Status            string          `db:"status"`
	EscrowFunded      bool            `db:"escrow_funded"`
	CurrentSubmission []byte          `db:"current_submission"`
	SubmissionHistory []byte          `db:"submission_history"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

func (r milestoneRow) toEntity() (*entity.Milestone, error) {
	m := &entity.Milestone{
		ID:           r.ID,
		ContractID:   r.ContractID,
		Position:     r.Position,
		Title:        r.Title,
		Description:  r.Description,
		Amount:       r.Amount,
		DueDate:      r.DueDate,
		Status:       valueobject.MilestoneStatus(r.Status),
		EscrowFunded: r.EscrowFunded,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.CurrentSubmission) > 0 && string(r.CurrentSubmission) != "null" {
		var s submissionJSON
		if err := json.Unmarshal(r.CurrentSubmission, &s); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждены данные сдачи работы")
		}
		current := s.toEntity()
		m.CurrentSubmission = &current
	}
	if len(r.SubmissionHistory) > 0 {
		var history []submissionJSON
		if err := json.Unmarshal(r.SubmissionHistory, &history); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "повреждена история сдачи работы")
		}
		for _, s := range history {
			m.SubmissionHistory = append(m.SubmissionHistory, s.toEntity())
		}
	}
	return m, nil
}

type submittedFileJSON struct {
	ID         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	MimeType   string    `json:"mimetype"`
	Size       int64     `json:"size"`
}

type submissionJSON struct {
	ID             uuid.UUID           `json:"id"`
	Files          []submittedFileJSON `json:"files"`
	Comments       string              `json:"comments"`
	SubmittedAt    time.Time           `json:"submitted_at"`
	Status         string              `json:"status"`
	ClientFeedback *string             `json:"client_feedback,omitempty"`
	FeedbackAt     *time.Time          `json:"feedback_at,omitempty"`
}

func newSubmissionJSON(s entity.Submission) submissionJSON {
	out := submissionJSON{
		ID:             s.ID,
		Files:          make([]submittedFileJSON, 0, len(s.Files)),
		Comments:       s.Comments,
		SubmittedAt:    s.SubmittedAt,
		Status:         string(s.Status),
		ClientFeedback: s.ClientFeedback,
		FeedbackAt:     s.FeedbackAt,
	}
	for _, f := range s.Files {
		out.Files = append(out.Files, submittedFileJSON(f))
	}
	return out
}

func (s submissionJSON) toEntity() entity.Submission {
	out := entity.Submission{
		ID:             s.ID,
		Comments:       s.Comments,
		SubmittedAt:    s.SubmittedAt,
		Status:         valueobject.SubmissionStatus(s.Status),
		ClientFeedback: s.ClientFeedback,
		FeedbackAt:     s.FeedbackAt,
	}
	for _, f := range s.Files {
		out.Files = append(out.Files, entity.SubmittedFile(f))
	}
	return out
}

// encodeSubmissions сериализует текущую сдачу (nil для NULL) и историю для JSONB.
func encodeSubmissions(m *entity.Milestone) (current []byte, history []byte, err error) {
	if m.CurrentSubmission != nil {
		current, err = json.Marshal(newSubmissionJSON(*m.CurrentSubmission))
		if err != nil {
			return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать сдачу работы")
		}
	}
	items := make([]submissionJSON, 0, len(m.SubmissionHistory))
	for _, s := range m.SubmissionHistory {
		items = append(items, newSubmissionJSON(s))
	}
	history, err = json.Marshal(items)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать историю сдачи")
	}
	return current, history, nil
}
