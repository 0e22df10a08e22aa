package persistence_test

import (
	"context"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/infrastructure/persistence"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return sqlx.NewDb(conn, "postgres"), mock
}

func newContract() *entity.Contract {
	now := time.Now()
	contractID := uuid.New()
	return &entity.Contract{
		ID:           contractID,
		JobID:        uuid.New(),
		ProposalID:   uuid.New(),
		ClientID:     uuid.New(),
		FreelancerID: uuid.New(),
		Title:        "Лендинг",
		Scope:        "Верстка и интеграция",
		Terms:        "Оплата по этапам",
		TotalAmount:  decimal.NewFromInt(300),
		Status:       valueobject.ContractStatusDraft,
		Milestones: []*entity.Milestone{{
			ID:         uuid.New(),
			ContractID: contractID,
			Title:      "Макет",
			Amount:     decimal.NewFromInt(300),
			DueDate:    now.Add(72 * time.Hour),
			Status:     valueobject.MilestoneStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestContractRepository_CreateFromProposal(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contract_milestones").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE proposals SET status").
		WithArgs(c.ProposalID, "pending", "accepted").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE jobs SET status").
		WithArgs(c.JobID, "open", "in-progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateFromProposal(context.Background(), c, valueobject.ProposalStatusPending, valueobject.JobStatusOpen)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_CreateFromProposal_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contracts").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateFromProposal(context.Background(), newContract(), valueobject.ProposalStatusPending, valueobject.JobStatusOpen)
	assert.ErrorIs(t, err, apperror.ErrContractExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_CreateFromProposal_JobChangedConcurrently(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contracts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contract_milestones").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE proposals SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE jobs SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.CreateFromProposal(context.Background(), newContract(), valueobject.ProposalStatusPending, valueobject.JobStatusOpen)
	assert.True(t, apperror.IsState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_FindByID_LoadsMilestones(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM contracts WHERE id = \$1`).
		WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "job_id", "proposal_id", "client_id", "freelancer_id", "title", "scope", "terms",
			"total_amount", "status", "escrow_balance", "start_date", "end_date", "created_at", "updated_at",
		}).AddRow(
			c.ID.String(), c.JobID.String(), c.ProposalID.String(), c.ClientID.String(), c.FreelancerID.String(),
			c.Title, c.Scope, c.Terms, "300.00", "active", "150.00", now, nil, now, now,
		))

	submission := `{"id":"` + uuid.NewString() + `","files":[{"id":"` + uuid.NewString() +
		`","filename":"design.pdf","storage_key":"k1","mimetype":"application/pdf","size":42}],` +
		`"comments":"готово","submitted_at":"2026-01-02T10:00:00Z","status":"pending"}`
	mock.ExpectQuery(`SELECT (.+) FROM contract_milestones WHERE contract_id = ANY`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "contract_id", "position", "title", "description", "amount", "due_date", "status",
			"escrow_funded", "current_submission", "submission_history", "created_at", "updated_at",
		}).
			AddRow(uuid.NewString(), c.ID.String(), 0, "Макет", "", "100.00", now, "submitted", true, []byte(submission), []byte(`[]`), now, now).
			AddRow(uuid.NewString(), c.ID.String(), 1, "Верстка", "", "200.00", now, "pending", false, nil, []byte(`[]`), now, now))

	got, err := repo.FindByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusActive, got.Status)
	assert.True(t, got.EscrowBalance.Equal(decimal.NewFromInt(150)))
	require.Len(t, got.Milestones, 2)

	first := got.Milestones[0]
	require.NotNil(t, first.CurrentSubmission)
	assert.Equal(t, "готово", first.CurrentSubmission.Comments)
	require.Len(t, first.CurrentSubmission.Files, 1)
	assert.Equal(t, "design.pdf", first.CurrentSubmission.Files[0].Filename)
	assert.Nil(t, got.Milestones[1].CurrentSubmission)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)

	mock.ExpectQuery(`SELECT (.+) FROM contracts`).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrContractNotFound)
}

func TestContractRepository_FundCAS(t *testing.T) {
	tests := map[string]struct {
		affected int64
		wantErr  error
	}{
		"статус совпал":  {affected: 1},
		"статус изменён": {affected: 0, wantErr: apperror.ErrConcurrentUpdate},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := persistence.NewContractRepositoryAdapter(db)
			id := uuid.New()

			mock.ExpectExec(`UPDATE contracts SET escrow_balance = escrow_balance \+ \$2`).
				WithArgs(id, sqlmock.AnyArg(), "draft", "funded").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.Fund(context.Background(), id, decimal.NewFromInt(100), valueobject.ContractStatusDraft, valueobject.ContractStatusFunded)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestContractRepository_ReleasePayment_InsufficientEscrow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	contractID, milestoneID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE contract_milestones SET status = 'paid'`).
		WithArgs(milestoneID, contractID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contracts SET escrow_balance = escrow_balance - \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ReleasePayment(context.Background(), contractID, milestoneID, decimal.NewFromInt(500))
	require.Error(t, err)
	assert.True(t, apperror.IsState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_ReleasePayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE contract_milestones SET status = 'paid'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE contracts SET escrow_balance = escrow_balance - \$2`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReleasePayment(context.Background(), uuid.New(), uuid.New(), decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_Complete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM contracts WHERE id = \$1 FOR UPDATE`).WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM contract_milestones WHERE contract_id = \$1 AND status <> 'paid'\)`).WithArgs(c.ID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`UPDATE contracts SET status = 'completed'`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE jobs SET status = 'completed'`).WithArgs(c.JobID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET completed_contracts = completed_contracts \+ 1`).WithArgs(c.FreelancerID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Complete(context.Background(), c, valueobject.ContractStatusActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_Complete_UnpaidMilestoneAddedConcurrently(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()
	// В памяти все этапы оплачены, но в базе уже появился новый.
	c.Milestones[0].Status = valueobject.MilestoneStatusPaid

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM contracts WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM contract_milestones`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), c, valueobject.ContractStatusActive)
	assert.True(t, apperror.IsState(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_Complete_StatusChanged(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM contracts WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Complete(context.Background(), c, valueobject.ContractStatusActive), apperror.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_AddMilestone_Appends(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()
	m := c.Milestones[0]

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM contracts WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(position\) \+ 1, 0\)`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectExec("INSERT INTO contract_milestones").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AddMilestone(context.Background(), m, valueobject.ContractStatusActive))
	assert.Equal(t, 3, m.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_AddMilestone_StatusChanged(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	c := newContract()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM contracts`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))
	mock.ExpectRollback()

	err := repo.AddMilestone(context.Background(), c.Milestones[0], valueobject.ContractStatusActive)
	assert.ErrorIs(t, err, apperror.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_SaveMilestoneSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	m := newContract().Milestones[0]
	m.Status = valueobject.MilestoneStatusSubmitted
	m.CurrentSubmission = &entity.Submission{
		ID:          uuid.New(),
		Comments:    "первая версия",
		SubmittedAt: time.Now(),
		Status:      valueobject.SubmissionStatusPending,
	}

	mock.ExpectExec(`UPDATE contract_milestones SET status = \$3, current_submission = \$4`).
		WithArgs(m.ID, "pending", "submitted", jsonContains("первая версия"), []byte(`[]`), sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveMilestoneSubmission(context.Background(), m, valueobject.MilestoneStatusPending, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_SaveMilestoneSubmission_StaleSubmission(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	m := newContract().Milestones[0]
	read := uuid.New()
	m.Status = valueobject.MilestoneStatusCompleted
	m.SubmissionHistory = []entity.Submission{{ID: read, Status: valueobject.SubmissionStatusApproved}}

	// Исполнитель успел пересдать работу: в базе уже другая текущая сдача.
	mock.ExpectExec(`WHERE id = \$1 AND status = \$2 AND \(current_submission ->> 'id'\) IS NOT DISTINCT FROM \$7`).
		WithArgs(m.ID, "submitted", "completed", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), read.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveMilestoneSubmission(context.Background(), m, valueobject.MilestoneStatusSubmitted, &read)
	assert.ErrorIs(t, err, apperror.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepository_List_FiltersByRole(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewContractRepositoryAdapter(db)
	userID := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contracts WHERE freelancer_id = \$1 AND status = \$2`).
		WithArgs(userID, "active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM contracts WHERE freelancer_id = \$1 AND status = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs(userID, "active", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	contracts, total, err := repo.List(context.Background(), repository.ContractFilter{
		UserID: userID, Role: "freelancer", Status: "active", Limit: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, contracts)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// jsonContains сопоставляет JSONB-аргумент по подстроке.
type jsonContains string

func (s jsonContains) Match(v driver.Value) bool {
	b, ok := v.([]byte)
	return ok && strings.Contains(string(b), string(s))
}
