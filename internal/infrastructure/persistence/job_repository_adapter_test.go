package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
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

var jobRowColumns = []string{
	"id", "client_id", "title", "description", "category", "skills",
	"budget_min", "budget_max", "currency", "budget_type", "timeline",
	"experience_level", "location", "status", "views", "created_at", "updated_at", "proposal_count",
}

func TestJobRepository_List_BuildsFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)
	viewer := uuid.New()
	minBudget := decimal.NewFromInt(100)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs j WHERE j.status = 'open' AND NOT EXISTS`).
		WithArgs(viewer, "%golang%", "development", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY j.budget_max DESC, j.created_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs(viewer, "%golang%", "development", sqlmock.AnyArg(), 10, 0).
		WillReturnRows(sqlmock.NewRows(jobRowColumns).AddRow(
			uuid.NewString(), uuid.NewString(), "Go backend", "API", "development", "{golang,postgres}",
			"100.00", "500.00", "USD", "fixed", "1-month", "expert", "remote", "open", 7, now, now, 2,
		))

	jobs, total, err := repo.List(context.Background(), repository.JobFilter{
		Search:             " golang ",
		Category:           "development",
		BudgetMin:          &minBudget,
		SortBy:             "budget-high",
		ExcludeAcceptedFor: &viewer,
		Limit:              10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{"golang", "postgres"}, jobs[0].Skills)
	assert.Equal(t, 2, jobs[0].ProposalCount)
	assert.True(t, jobs[0].Budget.Max.Equal(decimal.NewFromInt(500)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_List_TimelineIgnoresAllAndSearchesSkills(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)
	maxBudget := decimal.NewFromInt(300)

	// category=all и location=all не попадают в запрос, навык ищется без учёта регистра.
	where := `WHERE j.status = 'open' AND \(j.title ILIKE \$1 OR j.description ILIKE \$1 ` +
		`OR EXISTS \(SELECT 1 FROM unnest\(j.skills\) s WHERE s ILIKE \$1\)\) ` +
		`AND j.timeline = \$2 AND j.budget_min <= \$3`
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs j ` + where + `$`).
		WithArgs("%react%", "2-weeks", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(where + ` ORDER BY j.created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("%react%", "2-weeks", sqlmock.AnyArg(), 10, 0).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	jobs, total, err := repo.List(context.Background(), repository.JobFilter{
		Search:    "react",
		Category:  "all",
		Location:  "all",
		Timeline:  "2-weeks",
		BudgetMax: &maxBudget,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, jobs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_List_BudgetRangeOverlap(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)
	minBudget, maxBudget := decimal.NewFromInt(100), decimal.NewFromInt(300)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs j WHERE j.status = 'open' AND j.budget_max >= \$1 AND j.budget_min <= \$2$`).
		WithArgs("100", "300").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`AND j.budget_max >= \$1 AND j.budget_min <= \$2 ORDER BY j.created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("100", "300", 10, 0).
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, _, err := repo.List(context.Background(), repository.JobFilter{BudgetMin: &minBudget, BudgetMax: &maxBudget, Limit: 10})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_List_DeadlineOrdersByTimeline(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)

	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY CASE j.timeline WHEN`).WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, _, err := repo.List(context.Background(), repository.JobFilter{SortBy: "deadline", Limit: 5})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobRepository_UpdateStatus_Concurrent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE jobs SET status = \$3`).
		WithArgs(id, "open", "closed").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), id, valueobject.JobStatusOpen, valueobject.JobStatusClosed)
	assert.ErrorIs(t, err, apperror.ErrConcurrentUpdate)
}

func TestJobRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewJobRepositoryAdapter(db)

	mock.ExpectQuery(`FROM jobs j WHERE j.id = \$1`).WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrJobNotFound)
}

func TestProposalRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewProposalRepositoryAdapter(db)

	mock.ExpectExec("INSERT INTO proposals").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &entity.Proposal{
		ID:     uuid.New(),
		Bid:    valueobject.Money{Amount: decimal.NewFromInt(50), Currency: valueobject.CurrencyUSD},
		Status: valueobject.ProposalStatusPending,
	})
	assert.ErrorIs(t, err, apperror.ErrAlreadyApplied)
}

func TestProposalRepository_FindByJobAndFreelancer_Absent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewProposalRepositoryAdapter(db)

	mock.ExpectQuery(`FROM proposals WHERE job_id = \$1 AND freelancer_id = \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := repo.FindByJobAndFreelancer(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestProposalRepository_UpdateStatus_KeepsNotesWhenNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewProposalRepositoryAdapter(db)
	id := uuid.New()

	mock.ExpectExec(`client_notes = COALESCE\(\$4, client_notes\)`).
		WithArgs(id, "pending", "interviewing", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), id, valueobject.ProposalStatusPending, valueobject.ProposalStatusInterviewing, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessageRepository_MarkRead_NotReceiver(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewMessageRepositoryAdapter(db)

	mock.ExpectExec(`UPDATE messages SET is_read = TRUE`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrMessageNotFound)
}

func TestMessageRepository_ListConversations_NewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := persistence.NewMessageRepositoryAdapter(db)
	userID := uuid.New()
	older, newer := uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT DISTINCT ON \(partner_id\)`).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"partner_id", "id", "sender_id", "receiver_id", "content", "is_read", "read_at", "created_at", "unread_count",
		}).
			AddRow(older.String(), uuid.NewString(), older.String(), userID.String(), "привет", false, nil, now.Add(-time.Hour), 1).
			AddRow(newer.String(), uuid.NewString(), userID.String(), newer.String(), "как дела", true, now, now, 0))

	summaries, err := repo.ListConversations(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, newer, summaries[0].PartnerID)
	assert.Equal(t, 1, summaries[1].UnreadCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
