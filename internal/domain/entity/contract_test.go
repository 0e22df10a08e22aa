package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

func newTestContract(t *testing.T, amounts ...int64) *Contract {
	t.Helper()
	job := &Job{ID: uuid.New(), ClientID: uuid.New(), Status: valueobject.JobStatusOpen}
	proposal := &Proposal{ID: uuid.New(), JobID: job.ID, FreelancerID: uuid.New(), Status: valueobject.ProposalStatusPending}
	due := time.Now().Add(48 * time.Hour)
	var ms []MilestoneInput
	for _, a := range amounts {
		amount := decimal.NewFromInt(a)
		ms = append(ms, MilestoneInput{Title: "Этап", Description: "Описание", Amount: &amount, DueDate: &due})
	}
	c, err := NewContract(job, proposal, ContractTerms{Title: "Контракт", TotalAmount: decimal.NewFromInt(100), Milestones: ms})
	require.NoError(t, err)
	return c
}

func TestValidateMilestones_FirstInvalidIndex(t *testing.T) {
	amount := decimal.NewFromInt(10)
	negative := decimal.NewFromInt(-5)
	due := time.Now()

	err := ValidateMilestones([]MilestoneInput{
		{Title: "ok", Description: "ok", Amount: &amount, DueDate: &due},
		{Title: "bad", Description: "bad", Amount: &negative, DueDate: &due},
		{Title: "", Description: ""},
	})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "milestones[1].amount", appErr.Fields[0].Field)
}

func TestNewContract_Draft(t *testing.T) {
	c := newTestContract(t, 40, 60)

	assert.Equal(t, valueobject.ContractStatusDraft, c.Status)
	assert.True(t, c.EscrowBalance.IsZero())
	require.Len(t, c.Milestones, 2)
	for i, m := range c.Milestones {
		assert.Equal(t, i, m.Position)
		assert.Equal(t, valueobject.MilestoneStatusPending, m.Status)
		assert.Equal(t, c.ID, m.ContractID)
	}
	assert.True(t, c.MilestoneSum().Equal(decimal.NewFromInt(100)))
}

func TestContract_FundAndRelease(t *testing.T) {
	c := newTestContract(t, 70)
	m := c.Milestones[0]

	from, err := c.Fund(decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, valueobject.ContractStatusDraft, from)
	assert.Equal(t, valueobject.ContractStatusFunded, c.Status)

	assert.True(t, apperror.IsState(c.ReleasePayment(m)), "этап ещё не принят")

	m.Status = valueobject.MilestoneStatusCompleted
	assert.True(t, apperror.IsState(c.ReleasePayment(m)), "в эскроу меньше суммы этапа")

	_, err = c.Fund(decimal.NewFromInt(20))
	require.NoError(t, err)
	require.NoError(t, c.ReleasePayment(m))
	assert.True(t, c.EscrowBalance.IsZero())
	assert.Equal(t, valueobject.MilestoneStatusPaid, m.Status)
}

func TestContract_CompleteRequiresPaidMilestones(t *testing.T) {
	c := newTestContract(t, 50, 50)
	_, err := c.Fund(decimal.NewFromInt(100))
	require.NoError(t, err)
	c.Milestones[0].Status = valueobject.MilestoneStatusPaid

	assert.True(t, apperror.IsState(c.Complete(time.Now())))

	c.Milestones[1].Status = valueobject.MilestoneStatusPaid
	require.NoError(t, c.Complete(time.Now()))
	assert.Equal(t, valueobject.ContractStatusCompleted, c.Status)
	assert.NotNil(t, c.EndDate)

	_, err = c.AddMilestone(MilestoneInput{})
	assert.True(t, apperror.IsState(err))
}

func TestMilestone_SubmitAndReview(t *testing.T) {
	c := newTestContract(t, 10)
	m := c.Milestones[0]
	now := time.Now()

	assert.ErrorIs(t, m.Review(valueobject.SubmissionStatusApproved, "", now), apperror.ErrSubmissionNotFound)

	first := SubmittedFile{ID: uuid.New(), Filename: "v1.pdf"}
	second := SubmittedFile{ID: uuid.New(), Filename: "v2.pdf"}
	require.NoError(t, m.Submit([]SubmittedFile{first}, "первая версия", now))
	require.NoError(t, m.Submit([]SubmittedFile{second}, "вторая версия", now.Add(time.Minute)))

	require.Len(t, m.SubmissionHistory, 1)
	assert.Equal(t, "первая версия", m.SubmissionHistory[0].Comments)
	assert.Equal(t, valueobject.SubmissionStatusPending, m.SubmissionHistory[0].Status)
	assert.Equal(t, "вторая версия", m.CurrentSubmission.Comments)

	f, err := c.FindFile(m.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1.pdf", f.Filename)

	require.NoError(t, m.Review(valueobject.SubmissionStatusApproved, "отлично", now.Add(time.Hour)))
	assert.Nil(t, m.CurrentSubmission)
	require.Len(t, m.SubmissionHistory, 2)
	assert.Equal(t, valueobject.SubmissionStatusApproved, m.SubmissionHistory[0].Status)
	assert.Equal(t, "вторая версия", m.SubmissionHistory[0].Comments)
	assert.Equal(t, valueobject.MilestoneStatusCompleted, m.Status)

	f, err = c.FindFile(m.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2.pdf", f.Filename)

	_, err = c.FindFile(m.ID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrFileNotFound)
}
