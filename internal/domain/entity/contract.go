package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

type SubmittedFile struct {
	ID         uuid.UUID
	Filename   string
	StorageKey string
	MimeType   string
	Size       int64
}

type Submission struct {
	ID             uuid.UUID
	Files          []SubmittedFile
	Comments       string
	SubmittedAt    time.Time
	Status         valueobject.SubmissionStatus
	ClientFeedback *string
	FeedbackAt     *time.Time
}

type Milestone struct {
	ID                uuid.UUID
	ContractID        uuid.UUID
	Position          int
	Title             string
	Description       string
	Amount            decimal.Decimal
	DueDate           time.Time
	Status            valueobject.MilestoneStatus
	EscrowFunded      bool
	CurrentSubmission *Submission
	SubmissionHistory []Submission
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Contract struct {
	ID            uuid.UUID
	JobID         uuid.UUID
	ProposalID    uuid.UUID
	ClientID      uuid.UUID
	FreelancerID  uuid.UUID
	Title         string
	Scope         string
	Terms         string
	TotalAmount   decimal.Decimal
	Status        valueobject.ContractStatus
	EscrowBalance decimal.Decimal
	StartDate     *time.Time
	EndDate       *time.Time
	Milestones    []*Milestone
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MilestoneInput описывает этап до валидации. Отсутствующие поля равны nil.
type MilestoneInput struct {
	Title       string
	Description string
	Amount      *decimal.Decimal
	DueDate     *time.Time
}

// ContractTerms условия, которые клиент задаёт при создании контракта.
type ContractTerms struct {
	Title       string
	Scope       string
	Terms       string
	TotalAmount decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Milestones  []MilestoneInput
}

// ValidateMilestones возвращает ошибку для первого некорректного этапа.
func ValidateMilestones(items []MilestoneInput) error {
	for i, m := range items {
		var missing []string
		if strings.TrimSpace(m.Title) == "" {
			missing = append(missing, "title")
		}
		if strings.TrimSpace(m.Description) == "" {
			missing = append(missing, "description")
		}
		if m.Amount == nil {
			missing = append(missing, "amount")
		}
		if m.DueDate == nil {
			missing = append(missing, "dueDate")
		}
		if len(missing) > 0 {
			fields := make([]apperror.FieldError, 0, len(missing))
			for _, f := range missing {
				fields = append(fields, apperror.FieldError{
					Field:   fmt.Sprintf("milestones[%d].%s", i, f),
					Message: "обязательное поле",
				})
			}
			return apperror.Validation(fields)
		}
		if m.Amount.IsNegative() {
			return apperror.Validation([]apperror.FieldError{{
				Field:   fmt.Sprintf("milestones[%d].amount", i),
				Message: "сумма не может быть отрицательной",
			}})
		}
	}
	return nil
}

func newMilestone(contractID uuid.UUID, position int, in MilestoneInput, now time.Time) *Milestone {
	return &Milestone{
		ID:          uuid.New(),
		ContractID:  contractID,
		Position:    position,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Amount:      *in.Amount,
		DueDate:     *in.DueDate,
		Status:      valueobject.MilestoneStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewContract создаёт черновик контракта по принятому предложению.
func NewContract(job *Job, proposal *Proposal, terms ContractTerms) (*Contract, error) {
	if err := ValidateMilestones(terms.Milestones); err != nil {
		return nil, err
	}
	var errs []apperror.FieldError
	if strings.TrimSpace(terms.Title) == "" {
		errs = append(errs, apperror.FieldError{Field: "title", Message: "название обязательно"})
	}
	if terms.TotalAmount.IsNegative() {
		errs = append(errs, apperror.FieldError{Field: "totalAmount", Message: "сумма не может быть отрицательной"})
	}
	if terms.StartDate != nil && terms.EndDate != nil && terms.EndDate.Before(*terms.StartDate) {
		errs = append(errs, apperror.FieldError{Field: "endDate", Message: "дата окончания раньше даты начала"})
	}
	if len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	now := time.Now()
	c := &Contract{
		ID:            uuid.New(),
		JobID:         job.ID,
		ProposalID:    proposal.ID,
		ClientID:      job.ClientID,
		FreelancerID:  proposal.FreelancerID,
		Title:         strings.TrimSpace(terms.Title),
		Scope:         terms.Scope,
		Terms:         terms.Terms,
		TotalAmount:   terms.TotalAmount,
		Status:        valueobject.ContractStatusDraft,
		EscrowBalance: decimal.Zero,
		StartDate:     terms.StartDate,
		EndDate:       terms.EndDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, in := range terms.Milestones {
		c.Milestones = append(c.Milestones, newMilestone(c.ID, i, in, now))
	}
	return c, nil
}

func (c *Contract) IsClient(userID uuid.UUID) bool {
	return c.ClientID == userID
}

func (c *Contract) IsFreelancer(userID uuid.UUID) bool {
	return c.FreelancerID == userID
}

func (c *Contract) IsParty(userID uuid.UUID) bool {
	return c.IsClient(userID) || c.IsFreelancer(userID)
}

// MilestoneSum сумма всех этапов.
func (c *Contract) MilestoneSum() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range c.Milestones {
		sum = sum.Add(m.Amount)
	}
	return sum
}

func (c *Contract) Milestone(id uuid.UUID) (*Milestone, error) {
	for _, m := range c.Milestones {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperror.ErrMilestoneNotFound
}

// Fund прибавляет сумму к эскроу и возвращает статус до изменения.
func (c *Contract) Fund(amount decimal.Decimal) (valueobject.ContractStatus, error) {
	if !amount.IsPositive() {
		return "", apperror.Validation([]apperror.FieldError{{Field: "amount", Message: "сумма должна быть положительной"}})
	}
	from := c.Status
	to, err := from.FundTarget()
	if err != nil {
		return "", err
	}
	c.EscrowBalance = c.EscrowBalance.Add(amount)
	c.Status = to
	c.UpdatedAt = time.Now()
	return from, nil
}

func (c *Contract) Activate(now time.Time) error {
	if c.Status != valueobject.ContractStatusFunded {
		return apperror.State("активировать можно только оплаченный контракт")
	}
	c.Status = valueobject.ContractStatusActive
	c.StartDate = &now
	c.UpdatedAt = now
	return nil
}

func (c *Contract) AddMilestone(in MilestoneInput) (*Milestone, error) {
	if c.Status.IsTerminal() {
		return nil, apperror.State("контракт в статусе " + string(c.Status) + " нельзя изменять")
	}
	if err := ValidateMilestones([]MilestoneInput{in}); err != nil {
		return nil, err
	}
	m := newMilestone(c.ID, len(c.Milestones), in, time.Now())
	c.Milestones = append(c.Milestones, m)
	return m, nil
}

// ReleasePayment списывает сумму этапа с эскроу.
func (c *Contract) ReleasePayment(m *Milestone) error {
	if m.Status != valueobject.MilestoneStatusCompleted {
		return apperror.State("выплата возможна только по принятому этапу")
	}
	if c.EscrowBalance.LessThan(m.Amount) {
		return apperror.State("недостаточно средств в эскроу")
	}
	c.EscrowBalance = c.EscrowBalance.Sub(m.Amount)
	m.Status = valueobject.MilestoneStatusPaid
	m.UpdatedAt = time.Now()
	return nil
}

// Complete закрывает контракт, если все этапы оплачены.
func (c *Contract) Complete(now time.Time) error {
	for _, m := range c.Milestones {
		if m.Status != valueobject.MilestoneStatusPaid {
			return apperror.State("все этапы должны быть оплачены до завершения контракта")
		}
	}
	if !c.Status.CanTransitionTo(valueobject.ContractStatusCompleted) {
		return apperror.State("завершить контракт в статусе " + string(c.Status) + " нельзя")
	}
	c.Status = valueobject.ContractStatusCompleted
	c.EndDate = &now
	c.UpdatedAt = now
	return nil
}

// FindFile ищет файл сначала в текущей сдаче, затем в истории.
func (c *Contract) FindFile(milestoneID, fileID uuid.UUID) (*SubmittedFile, error) {
	m, err := c.Milestone(milestoneID)
	if err != nil {
		return nil, err
	}
	if m.CurrentSubmission != nil {
		if f := m.CurrentSubmission.file(fileID); f != nil {
			return f, nil
		}
	}
	for i := range m.SubmissionHistory {
		if f := m.SubmissionHistory[i].file(fileID); f != nil {
			return f, nil
		}
	}
	return nil, apperror.ErrFileNotFound
}

func (s *Submission) file(id uuid.UUID) *SubmittedFile {
	for i := range s.Files {
		if s.Files[i].ID == id {
			return &s.Files[i]
		}
	}
	return nil
}

// Submit заменяет текущую сдачу, предыдущая уходит в начало истории без изменений.
func (m *Milestone) Submit(files []SubmittedFile, comments string, now time.Time) error {
	if !m.Status.CanTransitionTo(valueobject.MilestoneStatusSubmitted) {
		return apperror.State("сдать работу по этапу в статусе " + string(m.Status) + " нельзя")
	}
	m.archiveCurrent()
	m.CurrentSubmission = &Submission{
		ID:          uuid.New(),
		Files:       files,
		Comments:    comments,
		SubmittedAt: now,
		Status:      valueobject.SubmissionStatusPending,
	}
	m.Status = valueobject.MilestoneStatusSubmitted
	m.UpdatedAt = now
	return nil
}

// Review фиксирует решение клиента и переносит сдачу в историю.
func (m *Milestone) Review(decision valueobject.SubmissionStatus, feedback string, now time.Time) error {
	if m.CurrentSubmission == nil {
		return apperror.ErrSubmissionNotFound
	}
	target, err := decision.ReviewDecision()
	if err != nil {
		return err
	}
	if !m.Status.CanTransitionTo(target) {
		return apperror.State("проверить этап в статусе " + string(m.Status) + " нельзя")
	}
	m.CurrentSubmission.Status = decision
	m.CurrentSubmission.ClientFeedback = &feedback
	m.CurrentSubmission.FeedbackAt = &now
	m.archiveCurrent()
	m.Status = target
	m.UpdatedAt = now
	return nil
}

func (m *Milestone) archiveCurrent() {
	if m.CurrentSubmission == nil {
		return
	}
	m.SubmissionHistory = append([]Submission{*m.CurrentSubmission}, m.SubmissionHistory...)
	m.CurrentSubmission = nil
}

// CurrentSubmissionID id текущей сдачи или nil, если её нет.
func (m *Milestone) CurrentSubmissionID() *uuid.UUID {
	if m.CurrentSubmission == nil {
		return nil
	}
	id := m.CurrentSubmission.ID
	return &id
}
