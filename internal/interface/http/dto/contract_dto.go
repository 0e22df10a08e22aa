package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate принимает RFC3339 или дату без времени. Пустое значение даёт nil.
func ParseDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("некорректная дата %q", *value)
}

type MilestoneRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *string          `json:"dueDate"`
}

func (r MilestoneRequest) Input() (entity.MilestoneInput, error) {
	due, err := ParseDate(r.DueDate)
	if err != nil {
		return entity.MilestoneInput{}, err
	}
	return entity.MilestoneInput{
		Title:       r.Title,
		Description: r.Description,
		Amount:      r.Amount,
		DueDate:     due,
	}, nil
}

type CreateContractRequest struct {
	Title       string             `json:"title" binding:"required"`
	Scope       string             `json:"scope"`
	Terms       string             `json:"terms"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	StartDate   *string            `json:"startDate"`
	EndDate     *string            `json:"endDate"`
	Milestones  []MilestoneRequest `json:"milestones"`
}

func (r CreateContractRequest) ContractTerms() (entity.ContractTerms, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return entity.ContractTerms{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return entity.ContractTerms{}, err
	}

	milestones := make([]entity.MilestoneInput, 0, len(r.Milestones))
	for _, m := range r.Milestones {
		in, err := m.Input()
		if err != nil {
			return entity.ContractTerms{}, err
		}
		milestones = append(milestones, in)
	}

	return entity.ContractTerms{
		Title:       r.Title,
		Scope:       r.Scope,
		Terms:       r.Terms,
		TotalAmount: r.TotalAmount,
		StartDate:   start,
		EndDate:     end,
		Milestones:  milestones,
	}, nil
}

type FundEscrowRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type ReviewSubmissionRequest struct {
	Status   string `json:"status" binding:"required"`
	Feedback string `json:"feedback"`
}

type SubmittedFileResponse struct {
	ID       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	MimeType string    `json:"mime_type"`
	Size     int64     `json:"size"`
}

type SubmissionResponse struct {
	ID             uuid.UUID               `json:"id"`
	Files          []SubmittedFileResponse `json:"files"`
	Comments       string                  `json:"comments"`
	SubmittedAt    time.Time               `json:"submitted_at"`
	Status         string                  `json:"status"`
	ClientFeedback *string                 `json:"client_feedback"`
	FeedbackAt     *time.Time              `json:"feedback_at"`
}

type MilestoneResponse struct {
	ID                uuid.UUID            `json:"id"`
	Position          int                  `json:"position"`
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Amount            decimal.Decimal      `json:"amount"`
	DueDate           time.Time            `json:"due_date"`
	Status            string               `json:"status"`
	EscrowFunded      bool                 `json:"escrow_funded"`
	CurrentSubmission *SubmissionResponse  `json:"current_submission"`
	SubmissionHistory []SubmissionResponse `json:"submission_history"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

type ContractResponse struct {
	ID            uuid.UUID           `json:"id"`
	JobID         uuid.UUID           `json:"job_id"`
	ProposalID    uuid.UUID           `json:"proposal_id"`
	ClientID      uuid.UUID           `json:"client_id"`
	FreelancerID  uuid.UUID           `json:"freelancer_id"`
	Title         string              `json:"title"`
	Scope         string              `json:"scope"`
	Terms         string              `json:"terms"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Status        string              `json:"status"`
	EscrowBalance decimal.Decimal     `json:"escrow_balance"`
	StartDate     *time.Time          `json:"start_date"`
	EndDate       *time.Time          `json:"end_date"`
	Milestones    []MilestoneResponse `json:"milestones"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type SubmitWorkResponse struct {
	Contract  ContractResponse  `json:"contract"`
	Milestone MilestoneResponse `json:"milestone"`
}

type SubmitWarnings struct {
	FailedFiles []string `json:"failedFiles"`
}

func toSubmissionResponse(s entity.Submission) SubmissionResponse {
	files := make([]SubmittedFileResponse, 0, len(s.Files))
	for _, f := range s.Files {
		files = append(files, SubmittedFileResponse{
			ID:       f.ID,
			Filename: f.Filename,
			MimeType: f.MimeType,
			Size:     f.Size,
		})
	}
	return SubmissionResponse{
		ID:             s.ID,
		Files:          files,
		Comments:       s.Comments,
		SubmittedAt:    s.SubmittedAt,
		Status:         string(s.Status),
		ClientFeedback: s.ClientFeedback,
		FeedbackAt:     s.FeedbackAt,
	}
}

func ToMilestoneResponse(m *entity.Milestone) MilestoneResponse {
	resp := MilestoneResponse{
		ID:                m.ID,
		Position:          m.Position,
		Title:             m.Title,
		Description:       m.Description,
		Amount:            m.Amount,
		DueDate:           m.DueDate,
		Status:            string(m.Status),
		EscrowFunded:      m.EscrowFunded,
		SubmissionHistory: make([]SubmissionResponse, 0, len(m.SubmissionHistory)),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.CurrentSubmission != nil {
		current := toSubmissionResponse(*m.CurrentSubmission)
		resp.CurrentSubmission = &current
	}
	for _, s := range m.SubmissionHistory {
		resp.SubmissionHistory = append(resp.SubmissionHistory, toSubmissionResponse(s))
	}
	return resp
}

func ToContractResponse(c *entity.Contract) ContractResponse {
	milestones := make([]MilestoneResponse, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		milestones = append(milestones, ToMilestoneResponse(m))
	}
	return ContractResponse{
		ID:            c.ID,
		JobID:         c.JobID,
		ProposalID:    c.ProposalID,
		ClientID:      c.ClientID,
		FreelancerID:  c.FreelancerID,
		Title:         c.Title,
		Scope:         c.Scope,
		Terms:         c.Terms,
		TotalAmount:   c.TotalAmount,
		Status:        string(c.Status),
		EscrowBalance: c.EscrowBalance,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		Milestones:    milestones,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func ToContractResponses(contracts []*entity.Contract) []ContractResponse {
	responses := make([]ContractResponse, 0, len(contracts))
	for _, c := range contracts {
		responses = append(responses, ToContractResponse(c))
	}
	return responses
}
