package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/job"
)

type JobBudget struct {
	Min      decimal.Decimal `json:"min"`
	Max      decimal.Decimal `json:"max"`
	Currency string          `json:"currency"`
}

// JobRequest общее тело создания и полного обновления вакансии.
// Поля не помечены required: обязательность проверяет домен и возвращает весь список ошибок.
type JobRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Skills          []string  `json:"skills"`
	Budget          JobBudget `json:"budget"`
	BudgetType      string    `json:"budgetType"`
	Timeline        string    `json:"timeline"`
	ExperienceLevel string    `json:"experienceLevel"`
	Location        string    `json:"location"`
}

func (r JobRequest) Fields() entity.JobFields {
	return entity.JobFields{
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Skills:          r.Skills,
		BudgetMin:       r.Budget.Min,
		BudgetMax:       r.Budget.Max,
		Currency:        r.Budget.Currency,
		BudgetType:      r.BudgetType,
		Timeline:        r.Timeline,
		ExperienceLevel: r.ExperienceLevel,
		Location:        r.Location,
	}
}

// UpdateJobRequest меняет либо статус, либо набор полей.
type UpdateJobRequest struct {
	Status *string `json:"status"`
	*JobRequest
}

type JobResponse struct {
	ID              uuid.UUID `json:"id"`
	ClientID        uuid.UUID `json:"client_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Category        string    `json:"category"`
	Skills          []string  `json:"skills"`
	Budget          JobBudget `json:"budget"`
	BudgetType      string    `json:"budget_type"`
	Timeline        string    `json:"timeline"`
	ExperienceLevel string    `json:"experience_level"`
	Location        string    `json:"location"`
	Status          string    `json:"status"`
	Views           int       `json:"views"`
	ProposalCount   int       `json:"proposal_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func ToJobResponse(j *entity.Job) JobResponse {
	skills := j.Skills
	if skills == nil {
		skills = []string{}
	}
	return JobResponse{
		ID:          j.ID,
		ClientID:    j.ClientID,
		Title:       j.Title,
		Description: j.Description,
		Category:    string(j.Category),
		Skills:      skills,
		Budget: JobBudget{
			Min:      j.Budget.Min,
			Max:      j.Budget.Max,
			Currency: string(j.Budget.Currency),
		},
		BudgetType:      string(j.BudgetType),
		Timeline:        string(j.Timeline),
		ExperienceLevel: string(j.ExperienceLevel),
		Location:        string(j.Location),
		Status:          string(j.Status),
		Views:           j.Views,
		ProposalCount:   j.ProposalCount,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       j.UpdatedAt,
	}
}

func ToJobResponses(jobs []*entity.Job) []JobResponse {
	responses := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		responses = append(responses, ToJobResponse(j))
	}
	return responses
}

type MyJobResponse struct {
	JobResponse
	Proposals []ProposalResponse `json:"proposals"`
}

func ToMyJobResponses(items []job.MyJob) []MyJobResponse {
	responses := make([]MyJobResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, MyJobResponse{
			JobResponse: ToJobResponse(item.Job),
			Proposals:   ToProposalResponses(item.Proposals),
		})
	}
	return responses
}
