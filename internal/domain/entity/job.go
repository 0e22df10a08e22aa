package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

const (
	MaxJobTitleLength       = 100
	MaxJobDescriptionLength = 3000
	MaxSkillLength          = 50
)

type Job struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	Title           string
	Description     string
	Category        valueobject.Category
	Skills          []string
	Budget          valueobject.Budget
	BudgetType      valueobject.BudgetType
	Timeline        valueobject.Timeline
	ExperienceLevel valueobject.ExperienceLevel
	Location        valueobject.Location
	Status          valueobject.JobStatus
	Views           int
	ProposalCount   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobFields входные поля вакансии до валидации.
type JobFields struct {
	Title           string
	Description     string
	Category        string
	Skills          []string
	BudgetMin       decimal.Decimal
	BudgetMax       decimal.Decimal
	Currency        string
	BudgetType      string
	Timeline        string
	ExperienceLevel string
	Location        string
}

// NewJob проверяет все поля сразу и возвращает полный список нарушений.
func NewJob(clientID uuid.UUID, f JobFields) (*Job, error) {
	var errs []apperror.FieldError
	add := func(field, msg string) {
		errs = append(errs, apperror.FieldError{Field: field, Message: msg})
	}

	title := strings.TrimSpace(f.Title)
	if title == "" {
		add("title", "название обязательно")
	} else if utf8.RuneCountInString(title) > MaxJobTitleLength {
		add("title", "название не должно превышать 100 символов")
	}

	description := strings.TrimSpace(f.Description)
	if description == "" {
		add("description", "описание обязательно")
	} else if utf8.RuneCountInString(description) > MaxJobDescriptionLength {
		add("description", "описание не должно превышать 3000 символов")
	}

	category := valueobject.Category(f.Category)
	if !category.IsValid() {
		add("category", "некорректная категория")
	}

	skills := normalizeSkills(f.Skills)
	for _, s := range skills {
		if utf8.RuneCountInString(s) > MaxSkillLength {
			add("skills", "навык не должен превышать 50 символов")
			break
		}
	}

	if f.BudgetMin.IsNegative() {
		add("budget.min", "минимальный бюджет не может быть отрицательным")
	}
	if f.BudgetMax.IsNegative() {
		add("budget.max", "максимальный бюджет не может быть отрицательным")
	}
	if f.BudgetMin.GreaterThan(f.BudgetMax) {
		add("budget", "минимальный бюджет не может превышать максимальный")
	}
	currency := valueobject.Currency(f.Currency)
	if currency == "" {
		currency = valueobject.CurrencyUSD
	}
	if !currency.In(valueobject.JobCurrencies) {
		add("budget.currency", "неподдерживаемая валюта")
	}

	budgetType := valueobject.BudgetType(f.BudgetType)
	if !budgetType.IsValid() {
		add("budgetType", "тип бюджета должен быть fixed или hourly")
	}

	timeline := valueobject.Timeline(f.Timeline)
	if !timeline.IsValid() {
		add("timeline", "некорректный срок")
	}

	level := valueobject.ExperienceLevel(f.ExperienceLevel)
	if !level.IsValid() {
		add("experienceLevel", "некорректный уровень опыта")
	}

	location := valueobject.Location(f.Location)
	if location == "" {
		location = valueobject.LocationRemote
	}
	if !location.IsValid() {
		add("location", "некорректный формат работы")
	}

	if len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	now := time.Now()
	return &Job{
		ID:          uuid.New(),
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Category:    category,
		Skills:      skills,
		Budget: valueobject.Budget{
			Min:      f.BudgetMin,
			Max:      f.BudgetMax,
			Currency: currency,
		},
		BudgetType:      budgetType,
		Timeline:        timeline,
		ExperienceLevel: level,
		Location:        location,
		Status:          valueobject.JobStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (j *Job) IsOwnedBy(userID uuid.UUID) bool {
	return j.ClientID == userID
}

func (j *Job) IsOpen() bool {
	return j.Status == valueobject.JobStatusOpen
}

// ChangeStatus проверяет переход по таблице и меняет статус в памяти.
func (j *Job) ChangeStatus(newStatus valueobject.JobStatus) error {
	if !j.Status.CanTransitionTo(newStatus) {
		return apperror.State("недопустимый переход статуса вакансии из " + string(j.Status) + " в " + string(newStatus))
	}
	j.Status = newStatus
	j.UpdatedAt = time.Now()
	return nil
}
