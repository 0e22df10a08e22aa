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
	MaxCoverLetterLength = 3000
	MaxClientNotesLength = 1000
)

type Proposal struct {
	ID                uuid.UUID
	JobID             uuid.UUID
	FreelancerID      uuid.UUID
	CoverLetter       string
	Bid               valueobject.Money
	EstimatedDuration valueobject.Duration
	Status            valueobject.ProposalStatus
	ClientNotes       *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewProposal(jobID, freelancerID uuid.UUID, coverLetter string, bidAmount decimal.Decimal, currency string, duration string) (*Proposal, error) {
	var errs []apperror.FieldError
	coverLetter = strings.TrimSpace(coverLetter)
	if coverLetter == "" {
		errs = append(errs, apperror.FieldError{Field: "coverLetter", Message: "сопроводительное письмо обязательно"})
	} else if utf8.RuneCountInString(coverLetter) > MaxCoverLetterLength {
		errs = append(errs, apperror.FieldError{Field: "coverLetter", Message: "сопроводительное письмо не должно превышать 3000 символов"})
	}
	if bidAmount.IsNegative() {
		errs = append(errs, apperror.FieldError{Field: "bidAmount.amount", Message: "ставка не может быть отрицательной"})
	}
	cur := valueobject.Currency(currency)
	if cur == "" {
		cur = valueobject.CurrencyUSD
	}
	if !cur.In(valueobject.BidCurrencies) {
		errs = append(errs, apperror.FieldError{Field: "bidAmount.currency", Message: "валюта должна быть USD, EUR или GBP"})
	}
	d := valueobject.Duration(duration)
	if !d.IsValid() {
		errs = append(errs, apperror.FieldError{Field: "estimatedDuration", Message: "некорректная длительность"})
	}
	if len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}

	now := time.Now()
	return &Proposal{
		ID:                uuid.New(),
		JobID:             jobID,
		FreelancerID:      freelancerID,
		CoverLetter:       coverLetter,
		Bid:               valueobject.Money{Amount: bidAmount, Currency: cur},
		EstimatedDuration: d,
		Status:            valueobject.ProposalStatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// ChangeStatus применяет решение клиента и сохраняет заметки.
func (p *Proposal) ChangeStatus(newStatus valueobject.ProposalStatus, notes *string) error {
	if !p.Status.CanTransitionTo(newStatus) {
		return apperror.State("недопустимый переход статуса предложения из " + string(p.Status) + " в " + string(newStatus))
	}
	if notes != nil && utf8.RuneCountInString(*notes) > MaxClientNotesLength {
		return apperror.Validation([]apperror.FieldError{{Field: "clientNotes", Message: "заметки не должны превышать 1000 символов"}})
	}
	p.Status = newStatus
	if notes != nil {
		p.ClientNotes = notes
	}
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Proposal) IsOwnedBy(userID uuid.UUID) bool {
	return p.FreelancerID == userID
}

func (p *Proposal) IsPending() bool {
	return p.Status == valueobject.ProposalStatusPending
}

func (p *Proposal) IsAccepted() bool {
	return p.Status == valueobject.ProposalStatusAccepted
}
