package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
)

type BidAmount struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type ApplyRequest struct {
	CoverLetter       string    `json:"coverLetter"`
	BidAmount         BidAmount `json:"bidAmount"`
	EstimatedDuration string    `json:"estimatedDuration"`
}

type UpdateProposalStatusRequest struct {
	Status      string  `json:"status" binding:"required"`
	ClientNotes *string `json:"clientNotes"`
}

type ProposalResponse struct {
	ID                uuid.UUID `json:"id"`
	JobID             uuid.UUID `json:"job_id"`
	FreelancerID      uuid.UUID `json:"freelancer_id"`
	CoverLetter       string    `json:"cover_letter"`
	BidAmount         BidAmount `json:"bid_amount"`
	EstimatedDuration string    `json:"estimated_duration"`
	Status            string    `json:"status"`
	ClientNotes       *string   `json:"client_notes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func ToProposalResponse(proposal *entity.Proposal) ProposalResponse {
	return ProposalResponse{
		ID:           proposal.ID,
		JobID:        proposal.JobID,
		FreelancerID: proposal.FreelancerID,
		CoverLetter:  proposal.CoverLetter,
		BidAmount: BidAmount{
			Amount:   proposal.Bid.Amount,
			Currency: string(proposal.Bid.Currency),
		},
		EstimatedDuration: string(proposal.EstimatedDuration),
		Status:            string(proposal.Status),
		ClientNotes:       proposal.ClientNotes,
		CreatedAt:         proposal.CreatedAt,
		UpdatedAt:         proposal.UpdatedAt,
	}
}

func ToProposalResponses(proposals []*entity.Proposal) []ProposalResponse {
	responses := make([]ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		responses = append(responses, ToProposalResponse(proposal))
	}
	return responses
}
