package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/proposal"
)

type ProposalHandler struct {
	applyUC        *proposal.ApplyToJobUseCase
	updateStatusUC *proposal.UpdateProposalStatusUseCase
	getProposalUC  *proposal.GetProposalUseCase
	listForJobUC   *proposal.ListJobProposalsUseCase
	myProposalsUC  *proposal.MyProposalsUseCase
	withdrawUC     *proposal.WithdrawProposalUseCase
}

func NewProposalHandler(
	applyUC *proposal.ApplyToJobUseCase,
	updateStatusUC *proposal.UpdateProposalStatusUseCase,
	getProposalUC *proposal.GetProposalUseCase,
	listForJobUC *proposal.ListJobProposalsUseCase,
	myProposalsUC *proposal.MyProposalsUseCase,
	withdrawUC *proposal.WithdrawProposalUseCase,
) *ProposalHandler {
	return &ProposalHandler{
		applyUC:        applyUC,
		updateStatusUC: updateStatusUC,
		getProposalUC:  getProposalUC,
		listForJobUC:   listForJobUC,
		myProposalsUC:  myProposalsUC,
		withdrawUC:     withdrawUC,
	}
}

func (h *ProposalHandler) Apply(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID вакансии")
		return
	}

	var req dto.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.applyUC.Execute(c.Request.Context(), proposal.ApplyInput{
		JobID:             jobID,
		FreelancerID:      userID,
		Role:              getUserRole(c),
		CoverLetter:       req.CoverLetter,
		BidAmount:         req.BidAmount.Amount,
		BidCurrency:       req.BidAmount.Currency,
		EstimatedDuration: req.EstimatedDuration,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToProposalResponse(created))
}

func (h *ProposalHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID отклика")
		return
	}

	var req dto.UpdateProposalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	updated, err := h.updateStatusUC.Execute(c.Request.Context(), proposal.UpdateStatusInput{
		ProposalID: proposalID,
		ClientID:   userID,
		Status:     req.Status,
		Notes:      req.ClientNotes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponse(updated))
}

func (h *ProposalHandler) GetProposal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID отклика")
		return
	}

	p, err := h.getProposalUC.Execute(c.Request.Context(), proposalID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponse(p))
}

func (h *ProposalHandler) ListForJob(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID вакансии")
		return
	}

	proposals, err := h.listForJobUC.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponses(proposals))
}

func (h *ProposalHandler) ListMy(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposals, err := h.myProposalsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToProposalResponses(proposals))
}

func (h *ProposalHandler) Withdraw(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID отклика")
		return
	}

	if err := h.withdrawUC.Execute(c.Request.Context(), proposalID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "отклик отозван", nil)
}
