package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/contract"
)

// multipartOverhead запас на заголовки частей и поле comments поверх суммарного размера файлов.
const multipartOverhead = 1 << 20

type ContractHandler struct {
	createUC       *contract.CreateContractUseCase
	fundUC         *contract.FundEscrowUseCase
	activateUC     *contract.ActivateContractUseCase
	addMilestoneUC *contract.AddMilestoneUseCase
	submitUC       *contract.SubmitWorkUseCase
	reviewUC       *contract.ReviewSubmissionUseCase
	releaseUC      *contract.ReleasePaymentUseCase
	completeUC     *contract.CompleteContractUseCase
	getUC          *contract.GetContractUseCase
	myUC           *contract.MyContractsUseCase
	downloadUC     *contract.DownloadFileUseCase
	limits         contract.UploadLimits
}

type ContractUseCases struct {
	Create       *contract.CreateContractUseCase
	Fund         *contract.FundEscrowUseCase
	Activate     *contract.ActivateContractUseCase
	AddMilestone *contract.AddMilestoneUseCase
	Submit       *contract.SubmitWorkUseCase
	Review       *contract.ReviewSubmissionUseCase
	Release      *contract.ReleasePaymentUseCase
	Complete     *contract.CompleteContractUseCase
	Get          *contract.GetContractUseCase
	My           *contract.MyContractsUseCase
	Download     *contract.DownloadFileUseCase
}

func NewContractHandler(uc ContractUseCases, limits contract.UploadLimits) *ContractHandler {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = contract.DefaultUploadLimits.MaxFiles
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = contract.DefaultUploadLimits.MaxFileSize
	}
	return &ContractHandler{
		createUC:       uc.Create,
		fundUC:         uc.Fund,
		activateUC:     uc.Activate,
		addMilestoneUC: uc.AddMilestone,
		submitUC:       uc.Submit,
		reviewUC:       uc.Review,
		releaseUC:      uc.Release,
		completeUC:     uc.Complete,
		getUC:          uc.Get,
		myUC:           uc.My,
		downloadUC:     uc.Download,
		limits:         limits,
	}
}

func (h *ContractHandler) Create(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	proposalID, err := uuid.Parse(c.Param("proposalId"))
	if err != nil {
		response.BadRequest(c, "некорректный ID отклика")
		return
	}

	var req dto.CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	terms, err := req.ContractTerms()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), contract.CreateContractInput{
		ProposalID: proposalID,
		ClientID:   userID,
		Terms:      terms,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToContractResponse(created))
}

func (h *ContractHandler) Fund(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}

	var req dto.FundEscrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	updated, err := h.fundUC.Execute(c.Request.Context(), contractID, userID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(updated))
}

func (h *ContractHandler) Activate(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}

	updated, err := h.activateUC.Execute(c.Request.Context(), contractID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(updated))
}

func (h *ContractHandler) AddMilestone(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}

	var req dto.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	input, err := req.Input()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	m, err := h.addMilestoneUC.Execute(c.Request.Context(), contractID, userID, input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToMilestoneResponse(m))
}

// SubmitWork принимает multipart: поля files (до MaxFiles штук) и comments.
func (h *ContractHandler) SubmitWork(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}
	milestoneID, ok := parseMilestoneID(c)
	if !ok {
		return
	}

	maxBody := int64(h.limits.MaxFiles)*h.limits.MaxFileSize + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.Validation([]apperror.FieldError{{
				Field:   "files",
				Message: fmt.Sprintf("суммарный размер файлов превышает %d МБ", maxBody>>20),
			}}))
			return
		}
		response.BadRequest(c, "ожидается multipart/form-data")
		return
	}

	files, err := h.readUploads(form.File["files"])
	if err != nil {
		response.Error(c, err)
		return
	}

	out, err := h.submitUC.Execute(c.Request.Context(), contract.SubmitWorkInput{
		ContractID:   contractID,
		MilestoneID:  milestoneID,
		FreelancerID: userID,
		Files:        files,
		Comments:     strings.Join(form.Value["comments"], "\n"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	data := dto.SubmitWorkResponse{
		Contract:  dto.ToContractResponse(out.Contract),
		Milestone: dto.ToMilestoneResponse(out.Milestone),
	}
	if len(out.FailedFiles) > 0 {
		response.CreatedWithWarnings(c, data, dto.SubmitWarnings{FailedFiles: out.FailedFiles})
		return
	}
	response.Created(c, data)
}

// readUploads читает не больше MaxFileSize+1 байт на файл, чтобы лимит проверялся без полной загрузки.
func (h *ContractHandler) readUploads(headers []*multipart.FileHeader) ([]contract.UploadFile, error) {
	if len(headers) > h.limits.MaxFiles {
		return nil, apperror.Validation([]apperror.FieldError{{
			Field:   "files",
			Message: fmt.Sprintf("можно загрузить не более %d файлов", h.limits.MaxFiles),
		}})
	}

	files := make([]contract.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл "+fh.Filename)
		}
		data, err := io.ReadAll(io.LimitReader(f, h.limits.MaxFileSize+1))
		_ = f.Close()
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, "не удалось прочитать файл "+fh.Filename)
		}
		files = append(files, contract.UploadFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

func (h *ContractHandler) Review(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}
	milestoneID, ok := parseMilestoneID(c)
	if !ok {
		return
	}

	var req dto.ReviewSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	m, err := h.reviewUC.Execute(c.Request.Context(), contract.ReviewInput{
		ContractID:  contractID,
		MilestoneID: milestoneID,
		ClientID:    userID,
		Status:      req.Status,
		Feedback:    req.Feedback,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMilestoneResponse(m))
}

func (h *ContractHandler) Release(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}
	milestoneID, ok := parseMilestoneID(c)
	if !ok {
		return
	}

	updated, err := h.releaseUC.Execute(c.Request.Context(), contractID, milestoneID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(updated))
}

func (h *ContractHandler) Complete(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}

	updated, err := h.completeUC.Execute(c.Request.Context(), contractID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(updated))
}

func (h *ContractHandler) Get(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}

	found, err := h.getUC.Execute(c.Request.Context(), contractID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToContractResponse(found))
}

func (h *ContractHandler) My(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	limit := parseIntQuery(c, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	contracts, total, err := h.myUC.Execute(c.Request.Context(), repository.ContractFilter{
		UserID: userID,
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToContractResponses(contracts), total, limit, offset)
}

func (h *ContractHandler) Download(c *gin.Context) {
	userID, contractID, ok := h.callerAndContract(c)
	if !ok {
		return
	}
	milestoneID, ok := parseMilestoneID(c)
	if !ok {
		return
	}
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.BadRequest(c, "некорректный ID файла")
		return
	}

	file, err := h.downloadUC.Execute(c.Request.Context(), contractID, milestoneID, fileID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Body.Close()

	filename := strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(file.File.Filename)
	c.DataFromReader(http.StatusOK, file.Length, file.File.MimeType, file.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename),
		"Cache-Control":       "no-cache",
	})
}

func (h *ContractHandler) callerAndContract(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return uuid.Nil, uuid.Nil, false
	}

	contractID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID контракта")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, contractID, true
}

func parseMilestoneID(c *gin.Context) (uuid.UUID, bool) {
	milestoneID, err := uuid.Parse(c.Param("mid"))
	if err != nil {
		response.BadRequest(c, "некорректный ID этапа")
		return uuid.Nil, false
	}
	return milestoneID, true
}
