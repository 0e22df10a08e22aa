package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/job"
)

type JobHandler struct {
	createJobUC *job.CreateJobUseCase
	getJobUC    *job.GetJobUseCase
	listJobsUC  *job.ListJobsUseCase
	hotJobsUC   *job.HotJobsUseCase
	myJobsUC    *job.MyJobsUseCase
	updateJobUC *job.UpdateJobUseCase
	deleteJobUC *job.DeleteJobUseCase
}

func NewJobHandler(
	createJobUC *job.CreateJobUseCase,
	getJobUC *job.GetJobUseCase,
	listJobsUC *job.ListJobsUseCase,
	hotJobsUC *job.HotJobsUseCase,
	myJobsUC *job.MyJobsUseCase,
	updateJobUC *job.UpdateJobUseCase,
	deleteJobUC *job.DeleteJobUseCase,
) *JobHandler {
	return &JobHandler{
		createJobUC: createJobUC,
		getJobUC:    getJobUC,
		listJobsUC:  listJobsUC,
		hotJobsUC:   hotJobsUC,
		myJobsUC:    myJobsUC,
		updateJobUC: updateJobUC,
		deleteJobUC: deleteJobUC,
	}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	var req dto.JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	created, err := h.createJobUC.Execute(c.Request.Context(), job.CreateJobInput{
		ClientID: userID,
		Role:     getUserRole(c),
		Fields:   req.Fields(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToJobResponse(created))
}

// ListJobs доступен гостям; для авторизованного фрилансера скрываются вакансии с его принятым откликом.
func (h *JobHandler) ListJobs(c *gin.Context) {
	callerID, _ := getUserID(c)

	limit := parseIntQuery(c, "limit", job.DefaultPageLimit)
	if limit <= 0 {
		limit = job.DefaultPageLimit
	}
	if limit > job.MaxPageLimit {
		limit = job.MaxPageLimit
	}
	offset := parseIntQuery(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	filter := repository.JobFilter{
		Search:          c.Query("search"),
		Category:        c.Query("category"),
		BudgetType:      c.Query("budgetType"),
		ExperienceLevel: c.Query("experienceLevel"),
		Location:        c.Query("location"),
		Timeline:        c.Query("timeline"),
		BudgetMin:       parseDecimalQuery(c, "budgetMin"),
		BudgetMax:       parseDecimalQuery(c, "budgetMax"),
		SortBy:          c.DefaultQuery("sortBy", "newest"),
		Limit:           limit,
		Offset:          offset,
	}

	jobs, total, err := h.listJobsUC.Execute(c.Request.Context(), filter, callerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToJobResponses(jobs), total, limit, offset)
}

func (h *JobHandler) HotJobs(c *gin.Context) {
	jobs, err := h.hotJobsUC.Execute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponses(jobs))
}

func (h *JobHandler) MyJobs(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		response.Unauthorized(c, "требуется авторизация")
		return
	}

	items, err := h.myJobsUC.Execute(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMyJobResponses(items))
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "некорректный ID вакансии")
		return
	}

	found, err := h.getJobUC.Execute(c.Request.Context(), jobID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponse(found))
}

func (h *JobHandler) UpdateJob(c *gin.Context) {
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

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	input := job.UpdateJobInput{JobID: jobID, ClientID: userID, Status: req.Status}
	if req.JobRequest != nil && req.Status == nil {
		fields := req.JobRequest.Fields()
		input.Fields = &fields
	}
	if input.Status == nil && input.Fields == nil {
		response.BadRequest(c, "нужно передать статус или поля вакансии")
		return
	}

	updated, err := h.updateJobUC.Execute(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToJobResponse(updated))
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
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

	if err := h.deleteJobUC.Execute(c.Request.Context(), jobID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, "вакансия удалена", nil)
}
