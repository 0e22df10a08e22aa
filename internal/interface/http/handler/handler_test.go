package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/contract"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/job"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/proposal"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/usecasetest"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Silence()
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code   string `json:"code"`
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	} `json:"error"`
	Warnings   json.RawMessage `json:"warnings"`
	Pagination *struct {
		Total int `json:"total"`
		Limit int `json:"limit"`
	} `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// withIdentity подставляет пользователя из заголовков вместо JWT.
func withIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := uuid.Parse(c.GetHeader("X-User")); err == nil {
			c.Set("user_id", id)
			c.Set("role", c.GetHeader("X-Role"))
		}
		c.Next()
	}
}

type server struct {
	router       *gin.Engine
	jobs         *usecasetest.JobRepository
	proposals    *usecasetest.ProposalRepository
	contracts    *usecasetest.ContractRepository
	files        *usecasetest.Files
	notifier     *usecasetest.Notifier
	clientID     uuid.UUID
	freelancerID uuid.UUID
}

func newServer() *server {
	s := &server{
		jobs:         usecasetest.NewJobRepository(),
		proposals:    usecasetest.NewProposalRepository(),
		files:        usecasetest.NewFiles(),
		notifier:     &usecasetest.Notifier{},
		clientID:     uuid.New(),
		freelancerID: uuid.New(),
	}
	s.contracts = usecasetest.NewContractRepository(s.jobs, s.proposals)

	jobHandler := handler.NewJobHandler(
		job.NewCreateJobUseCase(s.jobs),
		job.NewGetJobUseCase(s.jobs),
		job.NewListJobsUseCase(s.jobs),
		job.NewHotJobsUseCase(s.jobs),
		job.NewMyJobsUseCase(s.jobs, s.proposals),
		job.NewUpdateJobUseCase(s.jobs),
		job.NewDeleteJobUseCase(s.jobs, s.contracts),
	)
	proposalHandler := handler.NewProposalHandler(
		proposal.NewApplyToJobUseCase(s.proposals, s.jobs, s.notifier),
		proposal.NewUpdateProposalStatusUseCase(s.proposals, s.jobs, s.notifier),
		proposal.NewGetProposalUseCase(s.proposals, s.jobs),
		proposal.NewListJobProposalsUseCase(s.proposals, s.jobs),
		proposal.NewMyProposalsUseCase(s.proposals),
		proposal.NewWithdrawProposalUseCase(s.proposals),
	)
	limits := contract.UploadLimits{MaxFiles: 2, MaxFileSize: 1 << 10}
	contractHandler := handler.NewContractHandler(handler.ContractUseCases{
		Create:       contract.NewCreateContractUseCase(s.contracts, s.proposals, s.jobs, s.notifier),
		Fund:         contract.NewFundEscrowUseCase(s.contracts, s.notifier),
		Activate:     contract.NewActivateContractUseCase(s.contracts, s.notifier),
		AddMilestone: contract.NewAddMilestoneUseCase(s.contracts),
		Submit:       contract.NewSubmitWorkUseCase(s.contracts, s.files, s.notifier, limits),
		Review:       contract.NewReviewSubmissionUseCase(s.contracts, s.notifier),
		Release:      contract.NewReleasePaymentUseCase(s.contracts, s.notifier),
		Complete:     contract.NewCompleteContractUseCase(s.contracts, s.notifier),
		Get:          contract.NewGetContractUseCase(s.contracts),
		My:           contract.NewMyContractsUseCase(s.contracts),
		Download:     contract.NewDownloadFileUseCase(s.contracts, s.files),
	}, limits)

	r := gin.New()
	r.Use(withIdentity())
	r.GET("/jobs", jobHandler.ListJobs)
	r.POST("/jobs", jobHandler.CreateJob)
	r.POST("/jobs/:id/proposals", proposalHandler.Apply)
	r.GET("/proposals/:id", proposalHandler.GetProposal)
	r.POST("/contracts/proposal/:proposalId", contractHandler.Create)
	r.GET("/contracts/my", contractHandler.My)
	r.GET("/contracts/:id", contractHandler.Get)
	r.POST("/contracts/:id/fund", contractHandler.Fund)
	r.POST("/contracts/:id/milestones/:mid/submit", contractHandler.SubmitWork)
	r.GET("/contracts/:id/milestones/:mid/files/:fileId/download", contractHandler.Download)
	s.router = r
	return s
}

func (s *server) do(method, path string, userID uuid.UUID, role string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User", userID.String())
		req.Header.Set("X-Role", role)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *server) seedProposal(t *testing.T) *entity.Proposal {
	t.Helper()
	j, err := entity.NewJob(s.clientID, entity.JobFields{
		Title:           "Интеграция платежей",
		Description:     "Подключить эквайринг к магазину",
		Category:        string(valueobject.CategoryWebDevelopment),
		Skills:          []string{"Go"},
		BudgetMin:       decimal.NewFromInt(300),
		BudgetMax:       decimal.NewFromInt(500),
		BudgetType:      string(valueobject.BudgetTypeFixed),
		Timeline:        string(valueobject.TimelineOneMonth),
		ExperienceLevel: string(valueobject.ExperienceExpert),
	})
	require.NoError(t, err)
	require.NoError(t, s.jobs.Create(context.Background(), j))

	p, err := entity.NewProposal(j.ID, s.freelancerID, "Делал такое трижды", decimal.NewFromInt(400), "USD", string(valueobject.DurationLessThanMonth))
	require.NoError(t, err)
	require.NoError(t, s.proposals.Create(context.Background(), p))
	return p
}

func TestJobHandler_CreateReportsEveryInvalidField(t *testing.T) {
	s := newServer()

	w := s.do(http.MethodPost, "/jobs", s.clientID, "client", map[string]any{
		"title":    "",
		"category": "astrology",
		"budget":   map[string]any{"min": 500, "max": 100},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Greater(t, len(env.Error.Fields), 2)
}

func TestJobHandler_CreateRequiresClientRole(t *testing.T) {
	s := newServer()

	w := s.do(http.MethodPost, "/jobs", s.freelancerID, "freelancer", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/jobs", uuid.Nil, "", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJobHandler_ListIsPaginatedForGuests(t *testing.T) {
	s := newServer()
	s.seedProposal(t)

	w := s.do(http.MethodGet, "/jobs?limit=500", uuid.Nil, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.Total)
	assert.Equal(t, job.MaxPageLimit, env.Pagination.Limit)
}

func TestProposalHandler_ApplyTwiceConflicts(t *testing.T) {
	s := newServer()
	p := s.seedProposal(t)
	other := uuid.New()
	body := map[string]any{
		"coverLetter":       "Готов начать сегодня",
		"bidAmount":         map[string]any{"amount": "350", "currency": "USD"},
		"estimatedDuration": string(valueobject.DurationLessThanMonth),
	}

	w := s.do(http.MethodPost, "/jobs/"+p.JobID.String()+"/proposals", other, "freelancer", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/jobs/"+p.JobID.String()+"/proposals", other, "freelancer", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/proposals/"+p.ID.String(), other, "freelancer", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestContractHandler_SubmitAndDownload(t *testing.T) {
	s := newServer()
	p := s.seedProposal(t)

	w := s.do(http.MethodPost, "/contracts/proposal/"+p.ID.String(), s.clientID, "client", map[string]any{
		"title":       "Интеграция платежей",
		"scope":       "Эквайринг и вебхуки",
		"totalAmount": "400",
		"milestones": []map[string]any{{
			"title":       "Вебхуки",
			"description": "Обработка уведомлений банка",
			"amount":      "400",
			"dueDate":     "2030-01-15",
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID         uuid.UUID `json:"id"`
		Status     string    `json:"status"`
		Milestones []struct {
			ID uuid.UUID `json:"id"`
		} `json:"milestones"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "draft", created.Status)
	require.Len(t, created.Milestones, 1)

	base := "/contracts/" + created.ID.String()
	milestonePath := base + "/milestones/" + created.Milestones[0].ID.String()

	w = s.do(http.MethodPost, base+"/fund", s.clientID, "client", map[string]any{"amount": "400"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s.files.FailNames["broken.pdf"] = true
	body, contentType := multipartBody(t, "Готово, проверьте", map[string][]byte{
		"report.pdf": []byte("%PDF-1.4 отчёт"),
		"broken.pdf": []byte("%PDF-1.4"),
	})
	req := httptest.NewRequest(http.MethodPost, milestonePath+"/submit", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User", s.freelancerID.String())
	req.Header.Set("X-Role", "freelancer")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decode(t, w)
	assert.JSONEq(t, `{"failedFiles":["broken.pdf"]}`, string(env.Warnings))

	var submitted struct {
		Milestone struct {
			Status            string `json:"status"`
			CurrentSubmission struct {
				Files []struct {
					ID uuid.UUID `json:"id"`
				} `json:"files"`
			} `json:"current_submission"`
		} `json:"milestone"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	assert.Equal(t, "submitted", submitted.Milestone.Status)
	require.Len(t, submitted.Milestone.CurrentSubmission.Files, 1)
	fileID := submitted.Milestone.CurrentSubmission.Files[0].ID

	w = s.do(http.MethodGet, milestonePath+"/files/"+fileID.String()+"/download", s.clientID, "client", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Equal(t, "%PDF-1.4 отчёт", w.Body.String())

	w = s.do(http.MethodGet, milestonePath+"/files/"+uuid.NewString()+"/download", s.clientID, "client", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContractHandler_StrangerIsForbidden(t *testing.T) {
	s := newServer()
	p := s.seedProposal(t)

	w := s.do(http.MethodPost, "/contracts/proposal/"+p.ID.String(), s.clientID, "client", map[string]any{
		"title":       "Интеграция",
		"totalAmount": "400",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))

	stranger := uuid.New()
	w = s.do(http.MethodGet, "/contracts/"+created.ID.String(), stranger, "client", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/contracts/"+created.ID.String()+"/fund", stranger, "client", map[string]any{"amount": "10"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/contracts/my?role=freelancer", s.freelancerID, "freelancer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode(t, w).Pagination.Total)
}

func TestContractHandler_SubmitRejectsTooManyFiles(t *testing.T) {
	s := newServer()

	body, contentType := multipartBody(t, "", map[string][]byte{
		"a.pdf": []byte("1"),
		"b.pdf": []byte("2"),
		"c.pdf": []byte("3"),
	})
	req := httptest.NewRequest(http.MethodPost, "/contracts/"+uuid.NewString()+"/milestones/"+uuid.NewString()+"/submit", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User", s.freelancerID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w).Error.Code)
}

func multipartBody(t *testing.T, comments string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		h.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if comments != "" {
		require.NoError(t, mw.WriteField("comments", comments))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}
