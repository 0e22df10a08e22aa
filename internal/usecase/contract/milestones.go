package contract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
)

// AllowedMimeTypes типы файлов, которые принимаются в сдаче работы.
var AllowedMimeTypes = mimeSet(
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/jpeg",
	"image/png",
	"image/gif",
	"video/mp4",
	"text/plain",
)

func mimeSet(types ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// FileStorage хранилище файлов сдачи работы.
type FileStorage interface {
	Save(ctx context.Context, contractID uuid.UUID, filename string, data []byte) (string, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, int64, error)
	DetectContentType(data []byte, declared string) string
}

type UploadLimits struct {
	MaxFiles    int
	MaxFileSize int64
}

// DefaultUploadLimits не больше 10 файлов по 5 МБ.
var DefaultUploadLimits = UploadLimits{MaxFiles: 10, MaxFileSize: 5 << 20}

type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type AddMilestoneUseCase struct {
	contractRepo repository.ContractRepository
}

func NewAddMilestoneUseCase(contractRepo repository.ContractRepository) *AddMilestoneUseCase {
	return &AddMilestoneUseCase{contractRepo: contractRepo}
}

func (uc *AddMilestoneUseCase) Execute(ctx context.Context, contractID, clientID uuid.UUID, input entity.MilestoneInput) (*entity.Milestone, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, contractID, clientID)
	if err != nil {
		return nil, err
	}
	m, err := c.AddMilestone(input)
	if err != nil {
		return nil, err
	}
	if err := uc.contractRepo.AddMilestone(ctx, m, c.Status); err != nil {
		return nil, err
	}
	return m, nil
}

type SubmitWorkInput struct {
	ContractID   uuid.UUID
	MilestoneID  uuid.UUID
	FreelancerID uuid.UUID
	Files        []UploadFile
	Comments     string
}

type SubmitWorkOutput struct {
	Contract    *entity.Contract
	Milestone   *entity.Milestone
	FailedFiles []string
}

type SubmitWorkUseCase struct {
	contractRepo repository.ContractRepository
	files        FileStorage
	notifier     repository.Notifier
	limits       UploadLimits
	now          func() time.Time
}

func NewSubmitWorkUseCase(contractRepo repository.ContractRepository, files FileStorage, notifier repository.Notifier, limits UploadLimits) *SubmitWorkUseCase {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = DefaultUploadLimits.MaxFiles
	}
	if limits.MaxFileSize <= 0 {
		limits.MaxFileSize = DefaultUploadLimits.MaxFileSize
	}
	return &SubmitWorkUseCase{
		contractRepo: contractRepo,
		files:        files,
		notifier:     notifier,
		limits:       limits,
		now:          time.Now,
	}
}

func (uc *SubmitWorkUseCase) Execute(ctx context.Context, input SubmitWorkInput) (*SubmitWorkOutput, error) {
	c, err := loadAsFreelancer(ctx, uc.contractRepo, input.ContractID, input.FreelancerID)
	if err != nil {
		return nil, err
	}
	m, err := c.Milestone(input.MilestoneID)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransitionTo(valueobject.MilestoneStatusSubmitted) {
		return nil, apperror.State("сдать работу по этапу в статусе " + string(m.Status) + " нельзя")
	}

	types, err := uc.checkFiles(input.Files)
	if err != nil {
		return nil, err
	}

	stored := make([]entity.SubmittedFile, 0, len(input.Files))
	var failed []string
	for i, f := range input.Files {
		key, err := uc.files.Save(ctx, c.ID, f.Filename, f.Data)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"contract_id": c.ID,
				"filename":    f.Filename,
				"error":       err,
			}).Warn("не удалось сохранить файл сдачи")
			failed = append(failed, f.Filename)
			continue
		}
		stored = append(stored, entity.SubmittedFile{
			ID:         uuid.New(),
			Filename:   f.Filename,
			StorageKey: key,
			MimeType:   types[i],
			Size:       int64(len(f.Data)),
		})
	}
	if len(input.Files) > 0 && len(stored) == 0 {
		return nil, apperror.New(apperror.ErrCodeStorage, "не удалось сохранить ни один файл")
	}

	from, fromSubmission := m.Status, m.CurrentSubmissionID()
	if err := m.Submit(stored, strings.TrimSpace(input.Comments), uc.now()); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.SaveMilestoneSubmission(ctx, m, from, fromSubmission); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("submit").Inc()

	uc.notifier.Notify(ctx, entity.NotificationEvent{
		RecipientID: c.ClientID,
		SenderID:    c.FreelancerID,
		Type:        valueobject.NotificationMilestoneSubmitted,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Работа по этапу «" + m.Title + "» сдана на проверку",
	})

	return &SubmitWorkOutput{Contract: c, Milestone: m, FailedFiles: failed}, nil
}

// checkFiles проверяет лимиты до любой записи в хранилище.
func (uc *SubmitWorkUseCase) checkFiles(files []UploadFile) ([]string, error) {
	if len(files) > uc.limits.MaxFiles {
		return nil, apperror.Validation([]apperror.FieldError{{
			Field:   "files",
			Message: fmt.Sprintf("можно загрузить не более %d файлов", uc.limits.MaxFiles),
		}})
	}
	types := make([]string, len(files))
	var errs []apperror.FieldError
	for i, f := range files {
		if int64(len(f.Data)) > uc.limits.MaxFileSize {
			errs = append(errs, apperror.FieldError{
				Field:   f.Filename,
				Message: fmt.Sprintf("размер файла превышает %d МБ", uc.limits.MaxFileSize>>20),
			})
			continue
		}
		types[i] = uc.files.DetectContentType(f.Data, f.ContentType)
		if _, ok := AllowedMimeTypes[types[i]]; !ok {
			errs = append(errs, apperror.FieldError{Field: f.Filename, Message: "недопустимый тип файла " + types[i]})
		}
	}
	if len(errs) > 0 {
		return nil, apperror.Validation(errs)
	}
	return types, nil
}

type ReviewInput struct {
	ContractID  uuid.UUID
	MilestoneID uuid.UUID
	ClientID    uuid.UUID
	Status      string
	Feedback    string
}

type ReviewSubmissionUseCase struct {
	contractRepo repository.ContractRepository
	notifier     repository.Notifier
	now          func() time.Time
}

func NewReviewSubmissionUseCase(contractRepo repository.ContractRepository, notifier repository.Notifier) *ReviewSubmissionUseCase {
	return &ReviewSubmissionUseCase{contractRepo: contractRepo, notifier: notifier, now: time.Now}
}

func (uc *ReviewSubmissionUseCase) Execute(ctx context.Context, input ReviewInput) (*entity.Milestone, error) {
	c, err := loadAsClient(ctx, uc.contractRepo, input.ContractID, input.ClientID)
	if err != nil {
		return nil, err
	}
	m, err := c.Milestone(input.MilestoneID)
	if err != nil {
		return nil, err
	}

	decision := valueobject.SubmissionStatus(input.Status)
	from, fromSubmission := m.Status, m.CurrentSubmissionID()
	if err := m.Review(decision, strings.TrimSpace(input.Feedback), uc.now()); err != nil {
		return nil, err
	}
	if err := uc.contractRepo.SaveMilestoneSubmission(ctx, m, from, fromSubmission); err != nil {
		return nil, err
	}
	metrics.ContractTransitions.WithLabelValues("review_" + string(decision)).Inc()

	event := entity.NotificationEvent{
		RecipientID: c.FreelancerID,
		SenderID:    c.ClientID,
		Type:        valueobject.NotificationMilestoneApproved,
		JobID:       &c.JobID,
		ContractID:  &c.ID,
		Message:     "Этап «" + m.Title + "» принят",
	}
	if decision == valueobject.SubmissionStatusChangesRequested {
		event.Type = valueobject.NotificationMilestoneChangesRequested
		event.Message = "По этапу «" + m.Title + "» запрошены доработки"
	}
	uc.notifier.Notify(ctx, event)

	return m, nil
}
