package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/goroutine"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/metrics"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/pubsub"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
)

// EventNotification тип realtime события с новым уведомлением.
const EventNotification = "notification"

const dispatchTimeout = 10 * time.Second

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// EventPublisher внешняя шина доменных событий.
type EventPublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
}

// NotificationService сохраняет уведомления и раздаёт их подписчикам.
type NotificationService struct {
	repo   NotificationRepository
	broker pubsub.Broker
	events EventPublisher
}

// NewNotificationService создаёт сервис уведомлений. broker может быть nil.
func NewNotificationService(repo NotificationRepository, broker pubsub.Broker) *NotificationService {
	return &NotificationService{repo: repo, broker: broker}
}

// SetEventPublisher включает публикацию событий во внешнюю шину.
func (s *NotificationService) SetEventPublisher(p EventPublisher) {
	s.events = p
}

// Notify ставит доставку в фон и сразу возвращает управление.
func (s *NotificationService) Notify(ctx context.Context, event entity.NotificationEvent) {
	detached := context.WithoutCancel(ctx)
	goroutine.SafeGo(func() {
		dispatchCtx, cancel := context.WithTimeout(detached, dispatchTimeout)
		defer cancel()
		_, _ = s.Dispatch(dispatchCtx, event)
	})
}

// Dispatch сохраняет ровно одно уведомление, затем публикует его в realtime и во внешнюю шину.
// Ошибки публикации только логируются.
func (s *NotificationService) Dispatch(ctx context.Context, event entity.NotificationEvent) (*models.Notification, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"recipient_id": event.RecipientID,
		"type":         string(event.Type),
	})

	n := &models.Notification{
		UserID:     event.RecipientID,
		Type:       string(event.Type),
		JobID:      event.JobID,
		ProposalID: event.ProposalID,
		ContractID: event.ContractID,
		PostID:     event.PostID,
		Message:    event.Message,
	}
	if event.SenderID != uuid.Nil {
		sender := event.SenderID
		n.SenderID = &sender
	}

	if err := s.repo.Create(ctx, n); err != nil {
		metrics.NotificationsDispatched.WithLabelValues(n.Type, "failed").Inc()
		log.WithError(err).Error("notification service: не удалось сохранить уведомление")
		return nil, err
	}
	metrics.NotificationsDispatched.WithLabelValues(n.Type, "stored").Inc()

	if s.broker != nil {
		if ev, err := pubsub.NewEvent(EventNotification, n); err != nil {
			log.WithError(err).Warn("notification service: не удалось собрать realtime событие")
		} else if err := s.broker.Publish(ctx, n.UserID, ev); err != nil {
			log.WithError(err).Warn("notification service: не удалось опубликовать realtime событие")
		}
	}

	if s.events != nil {
		if err := s.events.PublishNotification(ctx, n); err != nil {
			log.WithError(err).Warn("notification service: не удалось опубликовать доменное событие")
		}
	}

	return n, nil
}

// ListNotifications возвращает страницу уведомлений пользователя и их общее число.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.repo.List(ctx, userID, limit, offset, unreadOnly)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомления")
	}
	return items, total, nil
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.MarkAsRead(ctx, id); err != nil {
		return s.mapErr(err, "не удалось отметить уведомление")
	}
	return nil
}

// MarkAllAsRead отмечает все уведомления пользователя как прочитанные.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отметить уведомления")
	}
	return n, nil
}

// DeleteNotification удаляет уведомление.
func (s *NotificationService) DeleteNotification(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err, "не удалось удалить уведомление")
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать уведомления")
	}
	return count, nil
}

// CleanupRead удаляет прочитанные уведомления старше retention.
func (s *NotificationService) CleanupRead(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.DeleteReadOlderThan(ctx, time.Now().Add(-retention))
}

func (s *NotificationService) owned(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "не удалось получить уведомление")
	}
	if n.UserID != userID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "у вас нет прав на это уведомление")
	}
	return n, nil
}

func (s *NotificationService) mapErr(err error, message string) error {
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return apperror.New(apperror.ErrCodeNotFound, "уведомление не найдено")
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
