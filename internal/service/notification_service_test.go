package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/pubsub"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

type fakeNotificationRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*models.Notification
	createErr error
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{items: make(map[uuid.UUID]*models.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	cp := *n
	r.items[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotificationNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) List(_ context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeNotificationRepo) MarkAsRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return repository.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *fakeNotificationRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return repository.ErrNotificationNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *fakeNotificationRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) DeleteReadOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.items {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(r.items, id)
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeEventPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakeEventPublisher) PublishNotification(_ context.Context, n *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n.Type)
	return p.err
}

func milestoneEvent(recipient uuid.UUID) entity.NotificationEvent {
	contractID := uuid.New()
	return entity.NotificationEvent{
		RecipientID: recipient,
		SenderID:    uuid.New(),
		Type:        valueobject.NotificationMilestoneSubmitted,
		ContractID:  &contractID,
		Message:     "Работа по этапу сдана",
	}
}

func TestNotificationService_Dispatch_PersistsAndPublishes(t *testing.T) {
	repo := newFakeNotificationRepo()
	broker := pubsub.NewMemoryBroker()
	defer broker.Close()
	publisher := &fakeEventPublisher{}

	svc := service.NewNotificationService(repo, broker)
	svc.SetEventPublisher(publisher)

	recipient := uuid.New()
	sub, err := broker.Subscribe(context.Background(), recipient)
	require.NoError(t, err)

	event := milestoneEvent(recipient)
	n, err := svc.Dispatch(context.Background(), event)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.len())
	assert.Equal(t, "MILESTONE_SUBMITTED", n.Type)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, event.SenderID, *n.SenderID)
	assert.Equal(t, event.ContractID, n.ContractID)
	assert.Equal(t, []string{"MILESTONE_SUBMITTED"}, publisher.published)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, service.EventNotification, ev.Type)
		var payload models.Notification
		require.NoError(t, json.Unmarshal(ev.Data, &payload))
		assert.Equal(t, n.ID, payload.ID)
	case <-time.After(time.Second):
		t.Fatal("realtime событие не доставлено")
	}
}

func TestNotificationService_Dispatch_FanOutFailureIsNotReturned(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := service.NewNotificationService(repo, nil)
	svc.SetEventPublisher(&fakeEventPublisher{err: errors.New("amqp down")})

	_, err := svc.Dispatch(context.Background(), milestoneEvent(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.len())
}

func TestNotificationService_Dispatch_StoreFailure(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.createErr = errors.New("db down")
	publisher := &fakeEventPublisher{}
	svc := service.NewNotificationService(repo, nil)
	svc.SetEventPublisher(publisher)

	_, err := svc.Dispatch(context.Background(), milestoneEvent(uuid.New()))
	require.Error(t, err)
	assert.Empty(t, publisher.published)
}

func TestNotificationService_Notify_DoesNotBlockAndSurvivesCancel(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := service.NewNotificationService(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	svc.Notify(ctx, milestoneEvent(uuid.New()))
	cancel()

	assert.Eventually(t, func() bool { return repo.len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestNotificationService_OwnerChecks(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := service.NewNotificationService(repo, nil)
	owner := uuid.New()
	stranger := uuid.New()

	n, err := svc.Dispatch(context.Background(), milestoneEvent(owner))
	require.NoError(t, err)

	err = svc.MarkAsRead(context.Background(), n.ID, stranger)
	assert.True(t, apperror.IsForbidden(err))

	err = svc.DeleteNotification(context.Background(), uuid.New(), owner)
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.MarkAsRead(context.Background(), n.ID, owner))
	count, err := svc.CountUnread(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, svc.DeleteNotification(context.Background(), n.ID, owner))
	assert.Equal(t, 0, repo.len())
}

func TestNotificationService_ListAndMarkAll(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := service.NewNotificationService(repo, nil)
	owner := uuid.New()
	for i := 0; i < 3; i++ {
		_, err := svc.Dispatch(context.Background(), milestoneEvent(owner))
		require.NoError(t, err)
	}

	items, total, err := svc.ListNotifications(context.Background(), owner, 2, 0, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 3, total)

	marked, err := svc.MarkAllAsRead(context.Background(), owner)
	require.NoError(t, err)
	assert.EqualValues(t, 3, marked)

	_, total, err = svc.ListNotifications(context.Background(), owner, 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestNotificationService_CleanupRead(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := service.NewNotificationService(repo, nil)
	owner := uuid.New()

	n, err := svc.Dispatch(context.Background(), milestoneEvent(owner))
	require.NoError(t, err)
	_, err = svc.Dispatch(context.Background(), milestoneEvent(owner))
	require.NoError(t, err)
	require.NoError(t, svc.MarkAsRead(context.Background(), n.ID, owner))

	deleted, err := svc.CleanupRead(context.Background(), -time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.Equal(t, 1, repo.len())
}

func TestNewCleanupScheduler_InvalidSpec(t *testing.T) {
	_, err := service.NewCleanupScheduler(newFakeNotificationRepoCleaner(), "not a cron", time.Hour)
	assert.Error(t, err)

	c, err := service.NewCleanupScheduler(newFakeNotificationRepoCleaner(), "0 3 * * *", time.Hour)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}

func newFakeNotificationRepoCleaner() service.NotificationCleaner {
	return service.NewNotificationService(newFakeNotificationRepo(), nil)
}
