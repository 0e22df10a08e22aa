package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
	"github.com/ignatzorin/freelance-marketplace/internal/usecase/usecasetest"
)

type fakePostRepo struct {
	posts     map[uuid.UUID]*models.Post
	likes     map[uuid.UUID]map[uuid.UUID]bool
	comments  map[uuid.UUID][]models.PostComment
	reactions map[uuid.UUID]map[uuid.UUID]models.PostReaction
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{
		posts:     make(map[uuid.UUID]*models.Post),
		likes:     make(map[uuid.UUID]map[uuid.UUID]bool),
		comments:  make(map[uuid.UUID][]models.PostComment),
		reactions: make(map[uuid.UUID]map[uuid.UUID]models.PostReaction),
	}
}

func (r *fakePostRepo) Create(_ context.Context, post *models.Post) error {
	post.ID = uuid.New()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *fakePostRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrPostNotFound
	}
	cp := *p
	cp.LikeCount = len(r.likes[id])
	cp.CommentCount = len(r.comments[id])
	return &cp, nil
}

func (r *fakePostRepo) List(_ context.Context, postType string, limit, offset int) ([]models.Post, int, error) {
	var out []models.Post
	for _, p := range r.posts {
		if postType == "" || p.PostType == postType {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

func (r *fakePostRepo) IncrementViews(_ context.Context, id uuid.UUID) error {
	if p, ok := r.posts[id]; ok {
		p.Views++
	}
	return nil
}

func (r *fakePostRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.posts[id]; !ok {
		return repository.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *fakePostRepo) ToggleLike(_ context.Context, postID, userID uuid.UUID) (bool, int, error) {
	if r.likes[postID] == nil {
		r.likes[postID] = make(map[uuid.UUID]bool)
	}
	if r.likes[postID][userID] {
		delete(r.likes[postID], userID)
		return false, len(r.likes[postID]), nil
	}
	r.likes[postID][userID] = true
	return true, len(r.likes[postID]), nil
}

func (r *fakePostRepo) AddComment(_ context.Context, c *models.PostComment) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	r.comments[c.PostID] = append(r.comments[c.PostID], *c)
	return nil
}

func (r *fakePostRepo) ListComments(_ context.Context, postID uuid.UUID) ([]models.PostComment, error) {
	return r.comments[postID], nil
}

func (r *fakePostRepo) UpsertReaction(_ context.Context, reaction *models.PostReaction) error {
	if r.reactions[reaction.PostID] == nil {
		r.reactions[reaction.PostID] = make(map[uuid.UUID]models.PostReaction)
	}
	reaction.CreatedAt = time.Now()
	r.reactions[reaction.PostID][reaction.UserID] = *reaction
	return nil
}

func (r *fakePostRepo) ListReactions(_ context.Context, postID uuid.UUID) ([]models.PostReaction, error) {
	out := []models.PostReaction{}
	for _, reaction := range r.reactions[postID] {
		out = append(out, reaction)
	}
	return out, nil
}

func TestPostService_Create_Validation(t *testing.T) {
	svc := service.NewPostService(newFakePostRepo(), &usecasetest.Notifier{})

	_, err := svc.Create(context.Background(), uuid.New(), service.CreatePostInput{
		Content:  strings.Repeat("я", models.MaxPostLength+1),
		PostType: "meme",
	})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.ErrCodeValidation, appErr.Code)
	assert.Len(t, appErr.Fields, 2)
}

func TestPostService_Create_Defaults(t *testing.T) {
	svc := service.NewPostService(newFakePostRepo(), &usecasetest.Notifier{})

	post, err := svc.Create(context.Background(), uuid.New(), service.CreatePostInput{
		Content: "  Ищу проект на Go  ",
		Tags:    []string{" Go ", "", "Backend"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.PostTypeGeneral, post.PostType)
	assert.Equal(t, "Ищу проект на Go", post.Content)
	assert.Equal(t, []string{"go", "backend"}, []string(post.Tags))
}

func TestPostService_ToggleLike_NotifiesOnlyOthers(t *testing.T) {
	notifier := &usecasetest.Notifier{}
	svc := service.NewPostService(newFakePostRepo(), notifier)
	author := uuid.New()
	fan := uuid.New()

	post, err := svc.Create(context.Background(), author, service.CreatePostInput{Content: "Новый кейс"})
	require.NoError(t, err)

	res, err := svc.ToggleLike(context.Background(), post.ID, author)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Empty(t, notifier.Types())

	res, err = svc.ToggleLike(context.Background(), post.ID, fan)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 2, res.LikeCount)
	assert.Equal(t, []valueobject.NotificationType{valueobject.NotificationPostLiked}, notifier.Types())

	res, err = svc.ToggleLike(context.Background(), post.ID, fan)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 1, res.LikeCount)
	assert.Len(t, notifier.Types(), 1)
}

func TestPostService_CommentAndReact(t *testing.T) {
	notifier := &usecasetest.Notifier{}
	svc := service.NewPostService(newFakePostRepo(), notifier)
	author := uuid.New()
	reader := uuid.New()

	post, err := svc.Create(context.Background(), author, service.CreatePostInput{Content: "Статья", PostType: models.PostTypeArticle})
	require.NoError(t, err)

	_, err = svc.Comment(context.Background(), post.ID, reader, "   ")
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Comment(context.Background(), post.ID, reader, "Отличный текст")
	require.NoError(t, err)

	_, err = svc.React(context.Background(), post.ID, reader, "🔥")
	require.NoError(t, err)
	_, err = svc.React(context.Background(), post.ID, reader, "👍")
	require.NoError(t, err)

	reactions, err := svc.Reactions(context.Background(), post.ID)
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "👍", reactions[0].Kind)

	assert.Equal(t, []valueobject.NotificationType{
		valueobject.NotificationPostCommented,
		valueobject.NotificationPostReaction,
		valueobject.NotificationPostReaction,
	}, notifier.Types())
}

func TestPostService_GetCountsViewAndDeleteByAuthorOnly(t *testing.T) {
	svc := service.NewPostService(newFakePostRepo(), nil)
	author := uuid.New()

	post, err := svc.Create(context.Background(), author, service.CreatePostInput{Content: "Свободен для проектов", PostType: models.PostTypeAvailability})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)

	err = svc.Delete(context.Background(), post.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, svc.Delete(context.Background(), post.ID, author))

	_, err = svc.Get(context.Background(), post.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestPostService_List_UnknownType(t *testing.T) {
	svc := service.NewPostService(newFakePostRepo(), nil)

	_, _, err := svc.List(context.Background(), "meme", 10, 0)
	assert.True(t, apperror.IsValidation(err))
}
