package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/freelance-marketplace/internal/domain/entity"
	domainrepo "github.com/ignatzorin/freelance-marketplace/internal/domain/repository"
	"github.com/ignatzorin/freelance-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/freelance-marketplace/internal/logger"
	"github.com/ignatzorin/freelance-marketplace/internal/models"
	"github.com/ignatzorin/freelance-marketplace/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-marketplace/internal/repository"
)

const (
	maxPostTags       = 10
	maxCommentLength  = 1000
	defaultPostsLimit = 20
	maxPostsLimit     = 100
)

// PostRepository хранилище публикаций ленты.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	List(ctx context.Context, postType string, limit, offset int) ([]models.Post, int, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ToggleLike(ctx context.Context, postID, userID uuid.UUID) (bool, int, error)
	AddComment(ctx context.Context, comment *models.PostComment) error
	ListComments(ctx context.Context, postID uuid.UUID) ([]models.PostComment, error)
	UpsertReaction(ctx context.Context, reaction *models.PostReaction) error
	ListReactions(ctx context.Context, postID uuid.UUID) ([]models.PostReaction, error)
}

type CreatePostInput struct {
	Content  string
	PostType string
	Tags     []string
}

// LikeResult состояние лайка после переключения.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// PostService лента публикаций пользователей.
type PostService struct {
	repo     PostRepository
	notifier domainrepo.Notifier
}

func NewPostService(repo PostRepository, notifier domainrepo.Notifier) *PostService {
	return &PostService{repo: repo, notifier: notifier}
}

// Create публикует запись от имени автора.
func (s *PostService) Create(ctx context.Context, authorID uuid.UUID, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	postType := in.PostType
	if postType == "" {
		postType = models.PostTypeGeneral
	}

	var violations []apperror.FieldError
	if content == "" {
		violations = append(violations, apperror.FieldError{Field: "content", Message: "текст публикации обязателен"})
	} else if utf8.RuneCountInString(content) > models.MaxPostLength {
		violations = append(violations, apperror.FieldError{Field: "content", Message: "текст публикации слишком длинный"})
	}
	if _, ok := models.ValidPostTypes[postType]; !ok {
		violations = append(violations, apperror.FieldError{Field: "post_type", Message: "неизвестный тип публикации"})
	}
	tags := make([]string, 0, len(in.Tags))
	for _, tag := range in.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) > maxPostTags {
		violations = append(violations, apperror.FieldError{Field: "tags", Message: "слишком много тегов"})
	}
	if len(violations) > 0 {
		return nil, apperror.Validation(violations)
	}

	post := &models.Post{
		AuthorID: authorID,
		Content:  content,
		PostType: postType,
		Tags:     tags,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать публикацию")
	}

	logger.Log.WithFields(logrus.Fields{
		"post_id":   post.ID,
		"author_id": authorID,
		"post_type": postType,
	}).Info("post service: публикация создана")

	return post, nil
}

// List возвращает ленту, при непустом postType только этого типа.
func (s *PostService) List(ctx context.Context, postType string, limit, offset int) ([]models.Post, int, error) {
	if postType != "" {
		if _, ok := models.ValidPostTypes[postType]; !ok {
			return nil, 0, apperror.Validation([]apperror.FieldError{{Field: "type", Message: "неизвестный тип публикации"}})
		}
	}
	if limit <= 0 {
		limit = defaultPostsLimit
	}
	if limit > maxPostsLimit {
		limit = maxPostsLimit
	}
	if offset < 0 {
		offset = 0
	}

	posts, total, err := s.repo.List(ctx, postType, limit, offset)
	if err != nil {
		return nil, 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить ленту")
	}
	return posts, total, nil
}

// Get возвращает публикацию и засчитывает просмотр.
func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		logger.Log.WithError(err).WithField("post_id", id).Warn("post service: не удалось учесть просмотр")
	} else {
		post.Views++
	}
	return post, nil
}

// Delete удаляет публикацию. Доступно только автору.
func (s *PostService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return apperror.New(apperror.ErrCodeForbidden, "удалить публикацию может только автор")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err, "не удалось удалить публикацию")
	}
	return nil
}

// ToggleLike ставит или снимает лайк. Автор получает уведомление о новом лайке чужого пользователя.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uuid.UUID) (*LikeResult, error) {
	post, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked, count, err := s.repo.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить лайк")
	}

	if liked && post.AuthorID != userID {
		s.notify(post, userID, valueobject.NotificationPostLiked, "Вашу публикацию оценили")
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// Comment добавляет комментарий и уведомляет автора публикации.
func (s *PostService) Comment(ctx context.Context, postID, userID uuid.UUID, content string) (*models.PostComment, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxCommentLength {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "content", Message: "комментарий должен быть от 1 до 1000 символов"}})
	}

	post, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.PostComment{PostID: postID, AuthorID: userID, Content: content}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось добавить комментарий")
	}

	if post.AuthorID != userID {
		s.notify(post, userID, valueobject.NotificationPostCommented, "Новый комментарий к вашей публикации")
	}
	return comment, nil
}

func (s *PostService) Comments(ctx context.Context, postID uuid.UUID) ([]models.PostComment, error) {
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, postID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить комментарии")
	}
	return comments, nil
}

// React сохраняет реакцию пользователя, заменяя прежнюю.
func (s *PostService) React(ctx context.Context, postID, userID uuid.UUID, kind string) (*models.PostReaction, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" || utf8.RuneCountInString(kind) > models.MaxReactionRunes {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "kind", Message: "некорректная реакция"}})
	}

	post, err := s.find(ctx, postID)
	if err != nil {
		return nil, err
	}

	reaction := &models.PostReaction{PostID: postID, UserID: userID, Kind: kind}
	if err := s.repo.UpsertReaction(ctx, reaction); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось сохранить реакцию")
	}

	if post.AuthorID != userID {
		s.notify(post, userID, valueobject.NotificationPostReaction, "Новая реакция на вашу публикацию: "+kind)
	}
	return reaction, nil
}

func (s *PostService) Reactions(ctx context.Context, postID uuid.UUID) ([]models.PostReaction, error) {
	if _, err := s.find(ctx, postID); err != nil {
		return nil, err
	}
	reactions, err := s.repo.ListReactions(ctx, postID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить реакции")
	}
	return reactions, nil
}

func (s *PostService) find(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "не удалось получить публикацию")
	}
	return post, nil
}

func (s *PostService) notify(post *models.Post, senderID uuid.UUID, kind valueobject.NotificationType, message string) {
	if s.notifier == nil {
		return
	}
	postID := post.ID
	s.notifier.Notify(context.Background(), entity.NotificationEvent{
		RecipientID: post.AuthorID,
		SenderID:    senderID,
		Type:        kind,
		PostID:      &postID,
		Message:     message,
	})
}

func (s *PostService) mapErr(err error, message string) error {
	if errors.Is(err, repository.ErrPostNotFound) {
		return apperror.New(apperror.ErrCodeNotFound, "публикация не найдена")
	}
	return apperror.Wrap(err, apperror.ErrCodeDatabaseError, message)
}
