package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	PostTypeGeneral         = "general"
	PostTypePortfolio       = "portfolio"
	PostTypeAvailability    = "availability"
	PostTypeArticle         = "article"
	PostTypeProjectShowcase = "project-showcase"

	MaxPostLength    = 2000
	MaxReactionRunes = 20
)

// ValidPostTypes допустимые типы публикаций.
var ValidPostTypes = map[string]struct{}{
	PostTypeGeneral:         {},
	PostTypePortfolio:       {},
	PostTypeAvailability:    {},
	PostTypeArticle:         {},
	PostTypeProjectShowcase: {},
}

type Post struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	AuthorID     uuid.UUID      `db:"author_id" json:"author_id"`
	Content      string         `db:"content" json:"content"`
	PostType     string         `db:"post_type" json:"post_type"`
	Tags         pq.StringArray `db:"tags" json:"tags"`
	Views        int            `db:"views" json:"views"`
	LikeCount    int            `db:"like_count" json:"like_count"`
	CommentCount int            `db:"comment_count" json:"comment_count"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

type PostComment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	AuthorID  uuid.UUID `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PostReaction struct {
	PostID    uuid.UUID `db:"post_id" json:"post_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Kind      string    `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
