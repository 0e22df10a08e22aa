package models

import (
	"time"

	"github.com/google/uuid"
)

type Bookmark struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	JobID     uuid.UUID `db:"job_id" json:"job_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookmarkedJob закладка вместе с краткими данными вакансии.
type BookmarkedJob struct {
	JobID        uuid.UUID `db:"job_id" json:"job_id"`
	Title        string    `db:"title" json:"title"`
	Category     string    `db:"category" json:"category"`
	Status       string    `db:"status" json:"status"`
	BudgetMin    string    `db:"budget_min" json:"budget_min"`
	BudgetMax    string    `db:"budget_max" json:"budget_max"`
	Currency     string    `db:"currency" json:"currency"`
	BookmarkedAt time.Time `db:"created_at" json:"bookmarked_at"`
}
