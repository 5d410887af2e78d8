package models

import "time"

// Announcement is a class-wide post. Like assignments it starts as a draft.
type Announcement struct {
	ID         string     `db:"announcement_id" json:"announcement_id"`
	Name       string     `db:"announcement_name" json:"announcement_name"`
	ClassID    string     `db:"class_id" json:"class_id"`
	PostedDate *time.Time `db:"posted_date" json:"posted_date,omitempty"`
	Body       *string    `db:"body" json:"body,omitempty"`
	Creator    string     `db:"creator" json:"creator"`
	Draft      bool       `db:"draft" json:"draft"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
