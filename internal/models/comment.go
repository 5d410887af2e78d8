package models

import "time"

// Comment is a public comment on an assignment or an announcement.
type Comment struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	AssignmentID   *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	AnnouncementID *string   `db:"announcement_id" json:"announcement_id,omitempty"`
	Body           string    `db:"body" json:"body"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PrivateComment is visible only to the submission owner and class staff.
type PrivateComment struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	Body         string    `db:"body" json:"body"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// CommentAuthor is the author profile attached to comment listings.
type CommentAuthor struct {
	FullName     string  `db:"full_name" json:"full_name"`
	ProfilePhoto *string `db:"profile_photo" json:"profile_photo,omitempty"`
}
