package models

import "time"

// Classroom is a class that users join with a shareable code. The id doubles as the join code.
type Classroom struct {
	ID          string    `db:"class_id" json:"class_id"`
	Name        string    `db:"class_name" json:"class_name"`
	Creator     string    `db:"class_creator" json:"class_creator"`
	Description *string   `db:"class_description" json:"class_description,omitempty"`
	Image       *string   `db:"class_image" json:"class_image,omitempty"`
	Section     *string   `db:"section" json:"section,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Membership asserts that a user participates in a classroom. Role is taken
// from the user's global role at join time. One row per (user_id, class_id).
type Membership struct {
	ID       string    `db:"id" json:"id"`
	UserID   string    `db:"user_id" json:"user_id"`
	ClassID  string    `db:"class_id" json:"class_id"`
	Role     UserRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// Member is a membership joined with the member's profile.
type Member struct {
	Membership
	FullName     string  `db:"full_name" json:"full_name"`
	Email        string  `db:"email" json:"email"`
	ProfilePhoto *string `db:"profile_photo" json:"profile_photo,omitempty"`
}

// Topic groups assignments inside a classroom.
type Topic struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"topic_name" json:"topic_name"`
	ClassID   string    `db:"class_id" json:"class_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
