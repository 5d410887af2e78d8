package models

import "time"

// DefaultTotalMarks is used when an assignment does not set its own maximum.
const DefaultTotalMarks = 100

// Assignment is class work. It starts as an empty draft and is published by an update.
type Assignment struct {
	ID           string     `db:"assignment_id" json:"assignment_id"`
	Name         string     `db:"assignment_name" json:"assignment_name"`
	ClassID      string     `db:"class_id" json:"class_id"`
	TopicID      *string    `db:"topic_id" json:"topic_id,omitempty"`
	DueDate      *Date      `db:"due_date" json:"due_date,omitempty"`
	DueTime      *ClockTime `db:"due_time" json:"due_time,omitempty"`
	PostedDate   *time.Time `db:"posted_date" json:"posted_date,omitempty"`
	Instructions *string    `db:"instructions" json:"instructions,omitempty"`
	TotalMarks   int        `db:"total_marks" json:"total_marks"`
	Creator      string     `db:"creator" json:"creator"`
	Draft        bool       `db:"draft" json:"draft"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
