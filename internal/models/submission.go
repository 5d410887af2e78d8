package models

import "time"

// Submission is a student's work against one assignment. Exactly one exists
// per (assignment_id, user_id).
type Submission struct {
	ID            string     `db:"submission_id" json:"submission_id"`
	AssignmentID  string     `db:"assignment_id" json:"assignment_id"`
	UserID        string     `db:"user_id" json:"user_id"`
	SubmittedDate *Date      `db:"submitted_date" json:"submitted_date"`
	SubmittedTime *ClockTime `db:"submitted_time" json:"submitted_time"`
	OnTime        *bool      `db:"on_time" json:"on_time"`
	MarksAllotted *int       `db:"marks_allotted" json:"marks_allotted"`
	Submitted     bool       `db:"submitted" json:"submitted"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Graded reports whether a mark has been written back onto the submission.
func (s *Submission) Graded() bool {
	return s.MarksAllotted != nil
}

// Mark is the grading record mirrored into Submission.MarksAllotted.
type Mark struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submission_id"`
	MarkerID     string    `db:"marker_id" json:"marker_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	Value        int       `db:"value" json:"value"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
