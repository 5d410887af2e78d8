package dto

import "github.com/noah-isme/classroom-api/internal/models"

// SubmissionSummary is one row of the teacher's submission list.
type SubmissionSummary struct {
	models.Submission
	FullName        string  `db:"full_name" json:"full_name"`
	Email           string  `db:"email" json:"email"`
	ProfilePhoto    *string `db:"profile_photo" json:"profile_photo,omitempty"`
	AttachmentCount int     `db:"attachment_count" json:"attachment_count"`
}

// SubmissionDetail is a single submission with everything attached to it.
type SubmissionDetail struct {
	Submission      models.Submission    `json:"submission"`
	Student         models.UserInfo      `json:"student"`
	Mark            *models.Mark         `json:"mark,omitempty"`
	Attachments     []AttachmentDetail   `json:"attachments"`
	PrivateComments []PrivateCommentView `json:"private_comments"`
}

// GradeRequest carries the marks awarded to a submission.
type GradeRequest struct {
	Marks *int `json:"marks" validate:"required,min=0"`
}
