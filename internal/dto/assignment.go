package dto

import "github.com/noah-isme/classroom-api/internal/models"

// UpdateAssignmentRequest fills a draft and publishes it. Absent fields keep their stored value.
type UpdateAssignmentRequest struct {
	Name         *string           `json:"assignment_name" validate:"omitempty,min=1,max=255"`
	TopicID      *string           `json:"topic_id"`
	DueDate      *models.Date      `json:"due_date"`
	DueTime      *models.ClockTime `json:"due_time"`
	Instructions *string           `json:"instructions" validate:"omitempty,max=10000"`
	TotalMarks   *int              `json:"total_marks" validate:"omitempty,min=1,max=1000"`
}

// AssignmentStudentView is what a member sees when opening an assignment.
type AssignmentStudentView struct {
	Assignment            models.Assignment    `json:"assignment"`
	Submission            *models.Submission   `json:"submission,omitempty"`
	Attachments           []AttachmentDetail   `json:"attachments"`
	SubmissionAttachments []AttachmentDetail   `json:"submission_attachments"`
	Comments              []CommentView        `json:"comments"`
	PrivateComments       []PrivateCommentView `json:"private_comments"`
}

// AssignmentTeacherView lists every submission of an assignment for class staff.
type AssignmentTeacherView struct {
	Assignment  models.Assignment   `json:"assignment"`
	Submissions []SubmissionSummary `json:"submissions"`
	Attachments []AttachmentDetail  `json:"attachments"`
	Comments    []CommentView       `json:"comments"`
}
