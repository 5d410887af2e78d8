package dto

import "github.com/noah-isme/classroom-api/internal/models"

// CreateClassRequest is the payload for creating a classroom.
type CreateClassRequest struct {
	Name        string  `json:"class_name" validate:"required,max=100"`
	Description *string `json:"class_description" validate:"omitempty,max=2000"`
	Image       *string `json:"class_image" validate:"omitempty,url"`
	Section     *string `json:"section" validate:"omitempty,max=100"`
}

// UpdateClassRequest carries optional classroom changes.
type UpdateClassRequest struct {
	Name        *string `json:"class_name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"class_description" validate:"omitempty,max=2000"`
	Image       *string `json:"class_image" validate:"omitempty,url"`
	Section     *string `json:"section" validate:"omitempty,max=100"`
}

// ClassroomView is a classroom together with the caller's role in it.
type ClassroomView struct {
	models.Classroom
	Role   models.UserRole `json:"role,omitempty"`
	Topics []models.Topic  `json:"topics,omitempty"`
}

// CreateTopicRequest is the payload for adding a topic.
type CreateTopicRequest struct {
	Name string `json:"topic_name" validate:"required,max=100"`
}
