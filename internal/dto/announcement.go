package dto

import "github.com/noah-isme/classroom-api/internal/models"

// UpdateAnnouncementRequest fills a draft announcement and publishes it.
type UpdateAnnouncementRequest struct {
	Name *string `json:"announcement_name" validate:"omitempty,min=1,max=255"`
	Body *string `json:"body" validate:"omitempty,max=10000"`
}

// AnnouncementView is an announcement with its attachments and comments.
type AnnouncementView struct {
	Announcement models.Announcement `json:"announcement"`
	Attachments  []AttachmentDetail  `json:"attachments"`
	Comments     []CommentView       `json:"comments"`
}
