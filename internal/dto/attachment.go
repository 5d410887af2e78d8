package dto

import "github.com/noah-isme/classroom-api/internal/models"

// AttachmentTarget identifies the single item an attachment hangs off.
// Exactly one field must be set.
type AttachmentTarget struct {
	AssignmentID   *string `json:"assignment_id" form:"assignment_id"`
	AnnouncementID *string `json:"announcement_id" form:"announcement_id"`
	SubmissionID   *string `json:"submission_id" form:"submission_id"`
}

// Count returns how many target ids are set.
func (t AttachmentTarget) Count() int {
	n := 0
	for _, id := range []*string{t.AssignmentID, t.AnnouncementID, t.SubmissionID} {
		if id != nil && *id != "" {
			n++
		}
	}
	return n
}

// CreateAttachmentRequest attaches an uploaded file or a web link.
type CreateAttachmentRequest struct {
	AttachmentTarget
	FileID *string `json:"file_id"`
	URL    *string `json:"url" validate:"omitempty,url"`
}

// AttachmentDetail is an attachment with its file or link resolved.
type AttachmentDetail struct {
	models.Attachment
	File        *models.File `json:"file,omitempty"`
	Link        *models.Link `json:"link,omitempty"`
	DownloadURL *string      `json:"download_url,omitempty"`
}

// AttachmentRow is the flattened join used to load attachments with their file or link.
type AttachmentRow struct {
	models.Attachment
	Filename        *string `db:"filename"`
	FilePath        *string `db:"file_path"`
	FileURL         *string `db:"file_url"`
	FileType        *string `db:"filetype"`
	ContentType     *string `db:"content_type"`
	SizeBytes       *int64  `db:"size_bytes"`
	LinkTitle       *string `db:"link_title"`
	LinkDescription *string `db:"link_description"`
	LinkThumbnail   *string `db:"link_thumbnail"`
	LinkURL         *string `db:"link_url"`
}

// Detail rebuilds the nested view from a flattened row.
func (r AttachmentRow) Detail() AttachmentDetail {
	detail := AttachmentDetail{Attachment: r.Attachment}
	if r.FileID != nil && r.FilePath != nil {
		f := &models.File{ID: *r.FileID, FilePath: *r.FilePath, Uploader: r.Uploader}
		if r.Filename != nil {
			f.Filename = *r.Filename
		}
		if r.FileURL != nil {
			f.FileURL = *r.FileURL
		}
		if r.FileType != nil {
			f.FileType = models.FileType(*r.FileType)
		}
		if r.ContentType != nil {
			f.ContentType = *r.ContentType
		}
		if r.SizeBytes != nil {
			f.SizeBytes = *r.SizeBytes
		}
		detail.File = f
	}
	if r.LinkID != nil && r.LinkURL != nil {
		detail.Link = &models.Link{
			ID:          *r.LinkID,
			Title:       r.LinkTitle,
			Description: r.LinkDescription,
			Thumbnail:   r.LinkThumbnail,
			URL:         *r.LinkURL,
		}
	}
	return detail
}
