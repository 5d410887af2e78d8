package models

import (
	"mime"
	"strings"
	"time"
)

// Attachment links a file or a link to exactly one assignment, announcement or submission.
type Attachment struct {
	ID             string    `db:"attachment_id" json:"attachment_id"`
	FileID         *string   `db:"file_id" json:"file_id,omitempty"`
	LinkID         *string   `db:"link_id" json:"link_id,omitempty"`
	AssignmentID   *string   `db:"assignment_id" json:"assignment_id,omitempty"`
	AnnouncementID *string   `db:"announcement_id" json:"announcement_id,omitempty"`
	SubmissionID   *string   `db:"submission_id" json:"submission_id,omitempty"`
	Uploader       string    `db:"uploader" json:"uploader"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// FileType is the coarse media family of an uploaded file.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypePDF      FileType = "pdf"
	FileTypeDocument FileType = "document"
	FileTypeSheet    FileType = "spreadsheet"
	FileTypeOther    FileType = "other"
)

// FileTypeFromMIME maps a Content-Type to a FileType.
func FileTypeFromMIME(contentType string) FileType {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mediaType, "video/"):
		return FileTypeVideo
	case mediaType == "application/pdf":
		return FileTypePDF
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mediaType == "application/msword":
		return FileTypeDocument
	case mediaType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		mediaType == "application/vnd.ms-excel":
		return FileTypeSheet
	default:
		return FileTypeOther
	}
}

// File is an uploaded media object. FilePath is relative to the storage root.
type File struct {
	ID          string    `db:"file_id" json:"file_id"`
	Filename    string    `db:"filename" json:"filename"`
	FilePath    string    `db:"file_path" json:"-"`
	FileURL     string    `db:"file_url" json:"file_url"`
	FileType    FileType  `db:"filetype" json:"filetype"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Uploader    string    `db:"uploader" json:"uploader"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Link is a scraped web reference.
type Link struct {
	ID          string    `db:"id" json:"id"`
	Title       *string   `db:"title" json:"title,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Thumbnail   *string   `db:"thumbnail" json:"thumbnail,omitempty"`
	URL         string    `db:"url" json:"url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
