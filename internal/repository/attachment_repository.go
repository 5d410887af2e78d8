package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
)

const attachmentColumns = `at.attachment_id, at.file_id, at.link_id, at.assignment_id, at.announcement_id, at.submission_id, at.uploader, at.created_at`

const attachmentDetailQuery = `SELECT ` + attachmentColumns + `,
f.filename, f.file_path, f.file_url, f.filetype, f.content_type, f.size_bytes,
l.title AS link_title, l.description AS link_description, l.thumbnail AS link_thumbnail, l.url AS link_url
FROM attachments at
LEFT JOIN files f ON f.file_id = at.file_id
LEFT JOIN links l ON l.id = at.link_id`

const insertAttachmentQuery = `INSERT INTO attachments (attachment_id, file_id, link_id, assignment_id, announcement_id, submission_id, uploader, created_at)
VALUES (:attachment_id, :file_id, :link_id, :assignment_id, :announcement_id, :submission_id, :uploader, :created_at)`

// AttachmentRepository persists attachments with their uploaded files and scraped links.
type AttachmentRepository struct {
	db *sqlx.DB
}

// NewAttachmentRepository constructs the repository.
func NewAttachmentRepository(db *sqlx.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// CreateFile records an uploaded file.
func (r *AttachmentRepository) CreateFile(ctx context.Context, f *models.File) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO files (file_id, filename, file_path, file_url, filetype, content_type, size_bytes, uploader, created_at)
VALUES (:file_id, :filename, :file_path, :file_url, :filetype, :content_type, :size_bytes, :uploader, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, f); err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// FindFile returns a file by id.
func (r *AttachmentRepository) FindFile(ctx context.Context, id string) (*models.File, error) {
	const query = `SELECT file_id, filename, file_path, file_url, filetype, content_type, size_bytes, uploader, created_at FROM files WHERE file_id = $1`
	var f models.File
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return &f, nil
}

// DeleteFile removes a file record.
func (r *AttachmentRepository) DeleteFile(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE file_id = $1`, id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func prepareAttachment(a *models.Attachment) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

// Create inserts an attachment that references an existing file or link.
func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	prepareAttachment(a)
	if _, err := r.db.NamedExecContext(ctx, insertAttachmentQuery, a); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// CreateWithLink stores a link and the attachment pointing at it in one transaction.
func (r *AttachmentRepository) CreateWithLink(ctx context.Context, link *models.Link, a *models.Attachment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin link transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	const linkQuery = `INSERT INTO links (id, title, description, thumbnail, url, created_at)
VALUES (:id, :title, :description, :thumbnail, :url, :created_at)`
	if _, err = tx.NamedExecContext(ctx, linkQuery, link); err != nil {
		return fmt.Errorf("create link: %w", err)
	}

	a.LinkID = &link.ID
	prepareAttachment(a)
	if _, err = tx.NamedExecContext(ctx, insertAttachmentQuery, a); err != nil {
		return fmt.Errorf("create link attachment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit link attachment: %w", err)
	}
	return nil
}

// FindInClass returns an attachment whose target belongs to classID.
func (r *AttachmentRepository) FindInClass(ctx context.Context, classID, id string) (*dto.AttachmentDetail, error) {
	query := attachmentDetailQuery + `
LEFT JOIN assignments a ON a.assignment_id = at.assignment_id
LEFT JOIN announcements an ON an.announcement_id = at.announcement_id
LEFT JOIN submissions s ON s.submission_id = at.submission_id
LEFT JOIN assignments sa ON sa.assignment_id = s.assignment_id
WHERE at.attachment_id = $1 AND COALESCE(a.class_id, an.class_id, sa.class_id) = $2`
	var row dto.AttachmentRow
	if err := r.db.GetContext(ctx, &row, query, id, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	detail := row.Detail()
	return &detail, nil
}

// ListByAssignment returns the attachments of an assignment.
func (r *AttachmentRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]dto.AttachmentDetail, error) {
	return r.list(ctx, "assignment_id", assignmentID)
}

// ListByAnnouncement returns the attachments of an announcement.
func (r *AttachmentRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.AttachmentDetail, error) {
	return r.list(ctx, "announcement_id", announcementID)
}

// ListBySubmission returns the attachments of a submission.
func (r *AttachmentRepository) ListBySubmission(ctx context.Context, submissionID string) ([]dto.AttachmentDetail, error) {
	return r.list(ctx, "submission_id", submissionID)
}

func (r *AttachmentRepository) list(ctx context.Context, column, id string) ([]dto.AttachmentDetail, error) {
	query := fmt.Sprintf(`%s WHERE at.%s = $1 ORDER BY at.created_at`, attachmentDetailQuery, column)
	var rows []dto.AttachmentRow
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	details := make([]dto.AttachmentDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.Detail())
	}
	return details, nil
}

// Delete removes an attachment row.
func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM attachments WHERE attachment_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted attachment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
