package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classroom-api/internal/models"
)

const announcementColumns = `announcement_id, announcement_name, class_id, posted_date, body, creator, draft, created_at`

// AnnouncementRepository persists class announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository constructs the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create inserts an announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, a *models.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO announcements (announcement_id, announcement_name, class_id, posted_date, body, creator, draft, created_at)
VALUES (:announcement_id, :announcement_name, :class_id, :posted_date, :body, :creator, :draft, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// FindInClass returns the announcement only if it belongs to classID.
func (r *AnnouncementRepository) FindInClass(ctx context.Context, classID, id string) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE announcement_id = $1 AND class_id = $2`
	var a models.Announcement
	if err := r.db.GetContext(ctx, &a, query, id, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find announcement: %w", err)
	}
	return &a, nil
}

// ListByClass returns announcements newest first. Drafts are skipped unless includeDrafts.
func (r *AnnouncementRepository) ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE class_id = $1`
	if !includeDrafts {
		query += ` AND draft = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	var list []models.Announcement
	if err := r.db.SelectContext(ctx, &list, query, classID); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return list, nil
}

// Update writes name, body, posted date and draft flag.
func (r *AnnouncementRepository) Update(ctx context.Context, a *models.Announcement) error {
	const query = `UPDATE announcements SET announcement_name = :announcement_name, body = :body, posted_date = :posted_date, draft = :draft
WHERE announcement_id = :announcement_id`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Delete removes an announcement. Comments and attachments cascade.
func (r *AnnouncementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE announcement_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted announcement rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
