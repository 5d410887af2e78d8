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

// CommentRepository persists public and private comments.
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository constructs the repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a public comment.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO comments (id, user_id, assignment_id, announcement_id, body, created_at)
VALUES (:id, :user_id, :assignment_id, :announcement_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// CreatePrivate inserts a private comment on a submission.
func (r *CommentRepository) CreatePrivate(ctx context.Context, c *models.PrivateComment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO private_comments (id, user_id, submission_id, body, created_at)
VALUES (:id, :user_id, :submission_id, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create private comment: %w", err)
	}
	return nil
}

// ListByAssignment returns the public comments of an assignment, oldest first.
func (r *CommentRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]dto.CommentView, error) {
	return r.listPublic(ctx, "assignment_id", assignmentID)
}

// ListByAnnouncement returns the public comments of an announcement, oldest first.
func (r *CommentRepository) ListByAnnouncement(ctx context.Context, announcementID string) ([]dto.CommentView, error) {
	return r.listPublic(ctx, "announcement_id", announcementID)
}

func (r *CommentRepository) listPublic(ctx context.Context, column, id string) ([]dto.CommentView, error) {
	query := fmt.Sprintf(`SELECT c.id, c.user_id, c.assignment_id, c.announcement_id, c.body, c.created_at, u.full_name, u.profile_photo
FROM comments c JOIN users u ON u.id = c.user_id WHERE c.%s = $1 ORDER BY c.created_at`, column)
	var list []dto.CommentView
	if err := r.db.SelectContext(ctx, &list, query, id); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return list, nil
}

// ListPrivate returns the private comments of a submission, oldest first.
func (r *CommentRepository) ListPrivate(ctx context.Context, submissionID string) ([]dto.PrivateCommentView, error) {
	const query = `SELECT c.id, c.user_id, c.submission_id, c.body, c.created_at, u.full_name, u.profile_photo
FROM private_comments c JOIN users u ON u.id = c.user_id WHERE c.submission_id = $1 ORDER BY c.created_at`
	var list []dto.PrivateCommentView
	if err := r.db.SelectContext(ctx, &list, query, submissionID); err != nil {
		return nil, fmt.Errorf("list private comments: %w", err)
	}
	return list, nil
}

// FindAuthor returns the author id of a public comment, or of a private one when private is set.
func (r *CommentRepository) FindAuthor(ctx context.Context, id string, private bool) (string, error) {
	table := "comments"
	if private {
		table = "private_comments"
	}
	var userID string
	if err := r.db.GetContext(ctx, &userID, fmt.Sprintf(`SELECT user_id FROM %s WHERE id = $1`, table), id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find comment author: %w", err)
	}
	return userID, nil
}

// Delete removes a public or private comment.
func (r *CommentRepository) Delete(ctx context.Context, id string, private bool) error {
	table := "comments"
	if private {
		table = "private_comments"
	}
	result, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted comment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
