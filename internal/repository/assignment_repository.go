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

const assignmentColumns = `assignment_id, assignment_name, class_id, topic_id, due_date, due_time, posted_date, instructions, total_marks, creator, draft, created_at`

// AssignmentRepository persists assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment, usually an empty draft.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (assignment_id, assignment_name, class_id, topic_id, due_date, due_time, posted_date, instructions, total_marks, creator, draft, created_at)
VALUES (:assignment_id, :assignment_name, :class_id, :topic_id, :due_date, :due_time, :posted_date, :instructions, :total_marks, :creator, :draft, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindInClass returns the assignment only if it belongs to classID.
func (r *AssignmentRepository) FindInClass(ctx context.Context, classID, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE assignment_id = $1 AND class_id = $2`
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &a, nil
}

// ListByClass returns class assignments, newest first. Drafts are skipped unless includeDrafts.
func (r *AssignmentRepository) ListByClass(ctx context.Context, classID string, includeDrafts bool) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE class_id = $1`
	if !includeDrafts {
		query += ` AND draft = FALSE`
	}
	query += ` ORDER BY created_at DESC`
	var list []models.Assignment
	if err := r.db.SelectContext(ctx, &list, query, classID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return list, nil
}

// Update writes every mutable column including the draft flag.
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	const query = `UPDATE assignments SET assignment_name = :assignment_name, topic_id = :topic_id, due_date = :due_date,
due_time = :due_time, posted_date = :posted_date, instructions = :instructions, total_marks = :total_marks, draft = :draft
WHERE assignment_id = :assignment_id`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment. Submissions, marks, comments and attachments cascade.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE assignment_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
