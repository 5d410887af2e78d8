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

const submissionColumns = `s.submission_id, s.assignment_id, s.user_id, s.submitted_date, s.submitted_time, s.on_time, s.marks_allotted, s.submitted, s.created_at`

const insertSubmissionQuery = `INSERT INTO submissions (submission_id, assignment_id, user_id, submitted_date, submitted_time, on_time, marks_allotted, submitted, created_at)
VALUES (:submission_id, :assignment_id, :user_id, :submitted_date, :submitted_time, :on_time, :marks_allotted, :submitted, :created_at)
ON CONFLICT (assignment_id, user_id) DO NOTHING`

// SubmissionRepository persists submissions and their marks. State
// transitions are conditional updates so concurrent requests cannot both win.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func prepareSubmission(s *models.Submission) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

// Create inserts one submission. An existing (assignment, user) pair yields ErrDuplicate.
func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	prepareSubmission(s)
	result, err := r.db.NamedExecContext(ctx, insertSubmissionQuery, s)
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check created submission rows: %w", err)
	}
	if affected == 0 {
		return ErrDuplicate
	}
	return nil
}

// CreateMany inserts submissions in one transaction, skipping pairs that already exist.
// It returns how many rows were inserted.
func (r *SubmissionRepository) CreateMany(ctx context.Context, subs []models.Submission) (inserted int64, err error) {
	if len(subs) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin submission fan-out: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range subs {
		prepareSubmission(&subs[i])
		result, execErr := tx.NamedExecContext(ctx, insertSubmissionQuery, &subs[i])
		if execErr != nil {
			err = fmt.Errorf("insert submission: %w", execErr)
			return 0, err
		}
		affected, rowsErr := result.RowsAffected()
		if rowsErr != nil {
			err = fmt.Errorf("check inserted submission rows: %w", rowsErr)
			return 0, err
		}
		inserted += affected
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submission fan-out: %w", err)
	}
	return inserted, nil
}

// FindInClass returns a submission only if its assignment belongs to classID.
func (r *SubmissionRepository) FindInClass(ctx context.Context, classID, id string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s
JOIN assignments a ON a.assignment_id = s.assignment_id
WHERE s.submission_id = $1 AND a.class_id = $2`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, id, classID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &s, nil
}

// FindByAssignmentAndUser returns the caller's submission for an assignment.
func (r *SubmissionRepository) FindByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s WHERE s.assignment_id = $1 AND s.user_id = $2`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, assignmentID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user submission: %w", err)
	}
	return &s, nil
}

// ListSummaries returns all submissions of an assignment with student info and attachment counts.
func (r *SubmissionRepository) ListSummaries(ctx context.Context, assignmentID string) ([]dto.SubmissionSummary, error) {
	query := `SELECT ` + submissionColumns + `, u.full_name, u.email, u.profile_photo,
(SELECT COUNT(*) FROM attachments at WHERE at.submission_id = s.submission_id) AS attachment_count
FROM submissions s JOIN users u ON u.id = s.user_id
WHERE s.assignment_id = $1 ORDER BY u.full_name`
	var list []dto.SubmissionSummary
	if err := r.db.SelectContext(ctx, &list, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return list, nil
}

// MarkSubmitted flips submitted false to true and stamps the submission time.
// It reports false when the submission was already submitted.
func (r *SubmissionRepository) MarkSubmitted(ctx context.Context, id string, date models.Date, clock models.ClockTime, onTime *bool) (bool, error) {
	const query = `UPDATE submissions SET submitted = TRUE, submitted_date = $2, submitted_time = $3, on_time = $4
WHERE submission_id = $1 AND submitted = FALSE`
	return r.execTransition(ctx, "submit", query, id, date, clock, onTime)
}

// MarkUnsubmitted flips submitted true to false and stores the recomputed on_time.
// It reports false when the submission was not submitted.
func (r *SubmissionRepository) MarkUnsubmitted(ctx context.Context, id string, onTime *bool) (bool, error) {
	const query = `UPDATE submissions SET submitted = FALSE, on_time = $2 WHERE submission_id = $1 AND submitted = TRUE`
	return r.execTransition(ctx, "unsubmit", query, id, onTime)
}

func (r *SubmissionRepository) execTransition(ctx context.Context, name, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s submission: %w", name, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check %s rows: %w", name, err)
	}
	return affected > 0, nil
}

// SweepOnTime sets on_time for every unsubmitted submission of an assignment.
func (r *SubmissionRepository) SweepOnTime(ctx context.Context, assignmentID string, onTime *bool) (int64, error) {
	const query = `UPDATE submissions SET on_time = $2 WHERE assignment_id = $1 AND submitted = FALSE`
	result, err := r.db.ExecContext(ctx, query, assignmentID, onTime)
	if err != nil {
		return 0, fmt.Errorf("sweep on_time: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check swept rows: %w", err)
	}
	return affected, nil
}

func prepareMark(m *models.Mark) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// GradeOnce writes the first mark of a submission. It reports false when the
// submission already carries marks.
func (r *SubmissionRepository) GradeOnce(ctx context.Context, mark *models.Mark) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin grade transaction: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()

	const guard = `UPDATE submissions SET marks_allotted = $2 WHERE submission_id = $1 AND marks_allotted IS NULL`
	result, err := tx.ExecContext(ctx, guard, mark.SubmissionID, mark.Value)
	if err != nil {
		return false, fmt.Errorf("set marks allotted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check graded rows: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	prepareMark(mark)
	const insert = `INSERT INTO marks (id, submission_id, marker_id, student_id, value, created_at, updated_at)
VALUES (:id, :submission_id, :marker_id, :student_id, :value, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insert, mark); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert mark: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit grade: %w", err)
	}
	return true, nil
}

// UpsertGrade overwrites the mark of a submission, creating it when missing.
func (r *SubmissionRepository) UpsertGrade(ctx context.Context, mark *models.Mark) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin regrade transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	prepareMark(mark)
	const upsert = `INSERT INTO marks (id, submission_id, marker_id, student_id, value, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (submission_id) DO UPDATE SET value = EXCLUDED.value, marker_id = EXCLUDED.marker_id, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := tx.QueryRowxContext(ctx, upsert, mark.ID, mark.SubmissionID, mark.MarkerID, mark.StudentID, mark.Value, mark.CreatedAt, mark.UpdatedAt)
	if err = row.Scan(&mark.ID, &mark.CreatedAt); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	const update = `UPDATE submissions SET marks_allotted = $2 WHERE submission_id = $1`
	if _, err = tx.ExecContext(ctx, update, mark.SubmissionID, mark.Value); err != nil {
		return fmt.Errorf("update marks allotted: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit regrade: %w", err)
	}
	return nil
}

// FindMark returns the mark of a submission.
func (r *SubmissionRepository) FindMark(ctx context.Context, submissionID string) (*models.Mark, error) {
	const query = `SELECT id, submission_id, marker_id, student_id, value, created_at, updated_at FROM marks WHERE submission_id = $1`
	var m models.Mark
	if err := r.db.GetContext(ctx, &m, query, submissionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mark: %w", err)
	}
	return &m, nil
}
