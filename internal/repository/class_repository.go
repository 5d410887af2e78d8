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

const classColumns = `class_id, class_name, class_creator, class_description, class_image, section, created_at`

// ClassRepository manages persistence for classrooms, their members and topics.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a classroom by id.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE class_id = $1`
	var class models.Classroom
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ListForUser returns classrooms the user is a member of, newest first.
func (r *ClassRepository) ListForUser(ctx context.Context, userID string) ([]models.Classroom, error) {
	const query = `SELECT c.class_id, c.class_name, c.class_creator, c.class_description, c.class_image, c.section, c.created_at
FROM classes c JOIN class_members m ON m.class_id = c.class_id
WHERE m.user_id = $1 ORDER BY c.created_at DESC`
	var classes []models.Classroom
	if err := r.db.SelectContext(ctx, &classes, query, userID); err != nil {
		return nil, fmt.Errorf("list classes for user: %w", err)
	}
	return classes, nil
}

// Create inserts a classroom. A colliding class code yields ErrDuplicate so the caller can draw a new one.
func (r *ClassRepository) Create(ctx context.Context, class *models.Classroom) error {
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO classes (class_id, class_name, class_creator, class_description, class_image, section, created_at)
VALUES (:class_id, :class_name, :class_creator, :class_description, :class_image, :section, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// CreateWithOwner inserts a classroom and the creator's membership atomically.
func (r *ClassRepository) CreateWithOwner(ctx context.Context, class *models.Classroom, owner *models.Membership) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin class transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}
	const classQuery = `INSERT INTO classes (class_id, class_name, class_creator, class_description, class_image, section, created_at)
VALUES (:class_id, :class_name, :class_creator, :class_description, :class_image, :section, :created_at)`
	if _, err = tx.NamedExecContext(ctx, classQuery, class); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create class: %w", err)
	}

	owner.ClassID = class.ID
	prepareMembership(owner)
	if _, err = tx.NamedExecContext(ctx, insertMembershipQuery, owner); err != nil {
		return fmt.Errorf("create owner membership: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit class: %w", err)
	}
	return nil
}

// Update writes the editable classroom fields.
func (r *ClassRepository) Update(ctx context.Context, class *models.Classroom) error {
	const query = `UPDATE classes SET class_name = :class_name, class_description = :class_description,
class_image = :class_image, section = :section WHERE class_id = :class_id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a classroom. Dependent rows cascade.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE class_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted class rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const insertMembershipQuery = `INSERT INTO class_members (id, user_id, class_id, role, joined_at)
VALUES (:id, :user_id, :class_id, :role, :joined_at)`

func prepareMembership(m *models.Membership) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
}

// AddMember inserts a membership. An existing (user, class) pair yields ErrDuplicate.
func (r *ClassRepository) AddMember(ctx context.Context, m *models.Membership) error {
	prepareMembership(m)
	if _, err := r.db.NamedExecContext(ctx, insertMembershipQuery, m); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("add class member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership.
func (r *ClassRepository) RemoveMember(ctx context.Context, classID, userID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM class_members WHERE class_id = $1 AND user_id = $2`, classID, userID)
	if err != nil {
		return fmt.Errorf("remove class member: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check removed member rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMemberships returns every membership of a classroom.
func (r *ClassRepository) ListMemberships(ctx context.Context, classID string) ([]models.Membership, error) {
	const query = `SELECT id, user_id, class_id, role, joined_at FROM class_members WHERE class_id = $1 ORDER BY joined_at`
	var members []models.Membership
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class memberships: %w", err)
	}
	return members, nil
}

// ListMembers returns memberships joined with user profiles.
func (r *ClassRepository) ListMembers(ctx context.Context, classID string) ([]models.Member, error) {
	const query = `SELECT m.id, m.user_id, m.class_id, m.role, m.joined_at, u.full_name, u.email, u.profile_photo
FROM class_members m JOIN users u ON u.id = m.user_id
WHERE m.class_id = $1 ORDER BY m.role, u.full_name`
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query, classID); err != nil {
		return nil, fmt.Errorf("list class members: %w", err)
	}
	return members, nil
}

// ListMemberEmails returns the email addresses of members holding role.
func (r *ClassRepository) ListMemberEmails(ctx context.Context, classID string, role models.UserRole) ([]string, error) {
	const query = `SELECT u.email FROM class_members m JOIN users u ON u.id = m.user_id
WHERE m.class_id = $1 AND m.role = $2 ORDER BY u.email`
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query, classID, role); err != nil {
		return nil, fmt.Errorf("list member emails: %w", err)
	}
	return emails, nil
}

// ListMemberIDs returns the user ids of members holding role.
func (r *ClassRepository) ListMemberIDs(ctx context.Context, classID string, role models.UserRole) ([]string, error) {
	const query = `SELECT user_id FROM class_members WHERE class_id = $1 AND role = $2 ORDER BY user_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID, role); err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return ids, nil
}

// CreateTopic inserts a topic.
func (r *ClassRepository) CreateTopic(ctx context.Context, topic *models.Topic) error {
	if topic.ID == "" {
		topic.ID = uuid.NewString()
	}
	if topic.CreatedAt.IsZero() {
		topic.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO topics (id, topic_name, class_id, created_at) VALUES (:id, :topic_name, :class_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, topic); err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}

// ListTopics returns topics of a classroom.
func (r *ClassRepository) ListTopics(ctx context.Context, classID string) ([]models.Topic, error) {
	const query = `SELECT id, topic_name, class_id, created_at FROM topics WHERE class_id = $1 ORDER BY created_at`
	var topics []models.Topic
	if err := r.db.SelectContext(ctx, &topics, query, classID); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// TopicExists reports whether the topic belongs to the classroom.
func (r *ClassRepository) TopicExists(ctx context.Context, classID, topicID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM topics WHERE id = $1 AND class_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, topicID, classID); err != nil {
		return false, fmt.Errorf("check topic: %w", err)
	}
	return exists, nil
}
