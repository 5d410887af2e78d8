package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

func TestClassCreateWithOwnerCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_members").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	class := &models.Classroom{ID: "ABCDE12345", Name: "Physics", Creator: "t1"}
	owner := &models.Membership{UserID: "t1", Role: models.RoleTeacher}
	require.NoError(t, repo.CreateWithOwner(context.Background(), class, owner))
	assert.Equal(t, "ABCDE12345", owner.ClassID)
	assert.NotEmpty(t, owner.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassCreateWithOwnerCodeCollision(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.CreateWithOwner(context.Background(), &models.Classroom{ID: "X"}, &models.Membership{UserID: "t1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassCreateWithOwnerRollsBackOnMemberFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO classes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO class_members").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.CreateWithOwner(context.Background(), &models.Classroom{ID: "X"}, &models.Membership{UserID: "t1"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberDuplicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec("INSERT INTO class_members").WillReturnError(&pq.Error{Code: "23505"})

	err := repo.AddMember(context.Background(), &models.Membership{UserID: "s1", ClassID: "c1", Role: models.RoleStudent})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMemberMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM class_members WHERE class_id = $1 AND user_id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveMember(context.Background(), "c1", "s1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMemberships(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "class_id", "role", "joined_at"}).
		AddRow("m1", "t1", "c1", "TEACHER", now).
		AddRow("m2", "s1", "c1", "STUDENT", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM class_members WHERE class_id = $1")).
		WithArgs("c1").
		WillReturnRows(rows)

	members, err := repo.ListMemberships(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.RoleStudent, members[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMemberEmails(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT u.email FROM class_members").
		WithArgs("c1", models.RoleStudent).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com").AddRow("b@example.com"))

	emails, err := repo.ListMemberEmails(context.Background(), "c1", models.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("topic-1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.TopicExists(context.Background(), "c1", "topic-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
