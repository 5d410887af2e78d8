package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/models"
)

var assignmentRowColumns = []string{"assignment_id", "assignment_name", "class_id", "topic_id", "due_date", "due_time", "posted_date", "instructions", "total_marks", "creator", "draft", "created_at"}

func TestAssignmentFindInClass(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(assignmentRowColumns).
		AddRow("a1", "Essay", "c1", nil, "2024-01-10", "18:00:00", now, "write", 100, "t1", false, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE assignment_id = $1 AND class_id = $2")).
		WithArgs("a1", "c1").
		WillReturnRows(rows)

	a, err := repo.FindInClass(context.Background(), "c1", "a1")
	require.NoError(t, err)
	require.NotNil(t, a.DueDate)
	require.NotNil(t, a.DueTime)
	assert.Equal(t, "2024-01-10", a.DueDate.String())
	assert.Equal(t, "18:00:00", a.DueTime.String())
	assert.False(t, a.Draft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentListByClassHidesDrafts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE class_id = $1 AND draft = FALSE ORDER BY created_at DESC")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(assignmentRowColumns))

	list, err := repo.ListByClass(context.Background(), "c1", false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentCreateDraft(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("INSERT INTO assignments").WillReturnResult(sqlmock.NewResult(1, 1))

	a := &models.Assignment{ClassID: "c1", Creator: "t1", Draft: true, TotalMarks: models.DefaultTotalMarks}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.NotEmpty(t, a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec("DELETE FROM assignments").WithArgs("a1").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "a1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
