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
)

func TestListCommentsByAssignment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "assignment_id", "announcement_id", "body", "created_at", "full_name", "profile_photo"}).
		AddRow("cm1", "s1", "a1", nil, "When is it due?", now, "Ada", nil)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE c.assignment_id = $1")).WithArgs("a1").WillReturnRows(rows)

	list, err := repo.ListByAssignment(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ada", list[0].FullName)
	assert.Equal(t, "When is it due?", list[0].Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPrivateCommentAuthor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id FROM private_comments WHERE id = $1")).
		WithArgs("pc1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("s1"))

	author, err := repo.FindAuthor(context.Background(), "pc1", true)
	require.NoError(t, err)
	assert.Equal(t, "s1", author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCommentMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCommentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comments WHERE id = $1")).
		WithArgs("cm1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "cm1", false), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
