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

	"github.com/noah-isme/semester-scheduler/internal/models"
)

func TestSemesterRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	start := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM semesters WHERE id = $1")).
		WithArgs("sem-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "academic_year", "start_date", "end_date", "is_active", "created_at", "updated_at"}).
			AddRow("sem-1", "Autumn 2024", "AUTUMN", "2024/2025", start, start.AddDate(0, 4, 0), true, start, start))

	semester, err := repo.FindByID(context.Background(), "sem-1")

	require.NoError(t, err)
	assert.Equal(t, models.SemesterTypeAutumn, semester.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryFindWeekByNumberNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM weeks WHERE semester_id = $1 AND week_number = $2")).
		WithArgs("sem-1", 30).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindWeekByNumber(context.Background(), "sem-1", 30)

	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryReplaceWeeks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	start := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	weeks := []models.Week{
		{WeekNumber: 1, StartDate: start, EndDate: start.AddDate(0, 0, 6)},
		{WeekNumber: 2, StartDate: start.AddDate(0, 0, 7), EndDate: start.AddDate(0, 0, 9)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weeks WHERE semester_id = $1")).
		WithArgs("sem-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weeks")).
		WithArgs(sqlmock.AnyArg(), "sem-1", 1, start, start.AddDate(0, 0, 6),
			sqlmock.AnyArg(), "sem-1", 2, start.AddDate(0, 0, 7), start.AddDate(0, 0, 9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceWeeks(context.Background(), tx, "sem-1", weeks))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, weeks[0].ID)
	assert.Equal(t, "sem-1", weeks[1].SemesterID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryListWeeks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	start := time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM weeks WHERE semester_id = $1 ORDER BY week_number ASC")).
		WithArgs("sem-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "semester_id", "week_number", "start_date", "end_date"}).
			AddRow("w1", "sem-1", 1, start, start.AddDate(0, 0, 6)))

	weeks, err := repo.ListWeeks(context.Background(), "sem-1")

	require.NoError(t, err)
	assert.Len(t, weeks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSemesterRepositoryCountLessons(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSemesterRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons l JOIN weeks w ON w.id = l.week_id WHERE w.semester_id = $1")).
		WithArgs("sem-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountLessons(context.Background(), "sem-1")

	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
