package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeacherRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "max_hours_per_week", "active", "created_at", "updated_at"}).
		AddRow("t1", "a@uni.example", "Ada Lovelace", 18, true, now, now).
		AddRow("t2", "b@uni.example", "Alan Turing", 0, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM teachers WHERE active = TRUE ORDER BY id ASC")).WillReturnRows(rows)

	teachers, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, teachers, 2)
	assert.Equal(t, 18, teachers[0].MaxHoursPerWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryQualificationsAndUnavailability(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_subjects ts JOIN teachers t")).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id", "subject_id"}).AddRow("t1", "math").AddRow("t1", "physics"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_unavailable_slots u JOIN teachers t")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "teacher_id", "day_of_week", "time_slot", "reason"}).
			AddRow("u1", "t1", 0, 1, "department meeting").
			AddRow("u2", "t1", 4, 6, nil))

	links, err := repo.ListQualifications(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, 2)

	slots, err := repo.ListUnavailable(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.NotNil(t, slots[0].Reason)
	assert.Equal(t, "department meeting", *slots[0].Reason)
	assert.Nil(t, slots[1].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListActiveError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery("FROM teachers").WillReturnError(errors.New("connection reset"))

	_, err := repo.ListActive(context.Background())

	assert.ErrorContains(t, err, "list active teachers")
	assert.NoError(t, mock.ExpectationsWereMet())
}
