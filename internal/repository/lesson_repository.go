package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

// lessonBatchSize keeps a bulk insert well below the postgres bind parameter limit.
const lessonBatchSize = 500

const lessonColumns = `id, schedule_id, group_id, subject_id, lesson_type_id, teacher_id, room_id, week_id, day_of_week, time_slot, created_at`

// LessonRepository persists the placements of a schedule.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs a LessonRepository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// InsertBatch stores lessons in chunks, assigning ids where missing.
func (r *LessonRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, lessons []models.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	for i := range lessons {
		lesson := &lessons[i]
		if lesson.ID == "" {
			lesson.ID = uuid.NewString()
		}
		if lesson.CreatedAt.IsZero() {
			lesson.CreatedAt = now
		}
	}

	const query = `INSERT INTO lessons (` + lessonColumns + `)
VALUES (:id, :schedule_id, :group_id, :subject_id, :lesson_type_id, :teacher_id, :room_id, :week_id, :day_of_week, :time_slot, :created_at)`
	for start := 0; start < len(lessons); start += lessonBatchSize {
		end := start + lessonBatchSize
		if end > len(lessons) {
			end = len(lessons)
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, lessons[start:end]); err != nil {
			return fmt.Errorf("insert lessons: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns the lessons of a schedule narrowed by the filter,
// ordered by week, day and period.
func (r *LessonRepository) ListBySchedule(ctx context.Context, scheduleID string, filter models.LessonFilter) ([]models.Lesson, error) {
	conditions := []string{"l.schedule_id = $1"}
	args := []interface{}{scheduleID}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("l.%s = $%d", column, len(args)))
	}
	add("group_id", filter.GroupID)
	add("teacher_id", filter.TeacherID)
	add("room_id", filter.RoomID)
	add("week_id", filter.WeekID)

	query := fmt.Sprintf(`SELECT l.id, l.schedule_id, l.group_id, l.subject_id, l.lesson_type_id, l.teacher_id, l.room_id,
l.week_id, l.day_of_week, l.time_slot, l.created_at
FROM lessons l JOIN weeks w ON w.id = l.week_id
WHERE %s ORDER BY w.week_number ASC, l.day_of_week ASC, l.time_slot ASC, l.group_id ASC`, strings.Join(conditions, " AND "))
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule lessons: %w", err)
	}
	return lessons, nil
}

// ListByScheduleWeek returns one week of a schedule.
func (r *LessonRepository) ListByScheduleWeek(ctx context.Context, scheduleID, weekID string) ([]models.Lesson, error) {
	return r.ListBySchedule(ctx, scheduleID, models.LessonFilter{WeekID: weekID})
}

// FindByID loads a single lesson of a schedule.
func (r *LessonRepository) FindByID(ctx context.Context, scheduleID, id string) (*models.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE schedule_id = $1 AND id = $2`
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, scheduleID, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// UpdatePlacement moves a lesson to another slot, teacher or room.
func (r *LessonRepository) UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	const query = `UPDATE lessons SET teacher_id = :teacher_id, room_id = :room_id, week_id = :week_id,
day_of_week = :day_of_week, time_slot = :time_slot WHERE id = :id AND schedule_id = :schedule_id`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, lesson)
	if err != nil {
		return fmt.Errorf("update lesson placement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("lesson rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
