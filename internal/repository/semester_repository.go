package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

// SemesterRepository reads semesters and maintains their weeks.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository constructs a SemesterRepository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

func (r *SemesterRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID fetches a semester.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, name, type, academic_year, start_date, end_date, is_active, created_at, updated_at
FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// ListWeeks returns the weeks of a semester in calendar order.
func (r *SemesterRepository) ListWeeks(ctx context.Context, semesterID string) ([]models.Week, error) {
	const query = `SELECT id, semester_id, week_number, start_date, end_date
FROM weeks WHERE semester_id = $1 ORDER BY week_number ASC`
	var weeks []models.Week
	if err := r.db.SelectContext(ctx, &weeks, query, semesterID); err != nil {
		return nil, fmt.Errorf("list semester weeks: %w", err)
	}
	return weeks, nil
}

// FindWeekByNumber fetches one week of a semester.
func (r *SemesterRepository) FindWeekByNumber(ctx context.Context, semesterID string, number int) (*models.Week, error) {
	const query = `SELECT id, semester_id, week_number, start_date, end_date
FROM weeks WHERE semester_id = $1 AND week_number = $2`
	var week models.Week
	if err := r.db.GetContext(ctx, &week, query, semesterID, number); err != nil {
		return nil, err
	}
	return &week, nil
}

// CountLessons returns how many stored lessons reference weeks of the semester.
func (r *SemesterRepository) CountLessons(ctx context.Context, semesterID string) (int, error) {
	const query = `SELECT COUNT(*) FROM lessons l JOIN weeks w ON w.id = l.week_id WHERE w.semester_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, semesterID); err != nil {
		return 0, fmt.Errorf("count semester lessons: %w", err)
	}
	return count, nil
}

// ReplaceWeeks drops the existing weeks of a semester and inserts the provided ones.
// Callers pass a transaction so a failed insert keeps the old weeks.
func (r *SemesterRepository) ReplaceWeeks(ctx context.Context, exec sqlx.ExtContext, semesterID string, weeks []models.Week) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM weeks WHERE semester_id = $1`, semesterID); err != nil {
		return fmt.Errorf("delete semester weeks: %w", err)
	}
	if len(weeks) == 0 {
		return nil
	}

	const query = `INSERT INTO weeks (id, semester_id, week_number, start_date, end_date)
VALUES (:id, :semester_id, :week_number, :start_date, :end_date)`
	for i := range weeks {
		week := &weeks[i]
		if week.ID == "" {
			week.ID = uuid.NewString()
		}
		week.SemesterID = semesterID
	}
	if _, err := sqlx.NamedExecContext(ctx, target, query, weeks); err != nil {
		return fmt.Errorf("insert semester weeks: %w", err)
	}
	return nil
}
