package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

// TeacherRepository reads teachers and their scheduling constraints.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// ListActive returns active teachers ordered by id.
func (r *TeacherRepository) ListActive(ctx context.Context) ([]models.Teacher, error) {
	const query = `SELECT id, email, full_name, max_hours_per_week, active, created_at, updated_at
FROM teachers WHERE active = TRUE ORDER BY id ASC`
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list active teachers: %w", err)
	}
	return teachers, nil
}

// ListQualifications returns the subjects each active teacher may teach.
func (r *TeacherRepository) ListQualifications(ctx context.Context) ([]models.TeacherSubject, error) {
	const query = `SELECT ts.teacher_id, ts.subject_id
FROM teacher_subjects ts JOIN teachers t ON t.id = ts.teacher_id
WHERE t.active = TRUE ORDER BY ts.teacher_id ASC, ts.subject_id ASC`
	var links []models.TeacherSubject
	if err := r.db.SelectContext(ctx, &links, query); err != nil {
		return nil, fmt.Errorf("list teacher qualifications: %w", err)
	}
	return links, nil
}

// ListUnavailable returns the blocked periods of active teachers.
func (r *TeacherRepository) ListUnavailable(ctx context.Context) ([]models.TeacherUnavailableSlot, error) {
	const query = `SELECT u.id, u.teacher_id, u.day_of_week, u.time_slot, u.reason
FROM teacher_unavailable_slots u JOIN teachers t ON t.id = u.teacher_id
WHERE t.active = TRUE ORDER BY u.teacher_id ASC, u.day_of_week ASC, u.time_slot ASC`
	var slots []models.TeacherUnavailableSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list teacher unavailability: %w", err)
	}
	return slots, nil
}
