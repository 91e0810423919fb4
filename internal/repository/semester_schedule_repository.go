package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

const scheduleColumns = `id, semester_id, name, version, status, method, outcome, fitness, placed_count, total_count, conflicts_count, iterations, generation_time_ms, params, diagnostics, created_by, created_at, updated_at`

// SemesterScheduleRepository persists versioned schedules of a semester.
type SemesterScheduleRepository struct {
	db *sqlx.DB
}

// NewSemesterScheduleRepository constructs repository.
func NewSemesterScheduleRepository(db *sqlx.DB) *SemesterScheduleRepository {
	return &SemesterScheduleRepository{db: db}
}

func (r *SemesterScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a schedule assigning the next version of its semester.
func (r *SemesterScheduleRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.SemesterID == "" {
		return fmt.Errorf("semester_id is required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if len(schedule.Params) == 0 {
		schedule.Params = types.JSONText(`{}`)
	}
	if len(schedule.Diagnostics) == 0 {
		schedule.Diagnostics = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	target := r.exec(exec)

	// The row lock on the semester serialises concurrent version numbering.
	const lockQuery = `SELECT id FROM semesters WHERE id = $1 FOR UPDATE`
	var locked string
	if err := sqlx.GetContext(ctx, target, &locked, lockQuery, schedule.SemesterID); err != nil {
		return fmt.Errorf("lock semester %s: %w", schedule.SemesterID, err)
	}

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE semester_id = $1`
	if err := sqlx.GetContext(ctx, target, &schedule.Version, nextVersionQuery, schedule.SemesterID); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}
	if schedule.Name == "" {
		schedule.Name = fmt.Sprintf("Version %d", schedule.Version)
	}

	const insertQuery = `INSERT INTO schedules (` + scheduleColumns + `)
VALUES (:id, :semester_id, :name, :version, :status, :method, :outcome, :fitness, :placed_count, :total_count, :conflicts_count, :iterations, :generation_time_ms, :params, :diagnostics, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// List returns schedules matching the filter, newest version first, with the total count.
func (r *SemesterScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.SemesterID != "" {
		args = append(args, filter.SemesterID)
		conditions = append(conditions, fmt.Sprintf("semester_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM schedules"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM schedules%s ORDER BY created_at DESC, version DESC LIMIT $%d OFFSET $%d",
		scheduleColumns, where, len(args)-1, len(args))

	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, total, nil
}

// FindByID loads a schedule by its identifier.
func (r *SemesterScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Delete removes a schedule version together with its lessons.
func (r *SemesterScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `WITH removed AS (DELETE FROM lessons WHERE schedule_id = $1)
DELETE FROM schedules WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(result, "delete schedule")
}

// UpdateStatus moves a schedule to another lifecycle status.
func (r *SemesterScheduleRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error {
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	return expectAffected(result, "update schedule status")
}

// ArchiveActive archives the active schedules of a semester except keepID.
func (r *SemesterScheduleRepository) ArchiveActive(ctx context.Context, exec sqlx.ExtContext, semesterID, keepID string) error {
	const query = `UPDATE schedules SET status = $1, updated_at = $2 WHERE semester_id = $3 AND status = $4 AND id <> $5`
	if _, err := r.exec(exec).ExecContext(ctx, query, models.ScheduleStatusArchived, time.Now().UTC(), semesterID, models.ScheduleStatusActive, keepID); err != nil {
		return fmt.Errorf("archive active schedules: %w", err)
	}
	return nil
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
