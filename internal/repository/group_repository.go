package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

// GroupRepository reads student groups and their weekly loads.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListActive returns active groups.
func (r *GroupRepository) ListActive(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, name, student_count, default_room_id, max_lessons_per_day, active, created_at, updated_at
FROM groups WHERE active = TRUE ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list active groups: %w", err)
	}
	return groups, nil
}

// ListLoads returns the declared weekly hours. Loads of inactive groups are
// included so the scheduler can report them as skipped.
func (r *GroupRepository) ListLoads(ctx context.Context) ([]models.GroupSubjectLoad, error) {
	const query = `SELECT id, group_id, subject_id, lesson_type_id, hours_per_week
FROM group_subject_loads ORDER BY group_id ASC, subject_id ASC, lesson_type_id ASC`
	var loads []models.GroupSubjectLoad
	if err := r.db.SelectContext(ctx, &loads, query); err != nil {
		return nil, fmt.Errorf("list group loads: %w", err)
	}
	return loads, nil
}
