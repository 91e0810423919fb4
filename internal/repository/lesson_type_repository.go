package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

// LessonTypeRepository reads lesson types and the spacing rules between them.
type LessonTypeRepository struct {
	db *sqlx.DB
}

// NewLessonTypeRepository constructs a LessonTypeRepository.
func NewLessonTypeRepository(db *sqlx.DB) *LessonTypeRepository {
	return &LessonTypeRepository{db: db}
}

// List returns every lesson type.
func (r *LessonTypeRepository) List(ctx context.Context) ([]models.LessonType, error) {
	const query = `SELECT id, name, requires_special_room FROM lesson_types ORDER BY name ASC`
	var types []models.LessonType
	if err := r.db.SelectContext(ctx, &types, query); err != nil {
		return nil, fmt.Errorf("list lesson types: %w", err)
	}
	return types, nil
}

// ListConstraints returns the spacing rules between lesson types.
func (r *LessonTypeRepository) ListConstraints(ctx context.Context) ([]models.LessonTypeConstraint, error) {
	const query = `SELECT id, type_from_id, type_to_id, min_days_between, max_days_between, same_subject_only
FROM lesson_type_constraints ORDER BY type_from_id ASC, type_to_id ASC`
	var constraints []models.LessonTypeConstraint
	if err := r.db.SelectContext(ctx, &constraints, query); err != nil {
		return nil, fmt.Errorf("list lesson type constraints: %w", err)
	}
	return constraints, nil
}
