package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
)

type semesterWeekRepository interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	ListWeeks(ctx context.Context, semesterID string) ([]models.Week, error)
	CountLessons(ctx context.Context, semesterID string) (int, error)
	ReplaceWeeks(ctx context.Context, exec sqlx.ExtContext, semesterID string, weeks []models.Week) error
}

type referenceInvalidator interface {
	InvalidateSemester(ctx context.Context, semesterID string)
}

// SemesterService manages the week calendar of semesters.
type SemesterService struct {
	repo       semesterWeekRepository
	tx         txProvider
	references referenceInvalidator
	logger     *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(repo semesterWeekRepository, tx txProvider, references referenceInvalidator, logger *zap.Logger) *SemesterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, tx: tx, references: references, logger: logger}
}

// Weeks lists the weeks of a semester in order.
func (s *SemesterService) Weeks(ctx context.Context, semesterID string) ([]models.Week, error) {
	if _, err := s.semester(ctx, semesterID); err != nil {
		return nil, err
	}
	weeks, err := s.repo.ListWeeks(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weeks")
	}
	return weeks, nil
}

// GenerateWeeks rebuilds the weeks of a semester from its date range.
func (s *SemesterService) GenerateWeeks(ctx context.Context, semesterID string) (*dto.GenerateWeeksResponse, error) {
	semester, err := s.semester(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	weeks := buildWeeks(semester.StartDate, semester.EndDate)
	if len(weeks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester end date is before its start date")
	}
	lessons, err := s.repo.CountLessons(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stored lessons")
	}
	if lessons > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, "semester has scheduled lessons, delete its schedules first")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.repo.ReplaceWeeks(ctx, tx, semesterID, weeks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store weeks")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit weeks")
	}

	if s.references != nil {
		s.references.InvalidateSemester(ctx, semesterID)
	}
	s.logger.Info("semester weeks generated", zap.String("semester_id", semesterID), zap.Int("weeks", len(weeks)))
	return &dto.GenerateWeeksResponse{SemesterID: semesterID, Weeks: weeks}, nil
}

func (s *SemesterService) semester(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// buildWeeks cuts [start, end] into 7-day blocks numbered from 1. The last
// block ends on the end date.
func buildWeeks(start, end time.Time) []models.Week {
	start = truncateDay(start)
	end = truncateDay(end)
	var weeks []models.Week
	for cursor, number := start, 1; !cursor.After(end); cursor, number = cursor.AddDate(0, 0, 7), number+1 {
		weekEnd := cursor.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}
		weeks = append(weeks, models.Week{WeekNumber: number, StartDate: cursor, EndDate: weekEnd})
	}
	return weeks
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
