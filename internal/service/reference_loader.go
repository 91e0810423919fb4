package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
)

type teacherReader interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
	ListQualifications(ctx context.Context) ([]models.TeacherSubject, error)
	ListUnavailable(ctx context.Context) ([]models.TeacherUnavailableSlot, error)
}

type roomReader interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type groupReader interface {
	ListActive(ctx context.Context) ([]models.Group, error)
	ListLoads(ctx context.Context) ([]models.GroupSubjectLoad, error)
}

type lessonTypeReader interface {
	List(ctx context.Context) ([]models.LessonType, error)
	ListConstraints(ctx context.Context) ([]models.LessonTypeConstraint, error)
}

type semesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	ListWeeks(ctx context.Context, semesterID string) ([]models.Week, error)
}

// ReferenceLoader assembles the scheduler input of a semester from storage.
type ReferenceLoader struct {
	teachers    teacherReader
	rooms       roomReader
	groups      groupReader
	lessonTypes lessonTypeReader
	semesters   semesterReader
	cache       *CacheService
	cacheTTL    time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewReferenceLoader wires the reference readers.
func NewReferenceLoader(
	teachers teacherReader,
	rooms roomReader,
	groups groupReader,
	lessonTypes lessonTypeReader,
	semesters semesterReader,
	cache *CacheService,
	cacheTTL time.Duration,
	metrics *MetricsService,
	logger *zap.Logger,
) *ReferenceLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceLoader{
		teachers:    teachers,
		rooms:       rooms,
		groups:      groups,
		lessonTypes: lessonTypes,
		semesters:   semesters,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		logger:      logger,
	}
}

func referenceCacheKey(semesterID string) string {
	return fmt.Sprintf("reference:%s", semesterID)
}

// InvalidateSemester drops the cached reference data of a semester.
func (l *ReferenceLoader) InvalidateSemester(ctx context.Context, semesterID string) {
	_ = l.cache.Invalidate(ctx, referenceCacheKey(semesterID))
}

// Load returns the reference data of the semester, from cache when possible.
func (l *ReferenceLoader) Load(ctx context.Context, semesterID string) (*scheduler.ReferenceData, error) {
	if _, err := l.semesters.FindByID(ctx, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}

	key := referenceCacheKey(semesterID)
	var cached scheduler.ReferenceData
	if l.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	start := time.Now()
	data, err := l.fetch(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}
	l.metrics.ObserveDBQuery("reference_data", time.Since(start))

	if len(data.Weeks) == 0 {
		return nil, appErrors.Clone(appErrors.ErrScheduleInput, "semester has no weeks, generate them first")
	}

	l.cache.Set(ctx, key, data, l.cacheTTL)
	l.logger.Debug("reference data loaded",
		zap.String("semester_id", semesterID),
		zap.Int("weeks", len(data.Weeks)),
		zap.Int("teachers", len(data.Teachers)),
		zap.Int("groups", len(data.Groups)),
		zap.Int("loads", len(data.Loads)),
	)
	return data, nil
}

func (l *ReferenceLoader) fetch(ctx context.Context, semesterID string) (*scheduler.ReferenceData, error) {
	var (
		teachers      []models.Teacher
		qualified     []models.TeacherSubject
		unavailable   []models.TeacherUnavailableSlot
		rooms         []models.Room
		groups        []models.Group
		loads         []models.GroupSubjectLoad
		lessonTypes   []models.LessonType
		typeRules     []models.LessonTypeConstraint
		semesterWeeks []models.Week
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { teachers, err = l.teachers.ListActive(gctx); return })
	g.Go(func() (err error) { qualified, err = l.teachers.ListQualifications(gctx); return })
	g.Go(func() (err error) { unavailable, err = l.teachers.ListUnavailable(gctx); return })
	g.Go(func() (err error) { rooms, err = l.rooms.ListActive(gctx); return })
	g.Go(func() (err error) { groups, err = l.groups.ListActive(gctx); return })
	g.Go(func() (err error) { loads, err = l.groups.ListLoads(gctx); return })
	g.Go(func() (err error) { lessonTypes, err = l.lessonTypes.List(gctx); return })
	g.Go(func() (err error) { typeRules, err = l.lessonTypes.ListConstraints(gctx); return })
	g.Go(func() (err error) { semesterWeeks, err = l.semesters.ListWeeks(gctx, semesterID); return })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildReferenceData(teachers, qualified, unavailable, rooms, groups, loads, lessonTypes, typeRules, semesterWeeks), nil
}

func buildReferenceData(
	teachers []models.Teacher,
	qualified []models.TeacherSubject,
	unavailable []models.TeacherUnavailableSlot,
	rooms []models.Room,
	groups []models.Group,
	loads []models.GroupSubjectLoad,
	lessonTypes []models.LessonType,
	typeRules []models.LessonTypeConstraint,
	semesterWeeks []models.Week,
) *scheduler.ReferenceData {
	subjects := make(map[string][]string)
	for _, q := range qualified {
		subjects[q.TeacherID] = append(subjects[q.TeacherID], q.SubjectID)
	}
	blocked := make(map[string][]scheduler.DayTime)
	for _, u := range unavailable {
		blocked[u.TeacherID] = append(blocked[u.TeacherID], scheduler.DayTime{Day: u.DayOfWeek, Time: u.TimeSlot})
	}

	data := &scheduler.ReferenceData{
		Weeks:       make([]scheduler.Week, 0, len(semesterWeeks)),
		Teachers:    make([]scheduler.Teacher, 0, len(teachers)),
		Rooms:       make([]scheduler.Room, 0, len(rooms)),
		Groups:      make([]scheduler.Group, 0, len(groups)),
		LessonTypes: make([]scheduler.LessonType, 0, len(lessonTypes)),
		Constraints: make([]scheduler.LessonTypeConstraint, 0, len(typeRules)),
		Loads:       make([]scheduler.Load, 0, len(loads)),
	}
	for _, w := range semesterWeeks {
		data.Weeks = append(data.Weeks, scheduler.Week{ID: w.ID, Number: w.WeekNumber, StartDate: w.StartDate, EndDate: w.EndDate})
	}
	for _, t := range teachers {
		data.Teachers = append(data.Teachers, scheduler.Teacher{
			ID:              t.ID,
			SubjectIDs:      subjects[t.ID],
			Unavailable:     blocked[t.ID],
			MaxHoursPerWeek: t.MaxHoursPerWeek,
		})
	}
	for _, r := range rooms {
		data.Rooms = append(data.Rooms, scheduler.Room{ID: r.ID, Capacity: r.Capacity, IsSpecial: r.IsSpecial})
	}
	for _, g := range groups {
		group := scheduler.Group{ID: g.ID, StudentCount: g.StudentCount, MaxLessonsPerDay: g.MaxLessonsPerDay}
		if g.DefaultRoomID != nil {
			group.DefaultRoomID = *g.DefaultRoomID
		}
		data.Groups = append(data.Groups, group)
	}
	for _, lt := range lessonTypes {
		data.LessonTypes = append(data.LessonTypes, scheduler.LessonType{ID: lt.ID, Name: lt.Name, RequiresSpecialRoom: lt.RequiresSpecialRoom})
	}
	for _, c := range typeRules {
		data.Constraints = append(data.Constraints, scheduler.LessonTypeConstraint{
			TypeFromID:      c.TypeFromID,
			TypeToID:        c.TypeToID,
			MinDaysBetween:  c.MinDaysBetween,
			MaxDaysBetween:  c.MaxDaysBetween,
			SameSubjectOnly: c.SameSubjectOnly,
		})
	}
	for _, ld := range loads {
		data.Loads = append(data.Loads, scheduler.Load{
			GroupID:      ld.GroupID,
			SubjectID:    ld.SubjectID,
			LessonTypeID: ld.LessonTypeID,
			HoursPerWeek: ld.HoursPerWeek,
		})
	}
	return data
}
