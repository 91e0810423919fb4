package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
)

type scheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus) error
	ArchiveActive(ctx context.Context, exec sqlx.ExtContext, semesterID, keepID string) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type lessonStore interface {
	ListBySchedule(ctx context.Context, scheduleID string, filter models.LessonFilter) ([]models.Lesson, error)
	ListByScheduleWeek(ctx context.Context, scheduleID, weekID string) ([]models.Lesson, error)
	FindByID(ctx context.Context, scheduleID, id string) (*models.Lesson, error)
	UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
}

type weekReader interface {
	ListWeeks(ctx context.Context, semesterID string) ([]models.Week, error)
	FindWeekByNumber(ctx context.Context, semesterID string, number int) (*models.Week, error)
}

// ScheduleService exposes stored schedules and their lessons.
type ScheduleService struct {
	schedules  scheduleStore
	lessons    lessonStore
	weeks      weekReader
	references referenceSource
	tx         txProvider
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(schedules scheduleStore, lessons lessonStore, weeks weekReader, references referenceSource, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules:  schedules,
		lessons:    lessons,
		weeks:      weeks,
		references: references,
		tx:         tx,
		validator:  validate,
		logger:     logger,
	}
}

// List returns stored schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query parameters")
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	items, total, err := s.schedules.List(ctx, models.ScheduleFilter{
		SemesterID: query.SemesterID,
		Status:     models.ScheduleStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return items, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}, nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Lessons lists the lessons of a schedule narrowed to one group, teacher, room or week.
func (s *ScheduleService) Lessons(ctx context.Context, id string, query dto.LessonQuery) ([]models.Lesson, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListBySchedule(ctx, id, models.LessonFilter{
		GroupID:   query.GroupID,
		TeacherID: query.TeacherID,
		RoomID:    query.RoomID,
		WeekID:    query.WeekID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// LessonsByWeek groups the lessons of a schedule by week in semester order.
// Weeks without lessons are included.
func (s *ScheduleService) LessonsByWeek(ctx context.Context, id string, query dto.LessonQuery) ([]dto.ScheduleWeekGroup, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	weeks, err := s.weeks.ListWeeks(ctx, schedule.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weeks")
	}
	lessons, err := s.lessons.ListBySchedule(ctx, id, models.LessonFilter{GroupID: query.GroupID, TeacherID: query.TeacherID, RoomID: query.RoomID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}

	byWeek := make(map[string][]models.Lesson, len(weeks))
	for _, l := range lessons {
		byWeek[l.WeekID] = append(byWeek[l.WeekID], l)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].WeekNumber < weeks[j].WeekNumber })

	groups := make([]dto.ScheduleWeekGroup, 0, len(weeks))
	for _, w := range weeks {
		items := byWeek[w.ID]
		if items == nil {
			items = []models.Lesson{}
		}
		groups = append(groups, dto.ScheduleWeekGroup{
			WeekID:     w.ID,
			WeekNumber: w.WeekNumber,
			StartDate:  w.StartDate,
			EndDate:    w.EndDate,
			Lessons:    items,
		})
	}
	return groups, nil
}

// WeekView lays out one week of a schedule as a day by period grid.
func (s *ScheduleService) WeekView(ctx context.Context, id string, number int) (*dto.ScheduleWeekView, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	week, err := s.weeks.FindWeekByNumber(ctx, schedule.SemesterID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "week not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week")
	}
	lessons, err := s.lessons.ListByScheduleWeek(ctx, id, week.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return buildWeekView(schedule.ID, week, lessons), nil
}

func buildWeekView(scheduleID string, week *models.Week, lessons []models.Lesson) *dto.ScheduleWeekView {
	available := make(map[int]bool, scheduler.DaysPerWeek)
	engineWeek := scheduler.Week{ID: week.ID, StartDate: week.StartDate, EndDate: week.EndDate}
	for _, d := range engineWeek.AvailableDays() {
		available[d] = true
	}

	view := &dto.ScheduleWeekView{
		ScheduleID: scheduleID,
		WeekID:     week.ID,
		WeekNumber: week.WeekNumber,
		StartDate:  week.StartDate,
		EndDate:    week.EndDate,
		Days:       make([]dto.ScheduleDayView, scheduler.DaysPerWeek),
	}
	for d := range view.Days {
		day := dto.ScheduleDayView{
			Day:       d,
			Date:      week.StartDate.AddDate(0, 0, d),
			Available: available[d],
			Slots:     make([]dto.ScheduleSlotView, scheduler.SlotsPerDay),
		}
		for t := range day.Slots {
			day.Slots[t] = dto.ScheduleSlotView{TimeSlot: t, Lessons: []models.Lesson{}}
		}
		view.Days[d] = day
	}
	for _, l := range lessons {
		if l.DayOfWeek < 0 || l.DayOfWeek >= scheduler.DaysPerWeek || l.TimeSlot < 0 || l.TimeSlot >= scheduler.SlotsPerDay {
			continue
		}
		slot := &view.Days[l.DayOfWeek].Slots[l.TimeSlot]
		slot.Lessons = append(slot.Lessons, l)
	}
	return view
}

// Activate makes a complete schedule the active one of its semester and archives the previous one.
func (s *ScheduleService) Activate(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Outcome != string(scheduler.StatusSolved) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only complete schedules can be activated")
	}
	if schedule.Status == models.ScheduleStatusActive {
		return schedule, nil
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

	if err = s.schedules.ArchiveActive(ctx, tx, schedule.SemesterID, schedule.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive active schedule")
	}
	if err = s.schedules.UpdateStatus(ctx, tx, schedule.ID, models.ScheduleStatusActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate schedule")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit activation")
	}

	schedule.Status = models.ScheduleStatusActive
	s.logger.Info("schedule activated", zap.String("schedule_id", schedule.ID), zap.String("semester_id", schedule.SemesterID))
	return schedule, nil
}

// Delete removes a schedule together with its lessons.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if err := s.schedules.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

// MoveLesson changes the placement of one lesson. The change is rejected when it
// introduces a collision or breaks a scheduling rule that held before.
func (s *ScheduleService) MoveLesson(ctx context.Context, scheduleID, lessonID string, req dto.MoveLessonRequest) (*models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson payload")
	}
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "archived schedules are read only")
	}
	current, err := s.lessons.FindByID(ctx, scheduleID, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}

	moved := *current
	if req.WeekID != "" {
		moved.WeekID = req.WeekID
	}
	if req.DayOfWeek != nil {
		moved.DayOfWeek = *req.DayOfWeek
	}
	if req.TimeSlot != nil {
		moved.TimeSlot = *req.TimeSlot
	}
	if req.TeacherID != "" {
		moved.TeacherID = req.TeacherID
	}
	if req.RoomID != "" {
		moved.RoomID = req.RoomID
	}

	data, err := s.references.Load(ctx, schedule.SemesterID)
	if err != nil {
		return nil, err
	}
	if err := checkMoveDay(data, moved); err != nil {
		return nil, err
	}

	lessons, err := s.lessons.ListBySchedule(ctx, scheduleID, models.LessonFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	if err := s.checkMove(data, schedule, lessons, moved); err != nil {
		return nil, err
	}

	if err := s.lessons.UpdatePlacement(ctx, nil, &moved); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move lesson")
	}
	s.logger.Info("lesson moved",
		zap.String("schedule_id", scheduleID),
		zap.String("lesson_id", lessonID),
		zap.String("week_id", moved.WeekID),
		zap.Int("day", moved.DayOfWeek),
		zap.Int("time_slot", moved.TimeSlot),
	)
	return &moved, nil
}

// checkMoveDay rejects targets outside the semester's teaching days. Room and
// teacher rules are left to checkMove.
func checkMoveDay(data *scheduler.ReferenceData, lesson models.Lesson) error {
	for _, w := range data.Weeks {
		if w.ID != lesson.WeekID {
			continue
		}
		for _, d := range w.AvailableDays() {
			if d == lesson.DayOfWeek {
				return nil
			}
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, "target day is not part of the semester")
}

// checkMove verifies the schedule before and after the move and rejects new violations.
func (s *ScheduleService) checkMove(data *scheduler.ReferenceData, schedule *models.Schedule, lessons []models.Lesson, moved models.Lesson) error {
	opts := scheduleRunOptions(schedule)
	before := make([]scheduler.Lesson, len(lessons))
	after := make([]scheduler.Lesson, len(lessons))
	for i, l := range lessons {
		before[i] = toEngineLesson(l)
		after[i] = before[i]
		if l.ID == moved.ID {
			after[i] = toEngineLesson(moved)
		}
	}

	existing, err := scheduler.Verify(*data, before, opts...)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrScheduleInput.Code, appErrors.ErrScheduleInput.Status, "stored lessons do not match the semester")
	}
	proposed, err := scheduler.Verify(*data, after, opts...)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid target placement")
	}

	known := make(map[string]int, len(existing))
	for _, c := range existing {
		known[conflictKey(c)]++
	}
	var introduced []models.ScheduleConflict
	for _, c := range proposed {
		key := conflictKey(c)
		if known[key] > 0 {
			known[key]--
			continue
		}
		introduced = append(introduced, toModelConflict(c, lessons))
	}
	if len(introduced) == 0 {
		return nil
	}
	conflictErr := &models.ScheduleConflictError{
		Type:     introduced[0].Dimension,
		Message:  fmt.Sprintf("moving the lesson causes %d conflict(s)", len(introduced)),
		Conflict: introduced[0],
		Errors:   introduced,
	}
	return appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictErr.Message)
}

func conflictKey(c scheduler.Conflict) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%s", c.Dimension, c.ResourceID, c.Slot.WeekID, c.Slot.Day, c.Slot.Time, c.Message)
}

// scheduleRunOptions restores the limits a schedule was generated with.
func scheduleRunOptions(schedule *models.Schedule) []scheduler.Option {
	var params generationParams
	if len(schedule.Params) == 0 || schedule.Params.Unmarshal(&params) != nil {
		return nil
	}
	var opts []scheduler.Option
	if params.MaxLessonsPerDay > 0 {
		opts = append(opts, scheduler.WithMaxLessonsPerDay(params.MaxLessonsPerDay))
	}
	if params.MinDaysBetweenLessons > 0 {
		opts = append(opts, scheduler.WithMinDaysBetweenLessons(params.MinDaysBetweenLessons))
	}
	return opts
}

func toEngineLesson(l models.Lesson) scheduler.Lesson {
	return scheduler.Lesson{
		GroupID:      l.GroupID,
		SubjectID:    l.SubjectID,
		LessonTypeID: l.LessonTypeID,
		TeacherID:    l.TeacherID,
		RoomID:       l.RoomID,
		WeekID:       l.WeekID,
		Day:          l.DayOfWeek,
		TimeSlot:     l.TimeSlot,
	}
}

func toModelConflict(c scheduler.Conflict, lessons []models.Lesson) models.ScheduleConflict {
	out := models.ScheduleConflict{
		Dimension:  c.Dimension,
		WeekID:     c.Slot.WeekID,
		DayOfWeek:  c.Slot.Day,
		TimeSlot:   c.Slot.Time,
		ResourceID: c.ResourceID,
		Message:    c.Message,
	}
	for _, idx := range c.Lessons {
		if idx >= 0 && idx < len(lessons) {
			out.LessonIDs = append(out.LessonIDs, lessons[idx].ID)
		}
	}
	return out
}
