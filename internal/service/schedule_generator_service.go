package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/jobs"
	"github.com/noah-isme/semester-scheduler/pkg/logger"
	"github.com/noah-isme/semester-scheduler/pkg/middleware/requestid"
)

// JobTypeGenerate tags asynchronous generation jobs.
const JobTypeGenerate = "schedule.generate"

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type referenceSource interface {
	Load(ctx context.Context, semesterID string) (*scheduler.ReferenceData, error)
}

type scheduleCreator interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
}

type lessonInserter interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, lessons []models.Lesson) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type jobStatusReader interface {
	Get(id string) (jobs.Status, bool)
}

// ScheduleGeneratorConfig holds the run defaults applied when a request leaves a limit unset.
type ScheduleGeneratorConfig struct {
	MaxIterations         int
	MaxLessonsPerDay      int
	MinDaysBetweenLessons int
	Deadline              time.Duration
}

// ScheduleGeneratorService runs the backtracking engine for a semester and stores the outcome.
type ScheduleGeneratorService struct {
	references referenceSource
	schedules  scheduleCreator
	lessons    lessonInserter
	tx         txProvider
	validator  *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        ScheduleGeneratorConfig

	queue   jobDispatcher
	tracker jobStatusReader
}

type generationJob struct {
	Request   dto.GenerateSemesterRequest
	ActorID   string
	RequestID string
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	references referenceSource,
	schedules scheduleCreator,
	lessons lessonInserter,
	tx txProvider,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = scheduler.DefaultMaxIterations
	}
	if cfg.MaxLessonsPerDay <= 0 {
		cfg.MaxLessonsPerDay = scheduler.DefaultMaxLessonsPerDay
	}
	return &ScheduleGeneratorService{
		references: references,
		schedules:  schedules,
		lessons:    lessons,
		tx:         tx,
		validator:  validate,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// AttachQueue enables asynchronous generation. The queue must run HandleJob.
func (s *ScheduleGeneratorService) AttachQueue(queue jobDispatcher, tracker jobStatusReader) {
	s.queue = queue
	s.tracker = tracker
}

// Generate runs one generation for the semester and persists the result as a draft schedule.
// Incomplete runs are stored too so operators can inspect the diagnostics.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateSemesterRequest, actorID string) (*dto.GenerateSemesterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	log := logger.FromContext(ctx, s.logger)
	data, err := s.references.Load(ctx, req.SemesterID)
	if err != nil {
		return nil, err
	}

	opts := s.options(req, log)
	engine, err := scheduler.New(*data, opts...)
	if err != nil {
		var inputErr *scheduler.InputError
		if errors.As(err, &inputErr) {
			return nil, appErrors.Wrap(err, appErrors.ErrScheduleInput.Code, appErrors.ErrScheduleInput.Status, inputErr.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to prepare scheduler")
	}

	done := s.metrics.SchedulerRunStarted()
	result, runErr := engine.Generate(ctx)
	done()
	if result != nil {
		s.metrics.ObserveSchedulerRun(string(result.Status), result.Iterations, result.Duration, result.Fitness)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return nil, appErrors.Wrap(runErr, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "schedule generation canceled")
		}
		return nil, appErrors.Wrap(runErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
	}

	if result.Success() {
		violations, err := scheduler.Verify(*data, result.Lessons, opts...)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify schedule")
		}
		if len(violations) > 0 {
			log.Error("generated schedule breaks scheduling rules",
				zap.String("semester_id", req.SemesterID),
				zap.Int("violations", len(violations)),
				zap.String("first", violations[0].Message),
			)
			return nil, appErrors.Clone(appErrors.ErrInternal, "generated schedule failed verification")
		}
	}

	schedule, err := s.persist(ctx, req, actorID, result)
	if err != nil {
		return nil, err
	}

	log.Info("schedule generated",
		zap.String("semester_id", req.SemesterID),
		zap.String("schedule_id", schedule.ID),
		zap.Int("version", schedule.Version),
		zap.String("outcome", string(result.Status)),
		zap.Int("placed", result.Placed),
		zap.Int("total", result.Total),
	)
	return toGenerateResponse(schedule, result), nil
}

// Enqueue schedules an asynchronous generation.
func (s *ScheduleGeneratorService) Enqueue(ctx context.Context, req dto.GenerateSemesterRequest, actorID string) (*dto.GenerationJobStatus, error) {
	if s.queue == nil || s.tracker == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "asynchronous generation is disabled")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	job := jobs.Job{
		ID:       uuid.NewString(),
		Type:     JobTypeGenerate,
		Payload:  generationJob{Request: req, ActorID: actorID, RequestID: requestid.FromContext(ctx)},
		Enqueued: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrTooManyRequests.Code, appErrors.ErrTooManyRequests.Status, "generation queue is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to enqueue generation")
	}
	logger.FromContext(ctx, s.logger).Info("schedule generation queued", zap.String("job_id", job.ID), zap.String("semester_id", req.SemesterID))

	return &dto.GenerationJobStatus{
		JobID:      job.ID,
		SemesterID: req.SemesterID,
		State:      string(jobs.StateQueued),
		EnqueuedAt: job.Enqueued,
	}, nil
}

// HandleJob is the queue handler for asynchronous generation.
func (s *ScheduleGeneratorService) HandleJob(ctx context.Context, job jobs.Job) (interface{}, error) {
	payload, ok := job.Payload.(generationJob)
	if !ok {
		return nil, fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if payload.RequestID != "" {
		ctx = requestid.WithValue(ctx, payload.RequestID)
	}
	return s.Generate(ctx, payload.Request, payload.ActorID)
}

// JobStatus reports the state of an asynchronous generation.
func (s *ScheduleGeneratorService) JobStatus(id string) (*dto.GenerationJobStatus, error) {
	if s.tracker == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	st, ok := s.tracker.Get(id)
	if !ok || st.Type != JobTypeGenerate {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
	}
	resp := &dto.GenerationJobStatus{
		JobID:      st.ID,
		State:      string(st.State),
		EnqueuedAt: st.EnqueuedAt,
		StartedAt:  st.StartedAt,
		FinishedAt: st.FinishedAt,
	}
	if st.Err != nil {
		resp.Error = appErrors.FromError(st.Err).Message
	}
	if result, ok := st.Result.(*dto.GenerateSemesterResponse); ok && result != nil {
		resp.Result = result
	}
	return resp, nil
}

func (s *ScheduleGeneratorService) options(req dto.GenerateSemesterRequest, log *zap.Logger) []scheduler.Option {
	maxIterations := s.cfg.MaxIterations
	if req.MaxIterations > 0 {
		maxIterations = req.MaxIterations
	}
	maxPerDay := s.cfg.MaxLessonsPerDay
	if req.MaxLessonsPerDay > 0 {
		maxPerDay = req.MaxLessonsPerDay
	}
	minDays := s.cfg.MinDaysBetweenLessons
	if req.MinDaysBetweenLessons != nil {
		minDays = *req.MinDaysBetweenLessons
	}

	opts := []scheduler.Option{
		scheduler.WithMaxIterations(maxIterations),
		scheduler.WithMaxLessonsPerDay(maxPerDay),
		scheduler.WithMinDaysBetweenLessons(minDays),
		scheduler.WithLogger(log.Named("scheduler")),
	}
	if s.cfg.Deadline > 0 {
		opts = append(opts, scheduler.WithDeadline(s.cfg.Deadline))
	}
	if req.Seed != nil {
		opts = append(opts, scheduler.WithSeed(*req.Seed))
	}
	return opts
}

type generationParams struct {
	MaxIterations         int    `json:"maxIterations"`
	MaxLessonsPerDay      int    `json:"maxLessonsPerDay"`
	MinDaysBetweenLessons int    `json:"minDaysBetweenLessons"`
	Seed                  *int64 `json:"seed,omitempty"`
}

type generationReport struct {
	Conflicts     []scheduler.Diagnostic `json:"conflicts"`
	Unschedulable []scheduler.Diagnostic `json:"unschedulable,omitempty"`
}

func (s *ScheduleGeneratorService) persist(ctx context.Context, req dto.GenerateSemesterRequest, actorID string, result *scheduler.Result) (*models.Schedule, error) {
	params := generationParams{
		MaxIterations:         s.cfg.MaxIterations,
		MaxLessonsPerDay:      s.cfg.MaxLessonsPerDay,
		MinDaysBetweenLessons: s.cfg.MinDaysBetweenLessons,
		Seed:                  req.Seed,
	}
	if req.MaxIterations > 0 {
		params.MaxIterations = req.MaxIterations
	}
	if req.MaxLessonsPerDay > 0 {
		params.MaxLessonsPerDay = req.MaxLessonsPerDay
	}
	if req.MinDaysBetweenLessons != nil {
		params.MinDaysBetweenLessons = *req.MinDaysBetweenLessons
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode parameters")
	}
	reportJSON, err := json.Marshal(generationReport{Conflicts: result.Conflicts, Unschedulable: result.Unschedulable})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode diagnostics")
	}

	schedule := &models.Schedule{
		SemesterID:       req.SemesterID,
		Name:             req.Name,
		Status:           models.ScheduleStatusDraft,
		Method:           result.Method,
		Outcome:          string(result.Status),
		Fitness:          result.Fitness,
		PlacedCount:      result.Placed,
		TotalCount:       result.Total,
		ConflictsCount:   len(result.Conflicts),
		Iterations:       result.Iterations,
		GenerationTimeMS: result.Duration.Milliseconds(),
		Params:           types.JSONText(paramsJSON),
		Diagnostics:      types.JSONText(reportJSON),
	}
	if actorID != "" {
		schedule.CreatedBy = &actorID
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

	if err = s.schedules.CreateVersioned(ctx, tx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}
	lessons := make([]models.Lesson, 0, len(result.Lessons))
	for _, l := range result.Lessons {
		lessons = append(lessons, models.Lesson{
			ScheduleID:   schedule.ID,
			GroupID:      l.GroupID,
			SubjectID:    l.SubjectID,
			LessonTypeID: l.LessonTypeID,
			TeacherID:    l.TeacherID,
			RoomID:       l.RoomID,
			WeekID:       l.WeekID,
			DayOfWeek:    l.Day,
			TimeSlot:     l.TimeSlot,
		})
	}
	if err = s.lessons.InsertBatch(ctx, tx, lessons); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store lessons")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
	}
	return schedule, nil
}

func toGenerateResponse(schedule *models.Schedule, result *scheduler.Result) *dto.GenerateSemesterResponse {
	return &dto.GenerateSemesterResponse{
		ScheduleID:       schedule.ID,
		Version:          schedule.Version,
		Outcome:          result.Status,
		Success:          result.Success(),
		Fitness:          result.Fitness,
		Placed:           result.Placed,
		Total:            result.Total,
		Iterations:       result.Iterations,
		GenerationTimeMS: result.Duration.Milliseconds(),
		Method:           result.Method,
		Diagnostics:      result.Conflicts,
		Unschedulable:    result.Unschedulable,
	}
}
