package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/jobs"
)

func TestScheduleGeneratorServiceGenerateSuccess(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	fx := newGeneratorFixture(t, generatorFixtureConfig{tx: tx})
	seed := int64(7)

	resp, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1", Seed: &seed}, "user-1")

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, scheduler.StatusSolved, resp.Outcome)
	assert.Equal(t, 4, resp.Placed)
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 1.0, resp.Fitness)
	assert.Equal(t, "sched-1", resp.ScheduleID)
	assert.Equal(t, 3, resp.Version)

	require.Len(t, fx.schedules.created, 1)
	stored := fx.schedules.created[0]
	assert.Equal(t, models.ScheduleStatusDraft, stored.Status)
	assert.Equal(t, string(scheduler.StatusSolved), stored.Outcome)
	assert.Equal(t, "user-1", *stored.CreatedBy)
	assert.JSONEq(t, `{"maxIterations":1000,"maxLessonsPerDay":5,"minDaysBetweenLessons":0,"seed":7}`, string(stored.Params))

	require.Len(t, fx.lessons.inserted, 4)
	for _, l := range fx.lessons.inserted {
		assert.Equal(t, "sched-1", l.ScheduleID)
		assert.Equal(t, "g1", l.GroupID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceGenerateValidation(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})

	_, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{MaxLessonsPerDay: 9}, "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, fx.references.calls)
}

func TestScheduleGeneratorServiceGenerateInputError(t *testing.T) {
	data := generatorReference()
	data.Teachers = nil
	fx := newGeneratorFixture(t, generatorFixtureConfig{data: &data})

	_, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "")

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrScheduleInput.Code, appErr.Code)
	assert.ErrorIs(t, err, scheduler.ErrNoTeachers)
	assert.Empty(t, fx.schedules.created)
}

func TestScheduleGeneratorServiceGeneratePersistsIncompleteRun(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	data := generatorReference()
	data.Loads[0].HoursPerWeek = 6
	fx := newGeneratorFixture(t, generatorFixtureConfig{tx: tx, data: &data})

	resp, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1", MaxLessonsPerDay: 1}, "")

	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, scheduler.StatusStructural, resp.Outcome)
	assert.NotEmpty(t, resp.Diagnostics)
	require.Len(t, fx.schedules.created, 1)
	assert.Equal(t, string(scheduler.StatusStructural), fx.schedules.created[0].Outcome)
	assert.Equal(t, len(resp.Diagnostics), fx.schedules.created[0].ConflictsCount)
	assert.Empty(t, fx.lessons.inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceGenerateKeepsSkippedDeclarationsOutOfVerification(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	data := generatorReference()
	data.Loads = append(data.Loads,
		scheduler.Load{GroupID: "g1", SubjectID: "latin", LessonTypeID: "lecture", HoursPerWeek: 1},
		scheduler.Load{GroupID: "g9", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 1},
	)
	fx := newGeneratorFixture(t, generatorFixtureConfig{tx: tx, data: &data})

	resp, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "")

	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 4, resp.Placed)
	require.Len(t, resp.Unschedulable, 2)
	assert.Equal(t, scheduler.DiagnosticNoTeacher, resp.Unschedulable[0].Kind)
	assert.Equal(t, scheduler.DiagnosticInactiveGroup, resp.Unschedulable[1].Kind)
	assert.Len(t, fx.lessons.inserted, 4)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceGenerateRollsBackOnLessonFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()
	fx := newGeneratorFixture(t, generatorFixtureConfig{tx: tx, lessonErr: errors.New("boom")})

	_, err := fx.service.Generate(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceEnqueueRequiresQueue(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})

	_, err := fx.service.Enqueue(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrServiceUnavailable.Code, appErrors.FromError(err).Code)
}

func TestScheduleGeneratorServiceEnqueueQueueFull(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})
	fx.service.AttachQueue(&dispatcherStub{err: jobs.ErrQueueFull}, &trackerStub{})

	_, err := fx.service.Enqueue(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTooManyRequests.Code, appErrors.FromError(err).Code)
}

func TestScheduleGeneratorServiceAsyncRoundTrip(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	fx := newGeneratorFixture(t, generatorFixtureConfig{tx: tx})
	dispatcher := &dispatcherStub{}
	tracker := &trackerStub{}
	fx.service.AttachQueue(dispatcher, tracker)

	queued, err := fx.service.Enqueue(context.Background(), dto.GenerateSemesterRequest{SemesterID: "sem-1"}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, string(jobs.StateQueued), queued.State)
	assert.Equal(t, "sem-1", queued.SemesterID)
	require.Len(t, dispatcher.jobs, 1)
	job := dispatcher.jobs[0]
	assert.Equal(t, queued.JobID, job.ID)
	assert.Equal(t, JobTypeGenerate, job.Type)

	result, err := fx.service.HandleJob(context.Background(), job)
	require.NoError(t, err)
	finished := time.Now().UTC()
	tracker.status = jobs.Status{ID: job.ID, Type: JobTypeGenerate, State: jobs.StateSucceeded, Result: result, EnqueuedAt: job.Enqueued, FinishedAt: &finished}

	status, err := fx.service.JobStatus(job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(jobs.StateSucceeded), status.State)
	require.NotNil(t, status.Result)
	assert.True(t, status.Result.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGeneratorServiceJobStatusFailed(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})
	tracker := &trackerStub{status: jobs.Status{ID: "job-1", Type: JobTypeGenerate, State: jobs.StateFailed, Err: appErrors.Clone(appErrors.ErrNotFound, "semester not found")}}
	fx.service.AttachQueue(&dispatcherStub{}, tracker)

	status, err := fx.service.JobStatus("job-1")
	require.NoError(t, err)
	assert.Equal(t, "semester not found", status.Error)

	_, err = fx.service.JobStatus("other")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleGeneratorServiceHandleJobRejectsPayload(t *testing.T) {
	fx := newGeneratorFixture(t, generatorFixtureConfig{})

	_, err := fx.service.HandleJob(context.Background(), jobs.Job{ID: "job-1", Payload: "nope"})

	assert.Error(t, err)
}

// --- Fixtures ---

type generatorFixtureConfig struct {
	tx        txProvider
	data      *scheduler.ReferenceData
	lessonErr error
}

type generatorFixture struct {
	service    *ScheduleGeneratorService
	references *referenceSourceStub
	schedules  *scheduleCreatorStub
	lessons    *lessonInserterStub
}

func newGeneratorFixture(t *testing.T, cfg generatorFixtureConfig) generatorFixture {
	t.Helper()
	data := cfg.data
	if data == nil {
		d := generatorReference()
		data = &d
	}
	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}
	refs := &referenceSourceStub{data: data}
	schedules := &scheduleCreatorStub{}
	lessons := &lessonInserterStub{err: cfg.lessonErr}
	svc := NewScheduleGeneratorService(refs, schedules, lessons, tx, validator.New(), NewMetricsService(), zap.NewNop(), ScheduleGeneratorConfig{
		MaxIterations:    1000,
		MaxLessonsPerDay: 5,
	})
	return generatorFixture{service: svc, references: refs, schedules: schedules, lessons: lessons}
}

// generatorReference has one group needing two math lectures a week over two weeks.
func generatorReference() scheduler.ReferenceData {
	start := time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)
	return scheduler.ReferenceData{
		Weeks: []scheduler.Week{
			{ID: "w1", Number: 1, StartDate: start, EndDate: start.AddDate(0, 0, 6)},
			{ID: "w2", Number: 2, StartDate: start.AddDate(0, 0, 7), EndDate: start.AddDate(0, 0, 13)},
		},
		Teachers:    []scheduler.Teacher{{ID: "t1", SubjectIDs: []string{"math"}}},
		Rooms:       []scheduler.Room{{ID: "r1", Capacity: 30}},
		Groups:      []scheduler.Group{{ID: "g1", StudentCount: 25}},
		LessonTypes: []scheduler.LessonType{{ID: "lecture", Name: "Lecture"}},
		Loads:       []scheduler.Load{{GroupID: "g1", SubjectID: "math", LessonTypeID: "lecture", HoursPerWeek: 2}},
	}
}

type referenceSourceStub struct {
	data  *scheduler.ReferenceData
	err   error
	calls int
}

func (s *referenceSourceStub) Load(ctx context.Context, semesterID string) (*scheduler.ReferenceData, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.data
	return &copied, nil
}

type scheduleCreatorStub struct {
	created []models.Schedule
}

func (s *scheduleCreatorStub) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	schedule.ID = "sched-1"
	schedule.Version = 3
	s.created = append(s.created, *schedule)
	return nil
}

type lessonInserterStub struct {
	inserted []models.Lesson
	err      error
}

func (s *lessonInserterStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, lessons []models.Lesson) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, lessons...)
	return nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type trackerStub struct {
	status jobs.Status
}

func (s *trackerStub) Get(id string) (jobs.Status, bool) {
	if s.status.ID != id {
		return jobs.Status{}, false
	}
	return s.status, true
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
