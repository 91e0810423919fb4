package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
)

type scheduleManagerMock struct {
	listQuery   dto.ScheduleListQuery
	lessonQuery dto.LessonQuery
	weekNumber  int
	move        dto.MoveLessonRequest
	moveErr     error
	deleted     string
}

func (m *scheduleManagerMock) List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, *models.Pagination, error) {
	m.listQuery = query
	return []models.Schedule{{ID: "sched-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *scheduleManagerMock) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if id != "sched-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return &models.Schedule{ID: id}, nil
}

func (m *scheduleManagerMock) Lessons(ctx context.Context, id string, query dto.LessonQuery) ([]models.Lesson, error) {
	m.lessonQuery = query
	return []models.Lesson{{ID: "l1", ScheduleID: id}}, nil
}

func (m *scheduleManagerMock) LessonsByWeek(ctx context.Context, id string, query dto.LessonQuery) ([]dto.ScheduleWeekGroup, error) {
	m.lessonQuery = query
	return []dto.ScheduleWeekGroup{{WeekID: "w1", WeekNumber: 1, Lessons: []models.Lesson{}}}, nil
}

func (m *scheduleManagerMock) WeekView(ctx context.Context, id string, number int) (*dto.ScheduleWeekView, error) {
	m.weekNumber = number
	return &dto.ScheduleWeekView{ScheduleID: id, WeekNumber: number}, nil
}

func (m *scheduleManagerMock) Activate(ctx context.Context, id string) (*models.Schedule, error) {
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only solved schedules can be activated")
}

func (m *scheduleManagerMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *scheduleManagerMock) MoveLesson(ctx context.Context, scheduleID, lessonID string, req dto.MoveLessonRequest) (*models.Lesson, error) {
	m.move = req
	if m.moveErr != nil {
		return nil, m.moveErr
	}
	return &models.Lesson{ID: lessonID, ScheduleID: scheduleID}, nil
}

func newScheduleRouter(mock *scheduleManagerMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: mock}
	router := gin.New()
	router.GET("/schedules", handler.List)
	router.GET("/schedules/:id", handler.Get)
	router.GET("/schedules/:id/lessons", handler.Lessons)
	router.GET("/schedules/:id/weeks", handler.Weeks)
	router.GET("/schedules/:id/weeks/:number", handler.WeekView)
	router.POST("/schedules/:id/activate", handler.Activate)
	router.DELETE("/schedules/:id", handler.Delete)
	router.PATCH("/schedules/:id/lessons/:lessonId", handler.MoveLesson)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestScheduleHandlerListBindsQuery(t *testing.T) {
	mock := &scheduleManagerMock{}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodGet, "/schedules?semesterId=sem-1&status=DRAFT&page=2&pageSize=5", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ScheduleListQuery{SemesterID: "sem-1", Status: "DRAFT", Page: 2, PageSize: 5}, mock.listQuery)
	assert.Contains(t, w.Body.String(), `"pagination"`)
}

func TestScheduleHandlerGet(t *testing.T) {
	router := newScheduleRouter(&scheduleManagerMock{})

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/schedules/sched-1", "").Code)
	require.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/schedules/other", "").Code)
}

func TestScheduleHandlerLessonFilters(t *testing.T) {
	mock := &scheduleManagerMock{}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodGet, "/schedules/sched-1/lessons?teacherId=t1&weekId=w2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.LessonQuery{TeacherID: "t1", WeekID: "w2"}, mock.lessonQuery)

	w = doRequest(router, http.MethodGet, "/schedules/sched-1/weeks?groupId=g1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.LessonQuery{GroupID: "g1"}, mock.lessonQuery)
	assert.Contains(t, w.Body.String(), `"lessons":[]`)
}

func TestScheduleHandlerWeekView(t *testing.T) {
	mock := &scheduleManagerMock{}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodGet, "/schedules/sched-1/weeks/3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, mock.weekNumber)

	for _, raw := range []string{"0", "abc", "-1"} {
		w = doRequest(router, http.MethodGet, "/schedules/sched-1/weeks/"+raw, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}
}

func TestScheduleHandlerActivatePrecondition(t *testing.T) {
	router := newScheduleRouter(&scheduleManagerMock{})

	w := doRequest(router, http.MethodPost, "/schedules/sched-1/activate", "")

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestScheduleHandlerDelete(t *testing.T) {
	mock := &scheduleManagerMock{}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodDelete, "/schedules/sched-1", "")

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sched-1", mock.deleted)
}

func TestScheduleHandlerMoveLesson(t *testing.T) {
	mock := &scheduleManagerMock{}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodPatch, "/schedules/sched-1/lessons/l1", `{"dayOfWeek":2,"timeSlot":4,"roomId":"r2"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.move.DayOfWeek)
	assert.Equal(t, 2, *mock.move.DayOfWeek)
	assert.Equal(t, 4, *mock.move.TimeSlot)
	assert.Equal(t, "r2", mock.move.RoomID)
}

func TestScheduleHandlerMoveLessonConflict(t *testing.T) {
	conflict := models.ScheduleConflict{Dimension: "TEACHER", ResourceID: "t1", WeekID: "w1", DayOfWeek: 2, TimeSlot: 4, LessonIDs: []string{"l1", "l7"}}
	conflictErr := &models.ScheduleConflictError{Type: "TEACHER", Message: "moving the lesson causes 1 conflict(s)", Conflict: conflict, Errors: []models.ScheduleConflict{conflict}}
	mock := &scheduleManagerMock{moveErr: appErrors.Wrap(conflictErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflictErr.Message)}
	router := newScheduleRouter(mock)

	w := doRequest(router, http.MethodPatch, "/schedules/sched-1/lessons/l1", `{"timeSlot":4}`)

	require.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			Conflicts []models.ScheduleConflict `json:"conflicts"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appErrors.ErrConflict.Code, body.Error.Code)
	require.Len(t, body.Meta.Conflicts, 1)
	assert.Equal(t, []string{"l1", "l7"}, body.Meta.Conflicts[0].LessonIDs)
}

func TestScheduleHandlerMoveLessonBadPayload(t *testing.T) {
	router := newScheduleRouter(&scheduleManagerMock{})

	w := doRequest(router, http.MethodPatch, "/schedules/sched-1/lessons/l1", `{"dayOfWeek":"monday"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
