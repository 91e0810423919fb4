package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/middleware"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/service"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/response"
)

type scheduleManager interface {
	List(ctx context.Context, query dto.ScheduleListQuery) ([]models.Schedule, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Lessons(ctx context.Context, id string, query dto.LessonQuery) ([]models.Lesson, error)
	LessonsByWeek(ctx context.Context, id string, query dto.LessonQuery) ([]dto.ScheduleWeekGroup, error)
	WeekView(ctx context.Context, id string, number int) (*dto.ScheduleWeekView, error)
	Activate(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	MoveLesson(ctx context.Context, scheduleID, lessonID string, req dto.MoveLessonRequest) (*models.Lesson, error)
}

// ScheduleHandler serves stored schedule versions and their lessons.
type ScheduleHandler struct {
	service scheduleManager
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule versions
// @Tags Schedules
// @Produce json
// @Param semesterId query string false "Semester ID"
// @Param status query string false "DRAFT, ACTIVE or ARCHIVED"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a schedule version
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Lessons godoc
// @Summary List the lessons of a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param groupId query string false "Group ID"
// @Param teacherId query string false "Teacher ID"
// @Param roomId query string false "Room ID"
// @Param weekId query string false "Week ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/lessons [get]
func (h *ScheduleHandler) Lessons(c *gin.Context) {
	var query dto.LessonQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	lessons, err := h.service.Lessons(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// Weeks godoc
// @Summary List the lessons of a schedule grouped by week
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param groupId query string false "Group ID"
// @Param teacherId query string false "Teacher ID"
// @Param roomId query string false "Room ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/weeks [get]
func (h *ScheduleHandler) Weeks(c *gin.Context) {
	var query dto.LessonQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	weeks, err := h.service.LessonsByWeek(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, nil)
}

// WeekView godoc
// @Summary Get the day by period grid of one week
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param number path int true "Week number, starting at 1"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/weeks/{number} [get]
func (h *ScheduleHandler) WeekView(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week number must be a positive integer"))
		return
	}
	view, err := h.service.WeekView(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Activate godoc
// @Summary Activate a solved schedule version
// @Description Archives the previously active version of the semester.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /schedules/{id}/activate [post]
func (h *ScheduleHandler) Activate(c *gin.Context) {
	schedule, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete a schedule version and its lessons
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MoveLesson godoc
// @Summary Move a lesson to another slot, teacher or room
// @Description Rejected with 409 when the move introduces a conflict; the conflicts are listed in meta.conflicts.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param lessonId path string true "Lesson ID"
// @Param payload body dto.MoveLessonRequest true "New placement"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/lessons/{lessonId} [patch]
func (h *ScheduleHandler) MoveLesson(c *gin.Context) {
	var req dto.MoveLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	lesson, err := h.service.MoveLesson(c.Request.Context(), c.Param("id"), c.Param("lessonId"), req)
	if err != nil {
		var conflictErr *models.ScheduleConflictError
		if errors.As(err, &conflictErr) {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{
				Error: appErr,
				Meta:  map[string]interface{}{"conflicts": conflictErr.Errors},
			})
			return
		}
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "lessonId", lesson.ID)
	response.JSON(c, http.StatusOK, lesson, nil, middleware.ExtractMeta(c))
}
