package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/middleware"
	"github.com/noah-isme/semester-scheduler/internal/service"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateSemesterRequest, actorID string) (*dto.GenerateSemesterResponse, error)
	Enqueue(ctx context.Context, req dto.GenerateSemesterRequest, actorID string) (*dto.GenerationJobStatus, error)
	JobStatus(id string) (*dto.GenerationJobStatus, error)
}

// ScheduleGeneratorHandler exposes the semester generation endpoints.
type ScheduleGeneratorHandler struct {
	service scheduleGenerator
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc *service.ScheduleGeneratorService) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Generate a semester schedule
// @Description Runs the constraint search for every active group of the semester and stores the result as a new draft version. With async=true the run is queued and a job id is returned.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSemesterRequest true "Generation parameters"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}

	if req.Async {
		status, err := h.service.Enqueue(c.Request.Context(), req, actorID(c))
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Location", strings.TrimSuffix(c.FullPath(), "/generate")+"/jobs/"+status.JobID)
		response.Accepted(c, status)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "outcome", result.Outcome)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}

// JobStatus godoc
// @Summary Get the state of a queued generation
// @Tags Scheduler
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/jobs/{jobId} [get]
func (h *ScheduleGeneratorHandler) JobStatus(c *gin.Context) {
	status, err := h.service.JobStatus(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
