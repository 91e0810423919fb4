package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/models"
	"github.com/noah-isme/semester-scheduler/internal/service"
	"github.com/noah-isme/semester-scheduler/pkg/response"
)

type semesterCalendar interface {
	Weeks(ctx context.Context, semesterID string) ([]models.Week, error)
	GenerateWeeks(ctx context.Context, semesterID string) (*dto.GenerateWeeksResponse, error)
}

// SemesterHandler manages the week calendar of semesters.
type SemesterHandler struct {
	service semesterCalendar
}

// NewSemesterHandler constructs the handler.
func NewSemesterHandler(svc *service.SemesterService) *SemesterHandler {
	return &SemesterHandler{service: svc}
}

// Weeks godoc
// @Summary List the weeks of a semester
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Router /semesters/{id}/weeks [get]
func (h *SemesterHandler) Weeks(c *gin.Context) {
	weeks, err := h.service.Weeks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, nil)
}

// GenerateWeeks godoc
// @Summary Rebuild the weeks of a semester from its date range
// @Tags Semesters
// @Produce json
// @Param id path string true "Semester ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /semesters/{id}/weeks [post]
func (h *SemesterHandler) GenerateWeeks(c *gin.Context) {
	result, err := h.service.GenerateWeeks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
