package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/semester-scheduler/internal/dto"
	"github.com/noah-isme/semester-scheduler/internal/service"
	appErrors "github.com/noah-isme/semester-scheduler/pkg/errors"
	"github.com/noah-isme/semester-scheduler/pkg/response"
)

type scheduleExporter interface {
	Export(ctx context.Context, scheduleID string, query dto.ExportQuery) (*service.ExportFile, error)
}

// ExportHandler renders schedules as downloadable files.
type ExportHandler struct {
	service scheduleExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export a schedule as CSV or PDF
// @Tags Schedules
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "csv (default) or pdf"
// @Param view query string false "group (default), teacher or room"
// @Param resourceId query string false "Restrict to one group, teacher or room"
// @Success 200 {file} file
// @Router /schedules/{id}/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export parameters"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Content)
}
