package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/labtest-api/middleware"
	"github.com/kendall-kelly/labtest-api/services"
	"github.com/kendall-kelly/labtest-api/utils"
	"github.com/rs/zerolog/log"
)

// ReportFormField is the multipart field carrying the PDF
const ReportFormField = "report_pdf"

// ReportController handles report upload and download
type ReportController struct {
	reports *services.ReportService
}

// NewReportController creates a report controller
func NewReportController(reports *services.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// Upload handles POST /upload_report - stores the PDF and completes the booking
func (rc *ReportController) Upload(c *gin.Context) {
	principal, _ := middleware.GetPrincipal(c)

	var in services.UploadInput
	if err := c.ShouldBind(&in); err != nil {
		redirectWith(c, middleware.FlashError, services.ErrValidation.Message, "/dashboard")
		return
	}
	// A missing part is reported by the service as NO_FILE_PART
	if fh, err := c.FormFile(ReportFormField); err == nil {
		in.File = fh
	}

	if _, err := rc.reports.Upload(c.Request.Context(), principal, in); err != nil {
		redirectError(c, err, "/dashboard")
		return
	}

	redirectWith(c, middleware.FlashSuccess, "Medical report (PDF) uploaded successfully!", "/dashboard")
}

// Download handles GET /download_report/:filename - streams a stored report
func (rc *ReportController) Download(c *gin.Context) {
	filename := c.Param("filename")

	file, err := rc.reports.Open(c.Request.Context(), filename)
	if err != nil {
		var uploadErr *utils.FileUploadError
		switch {
		case errors.As(err, &uploadErr):
			c.String(http.StatusBadRequest, uploadErr.Message)
		case errors.Is(err, services.ErrReportNotFound):
			c.String(http.StatusNotFound, services.ErrReportNotFound.Message)
		default:
			c.String(http.StatusInternalServerError, errorMessage(c, err))
		}
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("file", filename).Msg("failed to close report")
		}
	}()

	c.DataFromReader(http.StatusOK, -1, "application/pdf", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", filename),
		"Cache-Control":       "private, no-store",
	})
}
