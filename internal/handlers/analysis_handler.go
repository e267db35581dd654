package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/certprep-labs/analysis-service/internal/services"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type AnalysisHandler struct {
	BaseHandler
	reportService services.ReportService
	exportService services.ExportService
}

func NewAnalysisHandler(
	reportService services.ReportService,
	exportService services.ExportService,
	logger utils.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		BaseHandler:   NewBaseHandler(logger),
		reportService: reportService,
		exportService: exportService,
	}
}

// GetAnalysis returns the caller's current analysis report
// @Summary Get analysis report
// @Description Returns the current AI analysis report, served from the weekly store unless force=true
// @Tags analysis
// @Produce json
// @Param force query bool false "Bypass the stored report and regenerate"
// @Success 200 {object} SuccessResponse{data=services.AnalysisReportResult}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /analysis [get]
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	userID := c.GetString(userIDKey)

	force := false
	if raw := c.Query("force"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid force parameter",
				Details: err.Error(),
			})
			return
		}
		force = parsed
	}

	h.LogRequest(c, "Fetching analysis report", "force", force)

	result, err := h.reportService.GetCachedAnalysis(c.Request.Context(), userID, force)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RefreshAnalysis forces a fresh analysis run for the caller
// @Summary Refresh analysis report
// @Description Regenerates the report through the full AI pipeline, replacing the stored one
// @Tags analysis
// @Produce json
// @Success 200 {object} SuccessResponse{data=services.AnalysisReportResult}
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 504 {object} ErrorResponse
// @Router /analysis/refresh [post]
func (h *AnalysisHandler) RefreshAnalysis(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.LogRequest(c, "Forcing analysis refresh")

	result, err := h.reportService.GetCachedAnalysis(c.Request.Context(), userID, true)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportAnalysis downloads the current report as an Excel workbook
// @Summary Export analysis report
// @Description Renders the stored report as an xlsx file
// @Tags analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /analysis/export [get]
func (h *AnalysisHandler) ExportAnalysis(c *gin.Context) {
	userID := c.GetString(userIDKey)

	h.LogRequest(c, "Exporting analysis report")

	content, err := h.exportService.ExportReportToExcel(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("analysis-report-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		content)
}

// RefreshExpiredReports regenerates every expired or missing report
// @Summary Refresh expired reports
// @Description Internal batch endpoint used by the weekly scheduler and ops tooling
// @Tags internal
// @Produce json
// @Success 200 {object} SuccessResponse{data=services.RefreshSummary}
// @Failure 500 {object} ErrorResponse
// @Router /internal/reports/refresh-expired [post]
func (h *AnalysisHandler) RefreshExpiredReports(c *gin.Context) {
	h.LogRequest(c, "Running batch report refresh")

	summary, err := h.reportService.RefreshAllExpiredReports(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Batch refresh finished",
		Data:    summary,
	})
}
