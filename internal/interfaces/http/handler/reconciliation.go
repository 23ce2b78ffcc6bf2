package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	ingestapp "github.com/postrack/backend/internal/application/ingest"
	reconcileapp "github.com/postrack/backend/internal/application/reconcile"
)

// ReconciliationHandler handles assignment uploads and reconciliation reads
type ReconciliationHandler struct {
	BaseHandler
	reconciliationService *reconcileapp.ReconciliationService
	ingestService         *ingestapp.IngestService
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(
	reconciliationService *reconcileapp.ReconciliationService,
	ingestService *ingestapp.IngestService,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		ingestService:         ingestService,
	}
}

// UploadAssignments godoc
// @Summary      Upload assignment snapshot
// @Description  Replace the assignment snapshot and reconcile terminal stock against it
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        request body []map[string]any true "Assignment rows as exported from the switch"
// @Success      200 {object} dto.Response{data=reconcileapp.UploadResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation/assignments [post]
func (h *ReconciliationHandler) UploadAssignments(c *gin.Context) {
	var rows []map[string]any
	if err := c.ShouldBindJSON(&rows); err != nil {
		h.BadRequest(c, "Request body must be a JSON array of assignment rows")
		return
	}

	result, err := h.reconciliationService.UploadAssignments(c.Request.Context(), rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// UploadAssignmentsCSV godoc
// @Summary      Upload assignment CSV
// @Description  Parse a CSV export and run the same snapshot replacement and reconciliation
// @Tags         reconciliation
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Assignment CSV file"
// @Success      200 {object} dto.Response{data=reconcileapp.UploadResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reconciliation/assignments/csv [post]
func (h *ReconciliationHandler) UploadAssignmentsCSV(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.BadRequest(c, "Failed to read uploaded file")
		return
	}

	result, err := h.ingestService.ImportAssignmentsCSV(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Summaries godoc
// @Summary      Merchant settlement summaries
// @Description  Per-merchant terminal counts, expected amounts and payment status
// @Tags         reconciliation
// @Produce      json
// @Success      200 {object} dto.Response{data=[]reconcile.MerchantSummary}
// @Security     BearerAuth
// @Router       /reconciliation/summaries [get]
func (h *ReconciliationHandler) Summaries(c *gin.Context) {
	result, err := h.reconciliationService.Summaries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Issues godoc
// @Summary      Data quality issues
// @Description  Anomalies detected in the current assignment snapshot
// @Tags         reconciliation
// @Produce      json
// @Success      200 {object} dto.Response{data=[]reconcile.DataQualityIssue}
// @Security     BearerAuth
// @Router       /reconciliation/issues [get]
func (h *ReconciliationHandler) Issues(c *gin.Context) {
	result, err := h.reconciliationService.Issues(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Overview godoc
// @Summary      Reconciliation overview
// @Description  Dashboard payload with fleet counts, settlement totals and issue counts
// @Tags         reconciliation
// @Produce      json
// @Success      200 {object} dto.Response{data=reconcileapp.OverviewResponse}
// @Security     BearerAuth
// @Router       /reconciliation/overview [get]
func (h *ReconciliationHandler) Overview(c *gin.Context) {
	result, err := h.reconciliationService.Overview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
