package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	ingestapp "github.com/postrack/backend/internal/application/ingest"
	ledgerapp "github.com/postrack/backend/internal/application/ledger"
)

// PaymentHandler handles payment ledger HTTP requests
type PaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentService
	ingestService  *ingestapp.IngestService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	paymentService *ledgerapp.PaymentService,
	ingestService *ingestapp.IngestService,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		ingestService:  ingestService,
	}
}

// List godoc
// @Summary      List payments
// @Description  List ledger entries with optional merchant filter, search and paging
// @Tags         payments
// @Produce      json
// @Param        merchant_id query string false "Filter by merchant ID"
// @Param        search query string false "Search by receipt reference"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]ledgerapp.PaymentResponse}
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	var filter ledgerapp.PaymentListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	payments, total, err := h.paymentService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	h.SuccessWithMeta(c, payments, total, page, pageSize)
}

// Merge godoc
// @Summary      Merge pasted payments
// @Description  Merge a pasted settlement export into the ledger; existing receipts are backfilled, never overwritten
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body []map[string]any true "Payment rows in any supported header variant"
// @Success      200 {object} dto.Response{data=ledger.MergeResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/merge [post]
func (h *PaymentHandler) Merge(c *gin.Context) {
	var rows []map[string]any
	if err := c.ShouldBindJSON(&rows); err != nil {
		h.BadRequest(c, "Request body must be a JSON array of payment rows")
		return
	}

	result, err := h.paymentService.Merge(c.Request.Context(), rows)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// MergeCSV godoc
// @Summary      Upload payment CSV
// @Description  Parse a settlement CSV and merge it into the ledger
// @Tags         payments
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Payment CSV file"
// @Success      200 {object} dto.Response{data=ingestapp.PaymentImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/merge/csv [post]
func (h *PaymentHandler) MergeCSV(c *gin.Context) {
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

	result, err := h.ingestService.ImportPaymentsCSV(c.Request.Context(), header.Filename, data)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Fetch godoc
// @Summary      Fetch payments from the settlement feed
// @Description  Pull the upstream settlement feed once and merge the result
// @Tags         payments
// @Produce      json
// @Success      200 {object} dto.Response{data=ledger.MergeResult}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/fetch [post]
func (h *PaymentHandler) Fetch(c *gin.Context) {
	result, err := h.paymentService.FetchAndMerge(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Clear godoc
// @Summary      Clear the payment ledger
// @Description  Delete all ledger entries
// @Tags         payments
// @Produce      json
// @Success      204 "No Content"
// @Security     BearerAuth
// @Router       /payments [delete]
func (h *PaymentHandler) Clear(c *gin.Context) {
	if err := h.paymentService.Clear(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
