package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	terminalapp "github.com/postrack/backend/internal/application/terminal"
)

// TerminalHandler handles terminal fleet HTTP requests
type TerminalHandler struct {
	BaseHandler
	terminalService *terminalapp.TerminalService
}

// NewTerminalHandler creates a new terminal handler
func NewTerminalHandler(terminalService *terminalapp.TerminalService) *TerminalHandler {
	return &TerminalHandler{
		terminalService: terminalService,
	}
}

// Import godoc
// @Summary      Import terminal serials
// @Description  Bulk-import procured terminal serials; duplicates are skipped
// @Tags         terminals
// @Accept       json
// @Produce      json
// @Param        request body terminalapp.ImportTerminalsRequest true "Serials to import"
// @Success      200 {object} dto.Response{data=terminalapp.ImportResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /terminals/import [post]
func (h *TerminalHandler) Import(c *gin.Context) {
	var req terminalapp.ImportTerminalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.terminalService.Import(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Issue godoc
// @Summary      Issue a terminal
// @Description  Hand a terminal from stock to a merchant
// @Tags         terminals
// @Accept       json
// @Produce      json
// @Param        serial path string true "Terminal serial"
// @Param        request body terminalapp.IssueTerminalRequest true "Issuance details"
// @Success      200 {object} dto.Response{data=terminalapp.TerminalResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /terminals/{serial}/issue [post]
func (h *TerminalHandler) Issue(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Terminal serial is required")
		return
	}

	var req terminalapp.IssueTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.terminalService.Issue(c.Request.Context(), serial, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Return godoc
// @Summary      Return a terminal
// @Description  Take an issued terminal back into stock
// @Tags         terminals
// @Accept       json
// @Produce      json
// @Param        serial path string true "Terminal serial"
// @Param        request body terminalapp.ReturnTerminalRequest false "Return details"
// @Success      200 {object} dto.Response{data=terminalapp.TerminalResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /terminals/{serial}/return [post]
func (h *TerminalHandler) Return(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Terminal serial is required")
		return
	}

	// The body is optional; a bare POST returns the terminal without notes
	var req terminalapp.ReturnTerminalRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.terminalService.Return(c.Request.Context(), serial, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ChangeStatus godoc
// @Summary      Change terminal status
// @Description  Administrative status change, e.g. marking a terminal faulty or scrapped
// @Tags         terminals
// @Accept       json
// @Produce      json
// @Param        serial path string true "Terminal serial"
// @Param        request body terminalapp.ChangeStatusRequest true "Target status"
// @Success      200 {object} dto.Response{data=terminalapp.TerminalResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /terminals/{serial}/status [post]
func (h *TerminalHandler) ChangeStatus(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Terminal serial is required")
		return
	}

	var req terminalapp.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.terminalService.ChangeStatus(c.Request.Context(), serial, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
// @Summary      List terminals
// @Description  List terminals with optional status filter, search and paging
// @Tags         terminals
// @Produce      json
// @Param        status query string false "Filter by lifecycle status"
// @Param        search query string false "Search by serial prefix"
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Success      200 {object} dto.Response{data=[]terminalapp.TerminalResponse}
// @Security     BearerAuth
// @Router       /terminals [get]
func (h *TerminalHandler) List(c *gin.Context) {
	var filter terminalapp.TerminalListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	terminals, total, err := h.terminalService.List(c.Request.Context(), filter)
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

	h.SuccessWithMeta(c, terminals, total, page, pageSize)
}

// Get godoc
// @Summary      Get a terminal
// @Description  Fetch one terminal with its issuance history
// @Tags         terminals
// @Produce      json
// @Param        serial path string true "Terminal serial"
// @Success      200 {object} dto.Response{data=terminalapp.TerminalDetailResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /terminals/{serial} [get]
func (h *TerminalHandler) Get(c *gin.Context) {
	serial := c.Param("serial")
	if serial == "" {
		h.BadRequest(c, "Terminal serial is required")
		return
	}

	result, err := h.terminalService.Get(c.Request.Context(), serial)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Stats godoc
// @Summary      Terminal fleet statistics
// @Description  Fleet size, per-status counts and open issuance count
// @Tags         terminals
// @Produce      json
// @Success      200 {object} dto.Response{data=terminalapp.StockStatsResponse}
// @Security     BearerAuth
// @Router       /terminals/stats [get]
func (h *TerminalHandler) Stats(c *gin.Context) {
	result, err := h.terminalService.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reset godoc
// @Summary      Reset the terminal fleet
// @Description  Delete all terminals and their issuance history
// @Tags         terminals
// @Produce      json
// @Success      204 "No Content"
// @Security     BearerAuth
// @Router       /terminals/reset [post]
func (h *TerminalHandler) Reset(c *gin.Context) {
	if err := h.terminalService.Reset(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
