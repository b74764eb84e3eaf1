package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/services"
	"github.com/chaptershq/chapters/pkg/response"
)

// ModerationHandler exposes blocks and reports.
type ModerationHandler struct {
	moderation *services.ModerationService
}

func NewModerationHandler(moderation *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

// POST /api/moderation/blocks/:userID
func (h *ModerationHandler) Block(c *gin.Context) {
	block, err := h.moderation.Block(requestContext(c), currentUserID(c), c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, block)
}

// DELETE /api/moderation/blocks/:userID
func (h *ModerationHandler) Unblock(c *gin.Context) {
	if err := h.moderation.Unblock(requestContext(c), currentUserID(c), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unblocked": true})
}

// GET /api/moderation/blocks
func (h *ModerationHandler) ListBlocks(c *gin.Context) {
	blocks, err := h.moderation.ListBlocks(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, blocks, &response.Meta{Count: len(blocks)})
}

// POST /api/moderation/reports
func (h *ModerationHandler) Report(c *gin.Context) {
	var req services.CreateReportInput
	if !bindAndValidate(c, &req) {
		return
	}

	report, err := h.moderation.Report(requestContext(c), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, report)
}

// GET /api/moderation/reports
func (h *ModerationHandler) ListReports(c *gin.Context) {
	reports, err := h.moderation.ListReports(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, reports, &response.Meta{Count: len(reports)})
}
