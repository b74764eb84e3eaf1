package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/services"
	"github.com/chaptershq/chapters/pkg/response"
)

// BTLHandler exposes the Between the Lines surface: eligibility, invites, and
// conversations.
type BTLHandler struct {
	eligibility *services.EligibilityService
	invites     *services.BTLInviteService
	threads     *services.ThreadService
}

func NewBTLHandler(eligibility *services.EligibilityService, invites *services.BTLInviteService, threads *services.ThreadService) *BTLHandler {
	return &BTLHandler{eligibility: eligibility, invites: invites, threads: threads}
}

// GET /api/btl/eligibility/:userID
func (h *BTLHandler) Eligibility(c *gin.Context) {
	result, err := h.eligibility.CanConnect(requestContext(c), currentUserID(c), c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// POST /api/btl/invites
func (h *BTLHandler) CreateInvite(c *gin.Context) {
	var req services.CreateInviteInput
	if !bindAndValidate(c, &req) {
		return
	}

	invite, err := h.invites.Create(requestContext(c), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invite)
}

// GET /api/btl/invites?status=
func (h *BTLHandler) ListInvites(c *gin.Context) {
	invites, err := h.invites.ListForUser(requestContext(c), currentUserID(c), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, invites, &response.Meta{Count: len(invites)})
}

// POST /api/btl/invites/:id/accept
func (h *BTLHandler) AcceptInvite(c *gin.Context) {
	invite, thread, err := h.invites.Accept(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"invite": invite,
		"thread": thread,
	})
}

// POST /api/btl/invites/:id/decline
func (h *BTLHandler) DeclineInvite(c *gin.Context) {
	invite, err := h.invites.Decline(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invite)
}

// GET /api/btl/conversations
func (h *BTLHandler) ListConversations(c *gin.Context) {
	threads, err := h.threads.ListForUser(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, threads, &response.Meta{Count: len(threads)})
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// POST /api/btl/conversations/:id/messages
func (h *BTLHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindAndValidate(c, &req) {
		return
	}

	message, err := h.threads.Send(requestContext(c), c.Param("id"), currentUserID(c), req.Content)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, message)
}

// GET /api/btl/conversations/:id/messages?after=&limit=
func (h *BTLHandler) ListMessages(c *gin.Context) {
	after := parseIntQuery(c, "after", 0)
	limit := int(parseIntQuery(c, "limit", 0))

	messages, err := h.threads.ListMessages(requestContext(c), c.Param("id"), currentUserID(c), after, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	meta := &response.Meta{Count: len(messages)}
	if len(messages) > 0 {
		meta.NextCursor = messages[len(messages)-1].Seq
	}
	response.SuccessWithMeta(c, http.StatusOK, messages, meta)
}

// POST /api/btl/conversations/:id/close
func (h *BTLHandler) CloseConversation(c *gin.Context) {
	thread, err := h.threads.Close(requestContext(c), c.Param("id"), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, thread)
}
