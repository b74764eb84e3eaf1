package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/services"
	"github.com/chaptershq/chapters/pkg/response"
)

// FollowHandler exposes the follow graph.
type FollowHandler struct {
	follows *services.FollowService
}

func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// POST /api/follows/:userID
func (h *FollowHandler) Follow(c *gin.Context) {
	follow, err := h.follows.Follow(requestContext(c), currentUserID(c), c.Param("userID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, follow)
}

// DELETE /api/follows/:userID
func (h *FollowHandler) Unfollow(c *gin.Context) {
	if err := h.follows.Unfollow(requestContext(c), currentUserID(c), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"unfollowed": true})
}
