package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/handlers"
)

func registerFollowRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, svcs *Services) {
	handler := handlers.NewFollowHandler(svcs.Follows)

	follows := api.Group("/follows", requireAuth)
	follows.POST("/:userID", handler.Follow)
	follows.DELETE("/:userID", handler.Unfollow)
}
