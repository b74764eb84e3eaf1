package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/handlers"
)

func registerModerationRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, svcs *Services) {
	handler := handlers.NewModerationHandler(svcs.Moderation)

	moderation := api.Group("/moderation", requireAuth)
	moderation.POST("/blocks/:userID", handler.Block)
	moderation.DELETE("/blocks/:userID", handler.Unblock)
	moderation.GET("/blocks", handler.ListBlocks)
	moderation.POST("/reports", handler.Report)
	moderation.GET("/reports", handler.ListReports)
}
