package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/handlers"
)

func registerChapterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, svcs *Services) {
	handler := handlers.NewChapterHandler(svcs.Chapters)

	chapters := api.Group("/chapters", requireAuth)
	chapters.POST("", handler.Publish)
	chapters.GET("/:id", handler.Get)

	api.GET("/books/:userID/chapters", requireAuth, handler.ListByAuthor)
}
