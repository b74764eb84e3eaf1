package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chaptershq/chapters/internal/handlers"
)

func registerBTLRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc, svcs *Services) {
	handler := handlers.NewBTLHandler(svcs.Eligibility, svcs.Invites, svcs.Threads)

	btl := api.Group("/btl", requireAuth)

	btl.GET("/eligibility/:userID", handler.Eligibility)

	btl.POST("/invites", handler.CreateInvite)
	btl.GET("/invites", handler.ListInvites)
	btl.POST("/invites/:id/accept", handler.AcceptInvite)
	btl.POST("/invites/:id/decline", handler.DeclineInvite)

	btl.GET("/conversations", handler.ListConversations)
	btl.GET("/conversations/:id/messages", handler.ListMessages)
	btl.POST("/conversations/:id/messages", handler.SendMessage)
	btl.POST("/conversations/:id/close", handler.CloseConversation)
}
