package api

import (
	"github.com/gin-gonic/gin"

	iauth "github.com/chaptershq/chapters/internal/auth"
	"github.com/chaptershq/chapters/internal/handlers"
)

func registerAuthRoutes(r *gin.Engine, api *gin.RouterGroup, requireAuth gin.HandlerFunc, svcs *Services, jwt *iauth.JWTService) {
	handler := handlers.NewAuthHandler(svcs.Users, jwt)

	auth := r.Group("/api/auth")
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)

	api.GET("/auth/me", requireAuth, handler.Me)
}
