// Package api assembles the HTTP surface: middleware, handlers, and routes.
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/chaptershq/chapters/internal/app"
	iauth "github.com/chaptershq/chapters/internal/auth"
	"github.com/chaptershq/chapters/internal/handlers"
	"github.com/chaptershq/chapters/internal/middleware"
	"github.com/chaptershq/chapters/internal/services"
)

// NewRouter builds the Gin engine, wires middleware, and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, cfg *app.Config, rateStore middleware.RateStore) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	svcs, err := buildServices(db)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if cfg.Server.RateLimit.Enabled {
		r.Use(middleware.RateLimit(rateStore, cfg.Server.RateLimit.MaxRequests, cfg.Server.RateLimit.Window))
	}

	// Public endpoints
	r.GET("/health", handlers.Health())
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(jwt)
	api := r.Group("/api")

	registerAuthRoutes(r, api, requireAuth, svcs, jwt)
	registerFollowRoutes(api, requireAuth, svcs)
	registerChapterRoutes(api, requireAuth, svcs)
	registerBTLRoutes(api, requireAuth, svcs)
	registerModerationRoutes(api, requireAuth, svcs)

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

// Services bundles the wired service layer for route registration.
type Services struct {
	Users       *services.UserService
	Quota       *services.QuotaService
	Follows     *services.FollowService
	Chapters    *services.ChapterService
	Eligibility *services.EligibilityService
	Invites     *services.BTLInviteService
	Threads     *services.ThreadService
	Moderation  *services.ModerationService
}

func buildServices(db *gorm.DB) (*Services, error) {
	quota, err := services.NewQuotaService(db)
	if err != nil {
		return nil, err
	}
	moderation, err := services.NewModerationService(db)
	if err != nil {
		return nil, err
	}
	eligibility, err := services.NewEligibilityService(db)
	if err != nil {
		return nil, err
	}
	users, err := services.NewUserService(db, quota)
	if err != nil {
		return nil, err
	}
	follows, err := services.NewFollowService(db, moderation)
	if err != nil {
		return nil, err
	}
	chapters, err := services.NewChapterService(db, quota, moderation)
	if err != nil {
		return nil, err
	}
	invites, err := services.NewBTLInviteService(db, eligibility)
	if err != nil {
		return nil, err
	}
	threads, err := services.NewThreadService(db)
	if err != nil {
		return nil, err
	}

	return &Services{
		Users:       users,
		Quota:       quota,
		Follows:     follows,
		Chapters:    chapters,
		Eligibility: eligibility,
		Invites:     invites,
		Threads:     threads,
		Moderation:  moderation,
	}, nil
}
