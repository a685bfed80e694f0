package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventia/backend/internal/auth"
	"github.com/eventia/backend/internal/events"
	"github.com/eventia/backend/internal/metrics"
	"github.com/eventia/backend/internal/middleware"
	"github.com/eventia/backend/internal/notifications"
	"github.com/eventia/backend/internal/registrations"
)

// routerConfig carries the HTTP policy knobs from config.Config.
type routerConfig struct {
	AllowedOrigins     []string
	BodyLimit          int64
	RequireToken       bool
	LoginRatePerMinute int
}

// handlers groups the feature handlers mounted under /api. WS is optional.
type handlers struct {
	Auth          *auth.Handler
	Events        *events.Handler
	Registrations *registrations.Handler
	Notifications *notifications.Handler
	WS            gin.HandlerFunc
	Health        gin.HandlerFunc
}

func newRouter(cfg routerConfig, h handlers, jwtService *auth.JWTService, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(metrics.Middleware())

	router.GET("/health", h.Health)
	router.GET("/metrics", metrics.Handler())

	api := router.Group("/api")
	api.Use(middleware.BodyLimit(cfg.BodyLimit))

	// Auth (public)
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", limiter.Middleware(), h.Auth.Login)
		authGroup.POST("/register", h.Auth.Register)
	}

	// Catalog reads (token optional)
	public := api.Group("")
	public.Use(middleware.JWT(jwtService, false))
	{
		public.GET("/events", h.Events.List)
		public.GET("/events/:id", h.Events.Get)
	}

	// Mutations and per-user reads. A token is enforced only when configured;
	// a supplied token always has to match the acting user.
	protected := api.Group("")
	protected.Use(middleware.JWT(jwtService, cfg.RequireToken))
	{
		protected.POST("/events", h.Events.Create)
		protected.PUT("/events/:id", h.Events.Update)
		protected.DELETE("/events/:id", h.Events.Delete)

		protected.POST("/events/:id/register", h.Registrations.Register)
		protected.POST("/events/:id/unregister", h.Registrations.Unregister)
		protected.GET("/registrations/user/:userId", h.Registrations.ListForUser)

		protected.GET("/notifications/user/:userId", h.Notifications.ListForUser)
		protected.PATCH("/notifications/:id/read", h.Notifications.MarkRead)
	}

	// WebSocket (token in query; no Authorization header required)
	if h.WS != nil {
		api.GET("/ws/notifications", h.WS)
	}
	return router
}
