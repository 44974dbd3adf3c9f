package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/handler"
	"github.com/noah-isme/tutoring-api/internal/middleware"
	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/internal/service"
	"github.com/noah-isme/tutoring-api/pkg/config"
	"github.com/noah-isme/tutoring-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutoring-api/pkg/middleware/requestid"
)

type routeDeps struct {
	auth      *service.AuthService
	requests  *handler.TutoringRequestHandler
	tutorings *handler.TutoringHandler
	feedback  *handler.FeedbackHandler
	metrics   *service.MetricsService
	observers *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routeDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.observers.Health)
	r.GET("/ready", deps.observers.Ready)
	r.GET("/metrics", deps.observers.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.auth))

	admin := middleware.RequireRoles(models.RoleAdministrator)
	assigners := middleware.RequireRoles(models.RoleAdministrator, models.RoleTutor)

	requests := api.Group("/tutoring-requests")
	requests.POST("", middleware.RequireRoles(models.RoleTutee), deps.requests.Submit)
	requests.GET("/:id", deps.requests.Get)
	requests.PATCH("/:id/status", admin, deps.requests.UpdateStatus)

	tutorings := api.Group("/tutorings")
	tutorings.POST("", assigners, deps.tutorings.Create)
	tutorings.GET("", deps.tutorings.List)
	tutorings.GET("/:id", deps.tutorings.Get)
	tutorings.GET("/:id/summary", deps.tutorings.Summary)
	tutorings.POST("/:id/complete", deps.tutorings.Complete)
	tutorings.POST("/:id/cancellation", deps.tutorings.RequestCancellation)
	tutorings.POST("/:id/cancellation/confirm", admin, deps.tutorings.ConfirmCancellation)
	tutorings.POST("/:id/feedback", deps.feedback.Submit)
	tutorings.GET("/:id/feedback", deps.feedback.List)

	return r
}
