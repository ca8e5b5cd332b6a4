package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/loomnote/synthesis-backend/internal/handlers"
	"github.com/loomnote/synthesis-backend/internal/platform/envutil"
)

type RouterConfig struct {
	SessionHandler *handlers.SessionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := strings.Split(envutil.Str("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api/v1")
	{
		api.POST("/sessions", cfg.SessionHandler.Submit)
		api.GET("/sessions/:id/status", cfg.SessionHandler.Status)
		api.GET("/sessions/:id/results", cfg.SessionHandler.Results)
		api.GET("/sessions/:id/report", cfg.SessionHandler.Report)
	}

	return router
}
