package api

import (
	"strings"

	"github.com/RishiKendai/provenance/internal/config"
	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, handler *Handler) *gin.Engine {
	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(MetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		api.POST("/analyze/text", handler.AnalyzeText)
		api.POST("/analyze/code", handler.AnalyzeCode)
		api.POST("/documents", handler.SubmitDocument)
		api.GET("/reports/:assignment_id", handler.GetReport)
		api.GET("/status/:assignment_id", handler.GetStatus)
		api.POST("/references", handler.AddReference)
		api.POST("/corpus", handler.IngestCorpus)
		api.GET("/corpus/stats", handler.CorpusStats)
	}

	return router
}
