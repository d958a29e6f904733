package api

import (
	"github.com/Conceptual-Machines/melody-dataset/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/melody-dataset/internal/api/middleware"
	"github.com/Conceptual-Machines/melody-dataset/internal/config"
	"github.com/Conceptual-Machines/melody-dataset/internal/dataset"
	"github.com/Conceptual-Machines/melody-dataset/internal/metrics"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies wires the router. DB, Vocabulary and CloudWatch are optional.
type Dependencies struct {
	DB         *gorm.DB
	Pipeline   config.Pipeline
	Vocabulary *dataset.Vocabulary
	CloudWatch *metrics.Client
	Version    string
}

func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.CloudWatch))

	router.Use(apimiddleware.CORS())

	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Pipeline, deps.Vocabulary)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	encodeHandler, err := handlers.NewEncodeHandler(deps.Pipeline)
	if err != nil {
		return nil, err
	}
	vocabularyHandler := handlers.NewVocabularyHandler(deps.Vocabulary)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/encode", encodeHandler.Encode)
		v1.GET("/vocabulary", vocabularyHandler.GetVocabulary)
		v1.POST("/ids", vocabularyHandler.ToIDs)
	}

	return router, nil
}
