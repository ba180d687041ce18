package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/24ep/mdm-sub019/internal/handler"
	"github.com/24ep/mdm-sub019/internal/middleware"
	"github.com/24ep/mdm-sub019/pkg/config"
	"github.com/24ep/mdm-sub019/pkg/database"
	"github.com/24ep/mdm-sub019/pkg/jwtutil"
	"github.com/24ep/mdm-sub019/pkg/logger"
	"github.com/24ep/mdm-sub019/pkg/provider"
	"github.com/24ep/mdm-sub019/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg.Log.Level, cfg.Server.Env)
	log := logger.GetLogger()
	log.Info("Starting schema engine service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize external collaborator clients
	handler.InitProviders(
		provider.NewStorageClient(cfg.Provider.StorageURL, log),
		provider.NewDirectoryClient(cfg.Provider.DirectoryURL, log),
	)
	log.Info("Collaborator clients initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(middleware.MetricsMiddleware)

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Schema registry
	models := api.Group("/data-models")
	models.GET("", handler.ListDataModels)
	models.POST("", handler.CreateDataModel)
	models.GET("/:id", handler.GetDataModel)
	models.PUT("/:id", handler.UpdateDataModel)
	models.DELETE("/:id", handler.DeleteDataModel)
	models.GET("/:id/attributes", handler.ListAttributes)
	models.POST("/:id/attributes", handler.CreateAttribute)
	models.PUT("/:id/spaces", handler.ReplaceSpaces)

	attributes := api.Group("/attributes")
	attributes.PUT("/:id", handler.UpdateAttribute)
	attributes.DELETE("/:id", handler.DeleteAttribute)

	// Value store
	models.POST("/:id/records", handler.CreateRecord)
	models.GET("/:id/records", handler.ListRecords)
	records := api.Group("/records")
	records.GET("/:id", handler.GetRecord)
	records.PUT("/:id", handler.UpdateRecord)
	records.DELETE("/:id", handler.DeleteRecord)

	// Table views
	models.GET("/:id/view", handler.GetView)
	views := api.Group("/views")
	views.PUT("/:id/columns", handler.ReorderColumns)
	views.PUT("/:id/columns/:attribute_id/hidden", handler.SetColumnHidden)
	views.POST("/:id/combo-columns", handler.UpsertComboColumn)
	views.DELETE("/:id/combo-columns/:attribute_id", handler.RemoveComboColumn)

	// External collaborators
	api.GET("/spaces/:id/users", handler.ListSpaceUsers)
	api.POST("/attachments", handler.UploadAttachment)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
