package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MrN7King/BookstorePhase1-sub001/config"
	"github.com/MrN7King/BookstorePhase1-sub001/controllers"
	"github.com/MrN7King/BookstorePhase1-sub001/ingest"
	"github.com/MrN7King/BookstorePhase1-sub001/middleware"
	"github.com/MrN7King/BookstorePhase1-sub001/repository"
	"github.com/MrN7King/BookstorePhase1-sub001/storage"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Config   config.AppConfig
	Pipeline *ingest.Pipeline
	Genres   repository.GenreRepository
	Mailer   utils.MailSender
	// Signer is optional; /download-url is only mounted when it is set.
	Signer storage.URLSigner
	Logger *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, utils.RotateFrom(cfg))
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	uploadCfg := d.Pipeline.Config()
	uploadController := controllers.NewUploadController(d.Pipeline, logger)
	genreController := controllers.NewGenreController(d.Genres)
	contactController := controllers.NewContactController(d.Mailer, cfg.ContactRecipient, logger)
	configController := controllers.NewConfigController(uploadCfg)

	limiter := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	uploadFilter := middleware.UploadFilter(uploadCfg.FieldName, uploadCfg.MaxSizeBytes, d.Pipeline.IsAllowedType)

	r.POST("/upload", limiter, uploadFilter, uploadController.Upload)
	r.GET("/genres", genreController.ListGenres)
	r.GET("/genres/:name", genreController.GetGenre)
	r.POST("/contact", limiter, contactController.SendMessage)
	r.GET("/config/upload", configController.GetUploadLimits)

	api := r.Group("/api")
	api.POST("/upload", limiter, uploadFilter, uploadController.Upload)

	if d.Signer != nil {
		downloadController := controllers.NewDownloadController(d.Signer, time.Duration(cfg.DownloadURLTTLSec)*time.Second)
		r.GET("/download-url", limiter, downloadController.GetDownloadURL)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}
