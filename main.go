package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MrN7King/BookstorePhase1-sub001/config"
	"github.com/MrN7King/BookstorePhase1-sub001/ingest"
	"github.com/MrN7King/BookstorePhase1-sub001/models"
	"github.com/MrN7King/BookstorePhase1-sub001/repository"
	"github.com/MrN7King/BookstorePhase1-sub001/routes"
	"github.com/MrN7King/BookstorePhase1-sub001/storage"
	"github.com/MrN7King/BookstorePhase1-sub001/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	genres, closeCatalog, err := newGenreRepository(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("catalog: %v", err)
	}
	defer closeCatalog()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("storage provider: %v", err)
	}
	signer, err := newSigner(cfg)
	if err != nil {
		utils.Sugar.Fatalf("download signer: %v", err)
	}

	store, err := storage.NewTempStore(cfg.UploadTempDir)
	if err != nil {
		utils.Sugar.Fatalf("staging: %v", err)
	}
	// Orphans only exist after a crash between staging and release
	storage.StartTempJanitor(ctx, store, 5*time.Minute, time.Duration(cfg.UploadOrphanMaxAgeMin)*time.Minute, utils.Logger)

	pipeline := ingest.NewPipeline(ingest.Config{
		FieldName:    cfg.UploadField,
		MaxFiles:     1,
		MaxSizeBytes: cfg.UploadMaxSizeBytes,
		AllowedTypes: cfg.UploadAllowedTypes,
		Folder:       cfg.UploadFolder,
		MaxWidth:     cfg.UploadMaxWidth,
		MaxHeight:    cfg.UploadMaxHeight,
		Timeout:      time.Duration(cfg.UploadTimeoutSec) * time.Second,
	}, store, provider, utils.Logger)

	deps := routes.Deps{
		Config:   cfg,
		Pipeline: pipeline,
		Genres:   genres,
		Mailer:   utils.NewSMTPMailer(cfg),
		Logger:   utils.Logger,
	}
	if signer != nil {
		deps.Signer = signer
	}
	r := routes.SetupRouter(deps)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func newGenreRepository(ctx context.Context, cfg config.AppConfig) (repository.GenreRepository, func(), error) {
	switch strings.ToLower(cfg.CatalogDriver) {
	case "mongo", "mongodb":
		client, db, err := config.InitMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				utils.Logger.Warn("mongo disconnect", zap.Error(err))
			}
		}
		return repository.NewMongoGenreRepository(db), closeFn, nil
	case "mysql", "":
		db, err := config.InitDatabase(cfg, &models.Genre{})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return repository.NewGormGenreRepository(db), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog driver %q", cfg.CatalogDriver)
	}
}

func newProvider(ctx context.Context, cfg config.AppConfig) (storage.Provider, error) {
	switch strings.ToLower(cfg.StorageProvider) {
	case "s3", "minio", "b2":
		client, err := storage.NewMinioClient(s3Config(cfg))
		if err != nil {
			return nil, err
		}
		return storage.NewS3Provider(ctx, client, cfg.S3Bucket, cfg.S3PublicBase)
	case "cloudinary", "":
		return storage.NewCloudinaryProvider(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

// newSigner returns nil when no download bucket is configured.
func newSigner(cfg config.AppConfig) (*storage.PresignSigner, error) {
	if cfg.DownloadBucket == "" {
		return nil, nil
	}
	client, err := storage.NewMinioClient(s3Config(cfg))
	if err != nil {
		return nil, err
	}
	return storage.NewPresignSigner(client, cfg.DownloadBucket), nil
}

func s3Config(cfg config.AppConfig) storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		UseSSL:    cfg.S3UseSSL,
	}
}
