// Package bootstrap wires repositories and services for the API and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-sync/internal/extract"
	"github.com/noah-isme/timetable-sync/internal/repository"
	"github.com/noah-isme/timetable-sync/internal/service"
	"github.com/noah-isme/timetable-sync/pkg/cache"
	"github.com/noah-isme/timetable-sync/pkg/config"
	"github.com/noah-isme/timetable-sync/pkg/database"
	"github.com/noah-isme/timetable-sync/pkg/storage"
)

// Container holds the process-wide dependencies.
type Container struct {
	DB    *sqlx.DB
	Redis *redis.Client

	Metrics        *service.MetricsService
	Cache          *service.CacheService
	Settings       *service.SettingsService
	Occupancy      *service.OccupancyService
	Sync           *service.SyncService
	CalendarExport *service.CalendarExportService
}

// New connects to Postgres (and Redis when reachable) and builds every service.
// Redis is optional: without it caching and change notifications are disabled.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, caching and notifications disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Location()

	lessonRepo := repository.NewLessonRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	callRepo := repository.NewCallRepository(db)
	catalogueRepo := repository.NewCatalogueRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logger)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger, cfg.Cache.Enabled)

	settingsSvc := service.NewSettingsService(settingsRepo, cfg.Schedule.MaxWeek, validate, logger)
	occupancySvc := service.NewOccupancyService(roomRepo, callRepo, lessonRepo, settingsSvc, cacheSvc, validate, logger, service.OccupancyConfig{
		Location: loc,
		CacheTTL: cfg.Cache.TTL,
	})
	calendarSvc := service.NewCalendarExportService(lessonRepo, settingsSvc, logger, service.CalendarExportConfig{Location: loc})

	catalogueSvc := service.NewCatalogueService(catalogueRepo, logger)
	reconcileSvc := service.NewReconcileService(db, catalogueSvc, lessonRepo, settingsSvc, validate, logger)
	detector := service.NewChangeDetector(service.ChangeDetectorConfig{
		CompareSubgroup:   cfg.Schedule.CompareSubgroup,
		CompareLessonType: cfg.Schedule.CompareLessonType,
	}, logger)

	sources, err := discoverers(cfg.Sync, validate, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	params := service.SyncServiceParams{
		Sources:     sources,
		Extractor:   extract.ByExtension{".xlsx": extract.NewXLSXExtractor(logger)},
		Stored:      lessonRepo,
		Detector:    detector,
		Reconciler:  reconcileSvc,
		Invalidator: cacheSvc,
		Metrics:     metrics,
		Logger:      logger,
		Config:      service.SyncServiceConfig{Workers: cfg.Sync.Workers},
	}
	if redisClient != nil && cfg.Notify.Enabled {
		params.Notifier = service.NewRedisNotifier(redisClient, cfg.Notify.Channel, logger)
	}
	syncSvc := service.NewSyncService(params)

	return &Container{
		DB:             db,
		Redis:          redisClient,
		Metrics:        metrics,
		Cache:          cacheSvc,
		Settings:       settingsSvc,
		Occupancy:      occupancySvc,
		Sync:           syncSvc,
		CalendarExport: calendarSvc,
	}, nil
}

func discoverers(cfg config.SyncConfig, validate *validator.Validate, logger *zap.Logger) ([]extract.Discoverer, error) {
	sources := []extract.Discoverer{extract.NewManifest(cfg.ManifestPath, validate, logger)}
	if cfg.IndexURL == "" {
		return sources, nil
	}
	store, err := storage.NewLocalStorage(cfg.DocsDir)
	if err != nil {
		return nil, err
	}
	downloader := extract.NewDownloader(&http.Client{Timeout: cfg.HTTPTimeout}, store, extract.DownloaderConfig{
		IndexURL:    cfg.IndexURL,
		Concurrency: cfg.DownloadConcurrency,
		Timeout:     cfg.HTTPTimeout,
	}, validate, logger)
	return append(sources, downloader), nil
}

// Pingers lists the dependencies probed by readiness checks.
func (c *Container) Pingers() map[string]func(ctx context.Context) error {
	deps := map[string]func(ctx context.Context) error{
		"postgres": c.DB.PingContext,
	}
	if c.Redis != nil {
		deps["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return deps
}

// Close releases connections.
func (c *Container) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
