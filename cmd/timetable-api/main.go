package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-sync/api/swagger"
	"github.com/noah-isme/timetable-sync/internal/bootstrap"
	"github.com/noah-isme/timetable-sync/internal/handler"
	internalmiddleware "github.com/noah-isme/timetable-sync/internal/middleware"
	"github.com/noah-isme/timetable-sync/pkg/config"
	"github.com/noah-isme/timetable-sync/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-sync/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-sync/pkg/middleware/requestid"
)

// @title Timetable Sync API
// @version 1.0.0
// @description Timetable reconciliation, room occupancy and workload
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	container, err := bootstrap.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to wire dependencies", zap.Error(err))
	}
	defer container.Close()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := make(map[string]handler.Pinger)
	for name, ping := range container.Pingers() {
		deps[name] = handler.PingFunc(ping)
	}
	metricsHandler := handler.NewMetricsHandler(container.Metrics, deps, container.Sync)
	syncHandler := handler.NewSyncHandler(container.Sync)
	roomHandler := handler.NewRoomHandler(container.Occupancy)
	settingsHandler := handler.NewSettingsHandler(container.Settings)
	calendarHandler := handler.NewCalendarHandler(container.CalendarExport)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(container.Metrics, "/metrics", "/health", "/ready"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/sync", syncHandler.Trigger)
		api.GET("/sync/last", syncHandler.Last)

		api.GET("/occupancy", roomHandler.Occupancy)
		rooms := api.Group("/rooms")
		rooms.GET("/search", roomHandler.Search)
		rooms.GET("/:id/status", roomHandler.Status)
		rooms.GET("/:id/workload", roomHandler.Workload)
		rooms.GET("/:id/info", roomHandler.Info)
		rooms.GET("/:id/lessons", roomHandler.Lessons)
		api.GET("/campuses/:id/workload-report", roomHandler.WorkloadReport)

		api.GET("/settings/max-week", settingsHandler.GetMaxWeek)
		api.PUT("/settings/max-week", settingsHandler.UpdateMaxWeek)

		api.GET("/groups/:name/calendar.ics", calendarHandler.GroupICS)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped")
}
