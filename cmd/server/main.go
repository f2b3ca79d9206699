package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatlens/internal/config"
	"chatlens/internal/explain"
	"chatlens/internal/handler"
	"chatlens/internal/repository"
	"chatlens/internal/service"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Server.Mode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting chatlens...")

	if cfg.Database.Driver == "sqlite" {
		os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755)
	}

	store, err := repository.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize message store", zap.Error(err))
	}
	defer store.Close()

	analyzer := service.NewAnalyzer(cfg, store, service.NewMemoryJobStore(), logger)
	analyzer.Start()

	explainer := explain.NewService(store, logger)
	apiHandler := handler.NewHandler(analyzer, explainer, store, logger)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	apiHandler.RegisterRoutes(router)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("chatlens is running",
		zap.String("address", serverAddr),
		zap.String("database", cfg.Database.Driver),
		zap.Int("workers", cfg.Analysis.Workers))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let queued and in-flight jobs reach a terminal state before the
	// process exits.
	analyzer.Shutdown()

	logger.Info("Server exited")
}
