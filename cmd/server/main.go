package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fileflow/fileflow/internal/api"
	"github.com/fileflow/fileflow/internal/config"
	"github.com/fileflow/fileflow/internal/storage"
	"github.com/fileflow/fileflow/pkg/logger"
)

func main() {
	settings := config.Load()
	logger.SetLevel(settings.LogLevel)

	if settings.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, err := storage.Resolve(context.Background(), storage.Options{}, settings)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("failed to resolve storage backend")
	}

	router := api.NewRouter(backend)
	srv := &http.Server{
		Addr:         ":" + settings.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Log.Info().
			Str("port", settings.ServerPort).
			Str("storage_type", settings.StorageType).
			Msg("starting browse server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Log.Info().Msg("server exiting")
}
