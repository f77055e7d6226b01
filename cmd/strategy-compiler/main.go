package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/algomatic/strategy-compiler/internal/catalog"
	"github.com/algomatic/strategy-compiler/internal/config"
	"github.com/algomatic/strategy-compiler/internal/httpapi"
	"github.com/algomatic/strategy-compiler/internal/logging"
	"github.com/algomatic/strategy-compiler/internal/mcpapi"
	"github.com/algomatic/strategy-compiler/internal/service"
	"github.com/algomatic/strategy-compiler/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting strategy-compiler",
		"port", cfg.HTTP.Port,
		"catalog_dir", cfg.CatalogDir,
		"store_database", cfg.Store.Database,
		"auth_enabled", cfg.Auth.Token != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := catalog.LoadSourceFromDir(cfg.CatalogDir)
	if err != nil {
		logger.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}
	cat := catalog.New(src)

	cards := memory.NewCards()
	strategies := memory.NewStrategies()
	svc := service.New(cat, cards, strategies, logger)

	mux := http.NewServeMux()
	httpapi.NewServer(svc, logger).RegisterRoutes(mux, cfg.Auth.Token)
	mcpapi.NewServer(svc, logger).RegisterRoutes(mux, httpapi.AuthMiddleware(cfg.Auth.Token))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, draining connections...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}

	logger.Info("strategy-compiler shutdown complete")
}
