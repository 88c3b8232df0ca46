package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"recsys-orchestrator/internal/adapter/recsys_http"
	"recsys-orchestrator/internal/di"
	"recsys-orchestrator/internal/infra/config"
	"recsys-orchestrator/internal/infra/logger"
	"recsys-orchestrator/internal/infra/otel"
)

func main() {
	// 1. Load Config
	_ = godotenv.Load()
	cfg := config.Load()

	// 2. Initialize OpenTelemetry
	ctx := context.Background()
	shutdownOTel, err := otel.InitProvider(ctx, cfg.Env, cfg.OTel)
	if err != nil {
		slog.Error("failed to init otel", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			slog.Error("failed to shutdown otel", "error", err)
		}
	}()

	// 3. Initialize Logger
	log := logger.NewWithLevel(logger.ParseLevel(os.Getenv("LOG_LEVEL")), cfg.OTel.Enabled)
	slog.SetDefault(log)

	// 4. Wire components
	app, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		log.Error("failed to wire components", "error", err)
		os.Exit(1)
	}
	defer app.Close()
	defer func() {
		log.Info("Stopping batch runner...")
		app.Batch.Stop()
	}()

	// 5. Initialize Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(recsys_http.OTelMiddleware(cfg.OTel.ServiceName))

	handler := recsys_http.NewHandler(app.Recommend, app.Indexer, app.Batch, app.ReadinessChecks(), log)
	handler.Register(e)

	// 6. Start Server (HTTP/2 without TLS for internal callers)
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(e, &http2.Server{}),
	}
	go func() {
		log.Info("Starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown server", "error", err)
	}
}
