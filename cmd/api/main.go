package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adiwahyudi02/ebay-scraping-backend/internal/api"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/app"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/config"
	"github.com/adiwahyudi02/ebay-scraping-backend/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to service configuration (defaults are used when empty)")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before configuration")
	addr := flag.String("addr", "", "HTTP listen address (overrides config and environment)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && *envFile != ".env" {
		log.Fatalf("failed to load env file %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer logging.CloseQuietly(logCloser)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.NewEngine(ctx, *cfg, logger)
	if err != nil {
		logger.Error("failed to initialise scrape engine", "error", err)
		return
	}

	server, err := api.NewServer(engine, api.Options{
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Heartbeat:       cfg.Stream.HeartbeatInterval.Duration,
		DefaultPageSize: cfg.Marketplace.DefaultPageSize,
	}, logger)
	if err != nil {
		logger.Error("failed to initialise api server", "error", err)
		return
	}

	// No write timeout: scrape streams stay open for as long as pages keep coming.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Duration,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server.ShutdownTimeout.Duration))
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
	}()

	logger.Info("api server listening", "addr", cfg.Server.Addr, "proxies", len(cfg.Proxy.URLs), "summarizer", cfg.Summarizer.SummarizerEnabled())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		return
	}
	logger.Info("api server stopped")
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}
