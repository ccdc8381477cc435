package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"lostfound-bot/internal/core"
	"lostfound-bot/internal/http/handler"
	"lostfound-bot/internal/http/middleware"
	"lostfound-bot/internal/http/router"
	"lostfound-bot/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.toml", "config file path (.toml, .yaml or .yml)")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	logger := logging.New(false)
	token := os.Getenv("SLACK_TOKEN")
	logger.Info("starting", logging.Field{Key: "config", Val: *configPath}, logging.Field{Key: "slack_token_present", Val: token != ""})
	if token == "" {
		logger.Error("SLACK_TOKEN is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := core.NewManager(*configPath, token, logger)
	if err := mgr.Start(ctx); err != nil {
		logger.Error("startup failed", logging.Field{Key: "err", Val: err})
		os.Exit(1)
	}
	defer mgr.Stop()

	listen := mgr.Config().Server.Addr
	if *addr != "" {
		listen = *addr
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger(logger))
	router.SetupRoutes(engine, handler.NewPollHandler(handler.PollerFunc(func(ctx context.Context) error {
		_, err := mgr.Poll(ctx)
		return err
	})))

	server := &http.Server{
		Addr:              listen,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server starting", logging.Field{Key: "addr", Val: listen})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", logging.Field{Key: "err", Val: err})
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", logging.Field{Key: "err", Val: err})
	}
	cancel()
}
