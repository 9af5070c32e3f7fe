// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/campaigner/internal/cli"
	"github.com/unclebandit/campaigner/internal/config"
	"github.com/unclebandit/campaigner/internal/controller"
	"github.com/unclebandit/campaigner/internal/handler"
	"github.com/unclebandit/campaigner/internal/logging"
	"github.com/unclebandit/campaigner/internal/server"
)

func main() {
	configPath := flag.String("config", "campaigner.yaml", "YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	app, err := cli.Open(cfg, logger, nil)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer app.Close()

	campaignController := &controller.CampaignController{
		CampaignService: app.Service,
		Importer:        app.Importer,
		Logger:          logger.Named("http"),
	}
	campaignHandler := handler.NewCampaignHandler(app.Service, logger.Named("http"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.NewRouter(campaignController, campaignHandler, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server running", zap.String("addr", cfg.ListenAddr), zap.String("data_dir", cfg.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
