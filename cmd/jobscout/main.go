// Package main wires together the jobscout service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/alert"
	"github.com/jobscout/jobscout/internal/api"
	"github.com/jobscout/jobscout/internal/browser"
	"github.com/jobscout/jobscout/internal/cleanup"
	"github.com/jobscout/jobscout/internal/clock/system"
	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/jobs"
	"github.com/jobscout/jobscout/internal/logging"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/jobscout/jobscout/internal/pipeline"
	"github.com/jobscout/jobscout/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewJobStore(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeMin) * time.Minute,
		AcquireTimeout:  time.Duration(cfg.DB.AcquireTimeoutSec) * time.Second,
	}, logger.Named("store"))
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema init failed", zap.Error(err))
	}

	clock := system.New()
	sessions := browser.NewManager(browser.Config{
		Headless:       !cfg.Logging.Development,
		ExecPath:       cfg.Browser.ExecPath,
		UserAgent:      cfg.Crawler.UserAgent,
		AcceptLanguage: cfg.Crawler.AcceptLanguage,
		NavTimeout:     cfg.NavTimeout(),
		PageQPS:        cfg.Crawler.PageQPS,
	}, logger.Named("browser"))

	crawlPipeline := pipeline.New(pipeline.ManagerSessions{Manager: sessions}, store, clock, pipeline.Config{
		PageCeiling:     cfg.Crawler.PageCeiling,
		LinkedInCeiling: cfg.Crawler.LinkedInCeiling,
	}, logger.Named("pipeline"))

	dispatcher := alert.NewDispatcher(store, buildMailer(cfg, logger), clock, logger.Named("alert"))

	if cfg.Cleanup.Enabled {
		sweeper := cleanup.New(store, clock, cfg.Retention(), cfg.Cleanup.Schedule, logger.Named("cleanup"))
		if err := sweeper.Start(); err != nil {
			logger.Fatal("cleanup init failed", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	apiServer := api.NewServer(crawlPipeline, store, dispatcher, clock, api.Options{
		Development:    cfg.Logging.Development,
		RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// buildMailer degrades to a logging no-op when SMTP is not configured, so a
// development instance can serve alert requests without credentials.
func buildMailer(cfg config.Config, logger *zap.Logger) jobs.Mailer {
	mailer, err := alert.NewSMTPMailer(alert.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	if err != nil {
		logger.Warn("smtp not configured, alert delivery disabled", zap.Error(err))
		return noopMailer{logger: logger}
	}
	return mailer
}

type noopMailer struct {
	logger *zap.Logger
}

func (m noopMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("alert suppressed (no smtp config)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
