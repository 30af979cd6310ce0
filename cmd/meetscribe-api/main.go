package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetscribe/internal/config"
	"meetscribe/internal/httpapi"
	"meetscribe/internal/media"
	"meetscribe/internal/observability"
	"meetscribe/internal/pipeline"
	"meetscribe/internal/summarize"
	"meetscribe/internal/tokencost"
	"meetscribe/internal/transcription"
	"meetscribe/internal/upstream/openai"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	metrics := observability.NewMetrics()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: transport}
	client := openai.New(cfg.BaseURL, cfg.APIKey, httpClient, openai.WithObserver(metrics.ObserveUpstream))

	tools := media.NewTools(cfg.FFmpegPath, cfg.FFprobePath, logger)
	if err := tools.CheckInstalled(context.Background()); err != nil {
		logger.Error("ffmpeg check failed", "error", err)
		os.Exit(1)
	}

	estimator := tokencost.NewEstimator(tokencost.DefaultPricingTable())
	transcriber := transcription.New(client, cfg.TranscriptionModel, logger)
	summarizer := summarize.New(client, estimator, cfg.ChatModel, cfg.MaxTokens, cfg.Temperature, logger)
	pipelineService := pipeline.New(tools, transcriber, summarizer,
		cfg.OutputDir, cfg.MaxAudioLengthMinutes, cfg.Language, logger,
		pipeline.WithMetrics(metrics),
	)

	handler := httpapi.NewServer(cfg, logger, httpapi.Dependencies{
		Pipeline:       pipelineService,
		Upstream:       client,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
