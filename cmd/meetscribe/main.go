package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"meetscribe/internal/config"
	"meetscribe/internal/media"
	"meetscribe/internal/output"
	"meetscribe/internal/pipeline"
	"meetscribe/internal/summarize"
	"meetscribe/internal/tokencost"
	"meetscribe/internal/transcription"
	"meetscribe/internal/upstream/openai"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: meetscribe <media-file>")
		fmt.Fprintf(os.Stderr, "supported audio formats: %s\n", strings.Join(media.AudioExtensions(), ", "))
		fmt.Fprintf(os.Stderr, "supported video formats: %s\n", strings.Join(media.VideoExtensions(), ", "))
		return 1
	}
	inputPath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	ctx := context.Background()

	tools := media.NewTools(cfg.FFmpegPath, cfg.FFprobePath, logger)
	if err := tools.CheckInstalled(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		fmt.Fprintln(os.Stderr, "install ffmpeg before continuing:")
		fmt.Fprintln(os.Stderr, "  linux:   sudo apt-get install ffmpeg")
		fmt.Fprintln(os.Stderr, "  macos:   brew install ffmpeg")
		fmt.Fprintln(os.Stderr, "  windows: choco install ffmpeg")
		return 1
	}

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
	client := openai.New(cfg.BaseURL, cfg.APIKey, httpClient)

	estimator := tokencost.NewEstimator(tokencost.DefaultPricingTable())
	transcriber := transcription.New(client, cfg.TranscriptionModel, logger)
	summarizer := summarize.New(client, estimator, cfg.ChatModel, cfg.MaxTokens, cfg.Temperature, logger)

	display := &progressDisplay{}
	defer display.close()

	svc := pipeline.New(tools, transcriber, summarizer,
		cfg.OutputDir, cfg.MaxAudioLengthMinutes, cfg.Language, logger,
		pipeline.WithProgress(display.update),
	)

	result, err := svc.Process(ctx, inputPath)
	display.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if failed := result.Transcript.FailedCount(); failed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d of %d segments failed and are empty in the transcript\n",
			failed, len(result.Transcript.Fragments))
	}

	writer := output.NewWriter(cfg.OutputDir)
	stem := media.Stem(inputPath)

	transcriptPath, err := writer.WriteTranscript(stem, result.Transcript.Transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	summaryPath, err := writer.WriteSummary(stem, result.Summary)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("transcript: %s\n", transcriptPath)
	fmt.Printf("summary:    %s\n", summaryPath)
	return 0
}

var stageLabels = map[string]string{
	"convert":    "converting video to audio",
	"segment":    "splitting audio",
	"transcribe": "transcribing segments",
}

// progressDisplay renders one advisory bar per pipeline stage.
type progressDisplay struct {
	stage string
	bar   *progressbar.ProgressBar
}

func (p *progressDisplay) update(stage string, fraction float64) {
	if p.bar == nil || p.stage != stage {
		p.close()
		label := stageLabels[stage]
		if label == "" {
			label = stage
		}
		p.stage = stage
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetDescription(label),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(int(fraction * 100))
}

func (p *progressDisplay) close() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
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
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel}))
}
