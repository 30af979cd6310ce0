package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type Client interface {
	Transcribe(ctx context.Context, file io.Reader, fileName, model, language string) (string, error)
}

// BackendError wraps any failure past the existence check: transport,
// quota, malformed response. Callers use it to decide per-segment
// fallback behavior.
type BackendError struct {
	Path string
	Err  error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("transcribing %s: %v", e.Path, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Service dispatches exactly one audio file per call. It carries no retry
// or batching logic; that responsibility belongs to the caller.
type Service struct {
	client       Client
	defaultModel string
	logger       *slog.Logger
}

func New(client Client, defaultModel string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:       client,
		defaultModel: strings.TrimSpace(defaultModel),
		logger:       logger,
	}
}

func (s *Service) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", err
	}

	file, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	text, err := s.client.Transcribe(ctx, file, filepath.Base(audioPath), s.defaultModel, language)
	if err != nil {
		return "", &BackendError{Path: audioPath, Err: err}
	}
	return strings.TrimSpace(text), nil
}
