package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetscribe/internal/config"
	"meetscribe/internal/media"
	"meetscribe/internal/model"
	"meetscribe/internal/pipeline"
	"meetscribe/internal/upstream/openai"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type PipelineService interface {
	Process(ctx context.Context, mediaPath string) (pipeline.ProcessResult, error)
}

type UpstreamChecker interface {
	CheckModels(ctx context.Context) error
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
}

type Dependencies struct {
	Pipeline       PipelineService
	Upstream       UpstreamChecker
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	pipeline     PipelineService
	upstream     UpstreamChecker
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Pipeline == nil || deps.Upstream == nil {
		panic("httpapi: pipeline and upstream dependencies are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		pipeline:     deps.Pipeline,
		upstream:     deps.Upstream,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/meetings", s.handleMeetings)
	})

	return r
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{OK: true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.upstream.CheckModels(ctx); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_ready", "upstream check failed")
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: "meetscribe"})
}

func (s *server) handleMeetings(w http.ResponseWriter, r *http.Request) {
	mediaPath, cleanup, err := s.spoolUpload(w, r)
	if err != nil {
		s.handleUploadError(w, r, err)
		return
	}
	defer cleanup()

	result, err := s.pipeline.Process(r.Context(), mediaPath)
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}

	segments := make([]model.SegmentStatus, len(result.Transcript.Fragments))
	for i, f := range result.Transcript.Fragments {
		status := model.SegmentStatus{Index: f.Index, OK: f.Err == nil}
		if f.Err != nil {
			status.Error = f.Err.Error()
		}
		segments[i] = status
	}

	writeJSON(w, http.StatusOK, model.MeetingResponse{
		Transcript:      result.Transcript.Transcript,
		Summary:         result.Summary,
		DurationMinutes: result.Transcript.DurationMinutes,
		Segments:        segments,
		TimingsMS: model.MeetingTimings{
			Transcription: result.TranscriptionDur.Milliseconds(),
			Summary:       result.SummaryDur.Milliseconds(),
		},
	})
}

// spoolUpload stores the multipart "file" part in the scratch directory,
// keeping the client file name so derived artifacts inherit its stem.
func (s *server) spoolUpload(w http.ResponseWriter, r *http.Request) (string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(minInt64(s.cfg.MaxUploadBytes, 32<<20)); err != nil {
		return "", func() {}, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", func() {}, err
	}
	defer file.Close()

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return "", func() {}, err
	}
	mediaPath := filepath.Join(s.cfg.OutputDir, filepath.Base(header.Filename))
	dst, err := os.Create(mediaPath)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(mediaPath)
		return "", func() {}, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(mediaPath)
		return "", func() {}, err
	}
	return mediaPath, func() { _ = os.Remove(mediaPath) }, nil
}

func (s *server) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", fmt.Sprintf("request exceeds %d bytes", s.cfg.MaxUploadBytes))
		return
	}
	if errors.Is(err, http.ErrMissingFile) {
		s.writeError(w, r, http.StatusBadRequest, "invalid_request", "multipart field 'file' is required")
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid multipart form data")
}

func (s *server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "request failed"

	var (
		upstreamErr     *openai.Error
		malformedErr    *openai.MalformedResponseError
		unsupportedErr  *pipeline.UnsupportedFormatError
		conversionErr   *media.ConversionError
		unreadableErr   *media.UnreadableError
		segmentationErr *media.SegmentationError
	)
	switch {
	case errors.As(err, &unsupportedErr):
		status = http.StatusUnsupportedMediaType
		code = "unsupported_format"
		message = unsupportedErr.Error()
	case errors.Is(err, fs.ErrNotExist):
		status = http.StatusBadRequest
		code = "not_found"
		message = "input file not found"
	case errors.Is(err, media.ErrNoAudioTrack):
		status = http.StatusUnprocessableEntity
		code = "no_audio_track"
		message = "video has no audio track"
	case errors.As(err, &conversionErr), errors.As(err, &unreadableErr), errors.As(err, &segmentationErr):
		status = http.StatusUnprocessableEntity
		code = "media_processing_failed"
		message = "media processing failed"
	case errors.As(err, &upstreamErr), errors.As(err, &malformedErr):
		status = http.StatusBadGateway
		code = "upstream_request_failed"
		message = "upstream request failed"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		status = 499
		code = "canceled"
		message = "request canceled"
	}

	s.logger.Error("request failed", "request_id", requestIDFromContext(r.Context()), "code", code, "error", err)
	s.writeError(w, r, status, code, message)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:     model.APIError{Code: code, Message: message},
		RequestID: requestIDFromContext(r.Context()),
	})
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func requestIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDContext).(string); ok {
		return value
	}
	return ""
}

func newRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
