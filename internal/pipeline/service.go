package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meetscribe/internal/media"
	"meetscribe/internal/transcription"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

type MediaTools interface {
	ToAudio(ctx context.Context, videoPath, outputDir string, progress media.ProgressFunc) (string, error)
	DurationMinutes(ctx context.Context, path string) (float64, error)
	SplitAudio(ctx context.Context, audioPath, outputDir string, maxMinutes float64, progress media.ProgressFunc) ([]media.Segment, error)
}

type Metrics interface {
	IncSegmentTranscribed()
	IncSegmentFailed()
	ObserveRun(duration time.Duration)
}

type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q, supported audio: %s, video: %s",
		filepath.Ext(e.Path),
		strings.Join(media.AudioExtensions(), ", "),
		strings.Join(media.VideoExtensions(), ", "))
}

// Fragment is the transcription result for exactly one segment. A failed
// segment keeps its position with Err set, so an empty Text is
// distinguishable from a genuinely silent segment.
type Fragment struct {
	Index int
	Text  string
	Err   error
}

type TranscriptResult struct {
	Transcript      string
	Fragments       []Fragment
	DurationMinutes float64
}

// FailedCount reports how many fragments were recovered as empty.
func (r TranscriptResult) FailedCount() int {
	n := 0
	for _, f := range r.Fragments {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// ProgressFunc receives advisory per-stage completion fractions.
type ProgressFunc func(stage string, fraction float64)

type Option func(*Service)

func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service orchestrates classify, normalize, probe, segment, per-segment
// dispatch and the ordered join. It holds no state across invocations.
type Service struct {
	tools       MediaTools
	transcriber Transcriber
	summarizer  Summarizer
	outputDir   string
	maxMinutes  float64
	language    string
	logger      *slog.Logger
	metrics     Metrics
	progress    ProgressFunc
}

func New(tools MediaTools, transcriber Transcriber, summarizer Summarizer, outputDir string, maxMinutes float64, language string, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		tools:       tools,
		transcriber: transcriber,
		summarizer:  summarizer,
		outputDir:   outputDir,
		maxMinutes:  maxMinutes,
		language:    language,
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TranscribeFull turns one media file into a single ordered transcript.
// Backend failures on individual segments are recovered as empty fragments
// at their position; every other error aborts the run.
func (s *Service) TranscribeFull(ctx context.Context, mediaPath string) (TranscriptResult, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return TranscriptResult{}, err
	}

	asset := media.Classify(mediaPath)
	if asset.Kind == media.KindUnsupported {
		return TranscriptResult{}, &UnsupportedFormatError{Path: mediaPath}
	}

	audioPath := asset.Path
	if asset.Kind == media.KindVideo {
		s.logger.Info("video input, extracting audio", "path", mediaPath)
		converted, err := s.tools.ToAudio(ctx, mediaPath, s.outputDir, s.stageProgress("convert"))
		if err != nil {
			return TranscriptResult{}, err
		}
		audioPath = converted
	}

	durationMin, err := s.tools.DurationMinutes(ctx, audioPath)
	if err != nil {
		return TranscriptResult{}, err
	}
	s.logger.Info("audio ready", "path", audioPath, "minutes", durationMin)

	segments := []media.Segment{{SourcePath: audioPath, Index: 1, Path: audioPath}}
	if durationMin > s.maxMinutes {
		segments, err = s.tools.SplitAudio(ctx, audioPath, s.outputDir, s.maxMinutes, s.stageProgress("segment"))
		if err != nil {
			return TranscriptResult{}, err
		}
	}

	fragments, err := s.transcribeSegments(ctx, segments)
	if err != nil {
		return TranscriptResult{}, err
	}

	return TranscriptResult{
		Transcript:      joinFragments(fragments),
		Fragments:       fragments,
		DurationMinutes: durationMin,
	}, nil
}

func (s *Service) transcribeSegments(ctx context.Context, segments []media.Segment) ([]Fragment, error) {
	fragments := make([]Fragment, len(segments))
	for i, seg := range segments {
		s.logger.Info("transcribing segment", "index", seg.Index, "total", len(segments), "path", seg.Path)

		text, err := s.transcriber.Transcribe(ctx, seg.Path, s.language)
		if err != nil {
			var backendErr *transcription.BackendError
			if !errors.As(err, &backendErr) {
				return nil, err
			}
			// Best effort: keep the position, keep going.
			s.logger.Error("segment transcription failed", "index", seg.Index, "error", err)
			if s.metrics != nil {
				s.metrics.IncSegmentFailed()
			}
			fragments[i] = Fragment{Index: seg.Index, Err: err}
		} else {
			if s.metrics != nil {
				s.metrics.IncSegmentTranscribed()
			}
			fragments[i] = Fragment{Index: seg.Index, Text: text}
		}
		s.reportProgress("transcribe", float64(i+1)/float64(len(segments)))
	}
	return fragments, nil
}

func joinFragments(fragments []Fragment) string {
	parts := make([]string, len(fragments))
	for i, f := range fragments {
		if f.Err == nil {
			parts[i] = f.Text
		}
	}
	return strings.Join(parts, "\n")
}

type ProcessResult struct {
	Transcript       TranscriptResult
	Summary          string
	TranscriptionDur time.Duration
	SummaryDur       time.Duration
}

// Process runs the whole pipeline: transcript plus meeting summary.
func (s *Service) Process(ctx context.Context, mediaPath string) (ProcessResult, error) {
	started := time.Now()

	transcript, err := s.TranscribeFull(ctx, mediaPath)
	if err != nil {
		return ProcessResult{}, err
	}
	transcriptionDur := time.Since(started)

	summaryStarted := time.Now()
	summary, err := s.summarizer.Summarize(ctx, transcript.Transcript)
	if err != nil {
		return ProcessResult{}, err
	}

	result := ProcessResult{
		Transcript:       transcript,
		Summary:          summary,
		TranscriptionDur: transcriptionDur,
		SummaryDur:       time.Since(summaryStarted),
	}
	if s.metrics != nil {
		s.metrics.ObserveRun(time.Since(started))
	}
	return result, nil
}

func (s *Service) stageProgress(stage string) media.ProgressFunc {
	if s.progress == nil {
		return nil
	}
	return func(fraction float64) {
		s.progress(stage, fraction)
	}
}

func (s *Service) reportProgress(stage string, fraction float64) {
	if s.progress != nil {
		s.progress(stage, fraction)
	}
}
