package media

import (
	"context"
	"fmt"
	"log/slog"
)

// ProgressFunc receives advisory completion fractions in [0, 1]. It must
// never influence the outcome of the operation reporting through it.
type ProgressFunc func(fraction float64)

type Option func(*Tools)

func WithRunner(r Runner) Option {
	return func(t *Tools) {
		if r != nil {
			t.runner = r
		}
	}
}

// Tools wraps the ffmpeg/ffprobe pair behind the conversion, probing and
// segmentation operations of the pipeline.
type Tools struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
	logger  *slog.Logger
}

func NewTools(ffmpegPath, ffprobePath string, logger *slog.Logger, opts ...Option) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tools{
		ffmpeg:  ffmpegPath,
		ffprobe: ffprobePath,
		runner:  NewRunner(),
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Tools) CheckInstalled(ctx context.Context) error {
	if _, err := t.runner.CombinedOutput(ctx, t.ffmpeg, "-version"); err != nil {
		return fmt.Errorf("ffmpeg is not available: %w", err)
	}
	return nil
}

// strategy is one named attempt in a fallback chain. The caller tries each
// in order and aggregates causes when all fail.
type strategy struct {
	name string
	run  func(ctx context.Context) error
}

func report(progress ProgressFunc, fraction float64) {
	if progress == nil {
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	progress(fraction)
}
