package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// SplitAudio partitions an audio asset into consecutive windows of exactly
// maxMinutes (the last window may be shorter) and exports each as an
// independent mp3 named <stem>_part<N>.mp3 under outputDir, N starting at 1
// in timeline order. When the asset already fits the budget it is returned
// as the single segment, untouched: no copy, no re-encode.
func (t *Tools) SplitAudio(ctx context.Context, audioPath, outputDir string, maxMinutes float64, progress ProgressFunc) ([]Segment, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, err
	}
	if maxMinutes <= 0 {
		return nil, &SegmentationError{Path: audioPath, Err: fmt.Errorf("invalid window %v minutes", maxMinutes)}
	}

	durationMin, err := t.DurationMinutes(ctx, audioPath)
	if err != nil {
		return nil, &SegmentationError{Path: audioPath, Err: err}
	}

	if durationMin <= maxMinutes {
		t.logger.Info("audio fits duration budget, no split needed",
			"path", audioPath, "minutes", durationMin, "budget_minutes", maxMinutes)
		return []Segment{{SourcePath: audioPath, Index: 1, Path: audioPath}}, nil
	}

	// ffmpeg does not create directories for its output paths.
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, &SegmentationError{Path: audioPath, Err: err}
	}

	total := time.Duration(durationMin * float64(time.Minute))
	window := time.Duration(maxMinutes * float64(time.Minute))
	count := int(math.Ceil(durationMin / maxMinutes))
	t.logger.Info("splitting audio", "path", audioPath, "minutes", durationMin, "segments", count)

	segments := make([]Segment, 0, count)
	for i := 0; i < count; i++ {
		start := time.Duration(i) * window
		end := start + window
		if end > total {
			end = total
		}

		outPath := filepath.Join(outputDir, fmt.Sprintf("%s_part%d.mp3", Stem(audioPath), i+1))
		if err := t.exportWindow(ctx, audioPath, outPath, start, end); err != nil {
			return nil, &SegmentationError{Path: audioPath, Err: err}
		}

		segments = append(segments, Segment{SourcePath: audioPath, Index: i + 1, Path: outPath})
		report(progress, float64(i+1)/float64(count))
		t.logger.Debug("segment exported", "path", outPath, "index", i+1, "start", start, "end", end)
	}
	return segments, nil
}

func (t *Tools) exportWindow(ctx context.Context, in, out string, start, end time.Duration) error {
	args := []string{
		"-y", "-i", in,
		"-ss", formatFFmpegTime(start),
		"-to", formatFFmpegTime(end),
		"-acodec", "libmp3lame",
		out,
	}
	if _, err := t.runner.CombinedOutput(ctx, t.ffmpeg, args...); err != nil {
		return fmt.Errorf("export window %s-%s: %w", formatFFmpegTime(start), formatFFmpegTime(end), err)
	}
	return nil
}
