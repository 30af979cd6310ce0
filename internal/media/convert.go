package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ToAudio extracts the audio track of a video into an mp3 under outputDir,
// named from the source stem plus an "_audio" suffix. The source is never
// touched. A direct libmp3lame transcode is tried first; if ffmpeg rejects
// the container it falls back to decoding into an intermediate WAV and
// re-encoding that. Progress is advisory and driven by the probed duration.
func (t *Tools) ToAudio(ctx context.Context, videoPath, outputDir string, progress ProgressFunc) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", err
	}

	hasAudio, err := t.hasAudioStream(ctx, videoPath)
	if err == nil && !hasAudio {
		return "", fmt.Errorf("%s: %w", videoPath, ErrNoAudioTrack)
	}

	// Probe failure here only degrades progress reporting.
	var totalSeconds float64
	if minutes, err := t.DurationMinutes(ctx, videoPath); err == nil {
		totalSeconds = minutes * 60
	}

	// ffmpeg does not create directories for its output paths.
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outputDir, Stem(videoPath)+"_audio.mp3")

	strategies := []strategy{
		{name: "direct transcode", run: func(ctx context.Context) error {
			return t.transcode(ctx, videoPath, outPath, totalSeconds, progress)
		}},
		{name: "decode and re-encode", run: func(ctx context.Context) error {
			return t.decodeReencode(ctx, videoPath, outPath, totalSeconds, progress)
		}},
	}

	var causes []error
	for _, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			report(progress, 1)
			t.logger.Info("video converted to audio", "source", videoPath, "audio", outPath, "strategy", s.name)
			return outPath, nil
		}
		t.logger.Warn("conversion strategy failed", "source", videoPath, "strategy", s.name, "error", err)
		causes = append(causes, fmt.Errorf("%s: %w", s.name, err))
	}
	return "", &ConversionError{Path: videoPath, Causes: causes}
}

func (t *Tools) hasAudioStream(ctx context.Context, path string) (bool, error) {
	out, err := t.runner.CombinedOutput(ctx, t.ffprobe,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

func (t *Tools) transcode(ctx context.Context, in, out string, totalSeconds float64, progress ProgressFunc) error {
	args := []string{
		"-y", "-i", in,
		"-vn",
		"-acodec", "libmp3lame",
		"-nostats",
		"-progress", "pipe:1",
		out,
	}
	return t.runner.StreamOutput(ctx, t.ffmpeg, args, progressLineHandler(totalSeconds, progress))
}

func (t *Tools) decodeReencode(ctx context.Context, in, out string, totalSeconds float64, progress ProgressFunc) error {
	wavPath := strings.TrimSuffix(out, filepath.Ext(out)) + "_tmp.wav"
	defer os.Remove(wavPath)

	decode := []string{
		"-y", "-i", in,
		"-vn",
		"-acodec", "pcm_s16le",
		"-nostats",
		"-progress", "pipe:1",
		wavPath,
	}
	if err := t.runner.StreamOutput(ctx, t.ffmpeg, decode, progressLineHandler(totalSeconds, progress)); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	encode := []string{
		"-y", "-i", wavPath,
		"-acodec", "libmp3lame",
		out,
	}
	if _, err := t.runner.CombinedOutput(ctx, t.ffmpeg, encode...); err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}
	return nil
}

// progressLineHandler parses the key=value lines ffmpeg emits under
// -progress and maps out_time_us against the probed total duration.
func progressLineHandler(totalSeconds float64, progress ProgressFunc) func(string) {
	if progress == nil || totalSeconds <= 0 {
		return nil
	}
	return func(line string) {
		value, ok := strings.CutPrefix(strings.TrimSpace(line), "out_time_us=")
		if !ok {
			return
		}
		us, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return
		}
		report(progress, us/1e6/totalSeconds)
	}
}
