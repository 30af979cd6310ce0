package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// DurationMinutes reports the play length of an audio or video asset.
// Container metadata via ffprobe is tried first; when that is unavailable
// the whole asset is decoded and the final timestamp measured, which is
// slower but works for streams with broken headers.
func (t *Tools) DurationMinutes(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, err
	}

	var seconds float64
	strategies := []strategy{
		{name: "ffprobe metadata", run: func(ctx context.Context) error {
			s, err := t.probeFormatDuration(ctx, path)
			if err != nil {
				return err
			}
			seconds = s
			return nil
		}},
		{name: "full decode", run: func(ctx context.Context) error {
			s, err := t.decodeDuration(ctx, path)
			if err != nil {
				return err
			}
			seconds = s
			return nil
		}},
	}

	var causes []error
	for _, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			t.logger.Debug("duration probed", "path", path, "strategy", s.name, "minutes", seconds/60)
			return seconds / 60, nil
		}
		t.logger.Warn("duration strategy failed", "path", path, "strategy", s.name, "error", err)
		causes = append(causes, fmt.Errorf("%s: %w", s.name, err))
	}
	return 0, &UnreadableError{Path: path, Causes: causes}
}

func (t *Tools) probeFormatDuration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.CombinedOutput(ctx, t.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("invalid ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ffprobe duration %q: %w", parsed.Format.Duration, err)
	}
	return seconds, nil
}

func (t *Tools) decodeDuration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.CombinedOutput(ctx, t.ffmpeg,
		"-i", path,
		"-f", "null", "-",
	)
	// ffmpeg can exit non-zero and still have printed usable timing info.
	if err != nil && len(out) == 0 {
		return 0, err
	}
	d, err := parseFFmpegDuration(string(out))
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}

var (
	durationLineRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	timeLineRe     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// parseFFmpegDuration extracts a timestamp from ffmpeg textual output,
// preferring the final time= progress value over the Duration: header.
func parseFFmpegDuration(output string) (time.Duration, error) {
	if all := timeLineRe.FindAllStringSubmatch(output, -1); len(all) > 0 {
		m := all[len(all)-1]
		return timeComponents(m[1], m[2], m[3], m[4]), nil
	}
	if m := durationLineRe.FindStringSubmatch(output); m != nil {
		return timeComponents(m[1], m[2], m[3], m[4]), nil
	}
	return 0, fmt.Errorf("no duration in ffmpeg output")
}

func timeComponents(hours, minutes, seconds, fractional string) time.Duration {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)

	frac, _ := strconv.Atoi(fractional)
	ms := frac
	switch n := len(fractional); {
	case n == 1:
		ms = frac * 100
	case n == 2:
		ms = frac * 10
	case n > 3:
		for i := n; i > 3; i-- {
			ms /= 10
		}
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}

func formatFFmpegTime(d time.Duration) string {
	// Format from milliseconds so rounding carries into the larger units
	// instead of producing a seconds component of 60.000.
	ms := d.Round(time.Millisecond).Milliseconds()
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1_000
	ms -= s * 1_000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
