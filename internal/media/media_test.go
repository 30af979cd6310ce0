package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"meeting.mp3", KindAudio},
		{"meeting.WAV", KindAudio},
		{"dir/meeting.flac", KindAudio},
		{"meeting.mp4", KindVideo},
		{"meeting.MOV", KindVideo},
		{"meeting.xyz", KindUnsupported},
		{"meeting", KindUnsupported},
	}
	for _, tt := range tests {
		if got := Classify(tt.path).Kind; got != tt.want {
			t.Errorf("Classify(%q).Kind = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStem(t *testing.T) {
	if got := Stem("/tmp/recordings/standup.mp4"); got != "standup" {
		t.Fatalf("Stem() = %q", got)
	}
}

type fakeRunner struct {
	combinedFn func(name string, args ...string) ([]byte, error)
	streamFn   func(name string, args []string, onLine func(string)) error
	calls      [][]string
}

func (f *fakeRunner) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.combinedFn == nil {
		return nil, fmt.Errorf("unexpected command: %s %v", name, args)
	}
	return f.combinedFn(name, args...)
}

func (f *fakeRunner) StreamOutput(_ context.Context, name string, args []string, onLine func(string)) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.streamFn == nil {
		return fmt.Errorf("unexpected command: %s %v", name, args)
	}
	return f.streamFn(name, args, onLine)
}

func contains(args []string, value string) bool {
	for _, a := range args {
		if a == value {
			return true
		}
	}
	return false
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// probeResponse builds a fake ffprobe format=duration JSON body.
func probeResponse(seconds float64) []byte {
	return []byte(fmt.Sprintf(`{"format":{"duration":"%.3f"}}`, seconds))
}

func newTestTools(t *testing.T, runner Runner) *Tools {
	t.Helper()
	return NewTools("ffmpeg", "ffprobe", testLogger(), WithRunner(runner))
}

func writeTempFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func isDurationProbe(args []string) bool {
	return contains(args, "format=duration")
}

func isAudioStreamProbe(args []string) bool {
	return contains(args, "-select_streams")
}

func isWindowExport(args []string) bool {
	return contains(args, "-ss")
}

func isNullDecode(args []string) bool {
	for i, a := range args {
		if a == "-f" && i+1 < len(args) && args[i+1] == "null" {
			return true
		}
	}
	return false
}
