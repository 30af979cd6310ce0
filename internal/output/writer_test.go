package output

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriterRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	w := NewWriter(dir)

	transcript := "primera línea\n\ntercera línea"
	path, err := w.WriteTranscript("reunion", transcript)
	if err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	if want := filepath.Join(dir, "reunion_transcripcion.txt"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != transcript {
		t.Fatalf("Read() = %q, want %q", got, transcript)
	}
}

func TestWriterSummaryName(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)

	path, err := w.WriteSummary("reunion", "resumen")
	if err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	if want := filepath.Join(dir, "reunion_resumen.txt"); path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}

func TestWriterCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	w := NewWriter(dir)

	if _, err := w.WriteSummary("reunion", "resumen"); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("output directory missing: %v", err)
	}
}
