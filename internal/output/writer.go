package output

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	TranscriptSuffix = "_transcripcion.txt"
	SummarySuffix    = "_resumen.txt"
)

// Writer persists run artifacts as UTF-8 text files named from the input
// stem, in a single configured directory created on demand.
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

func (w *Writer) Dir() string { return w.dir }

func (w *Writer) EnsureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", w.dir, err)
	}
	return nil
}

func (w *Writer) WriteTranscript(stem, text string) (string, error) {
	return w.write(stem+TranscriptSuffix, text)
}

func (w *Writer) WriteSummary(stem, text string) (string, error) {
	return w.write(stem+SummarySuffix, text)
}

func (w *Writer) write(name, text string) (string, error) {
	if err := w.EnsureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Read returns the contents of a previously written artifact.
func Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
