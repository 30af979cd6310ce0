package transcription

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct {
	text     string
	err      error
	fileName string
	model    string
	language string
	body     string
}

func (f *fakeClient) Transcribe(_ context.Context, file io.Reader, fileName, model, language string) (string, error) {
	f.fileName = fileName
	f.model = model
	f.language = language
	if data, err := io.ReadAll(file); err == nil {
		f.body = string(data)
	}
	return f.text, f.err
}

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestTranscribe(t *testing.T) {
	path := writeAudio(t, "audio-bytes")
	client := &fakeClient{text: "  hola a todos \n"}
	svc := New(client, "whisper-1", testLogger())

	text, err := svc.Transcribe(context.Background(), path, "es")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hola a todos" {
		t.Fatalf("Transcribe() = %q", text)
	}
	if client.fileName != "meeting.mp3" {
		t.Fatalf("client got file name %q", client.fileName)
	}
	if client.model != "whisper-1" || client.language != "es" {
		t.Fatalf("client got model=%q language=%q", client.model, client.language)
	}
	if client.body != "audio-bytes" {
		t.Fatalf("client read %q", client.body)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	svc := New(&fakeClient{}, "whisper-1", testLogger())
	_, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"), "es")
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected os.ErrNotExist, got %v", err)
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		t.Fatal("missing file must not be a BackendError")
	}
}

func TestTranscribeBackendFailure(t *testing.T) {
	path := writeAudio(t, "audio-bytes")
	upstream := errors.New("429 rate limited")
	svc := New(&fakeClient{err: upstream}, "whisper-1", testLogger())

	_, err := svc.Transcribe(context.Background(), path, "es")
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected *BackendError, got %v", err)
	}
	if backendErr.Path != path {
		t.Fatalf("error path = %q", backendErr.Path)
	}
	if !errors.Is(err, upstream) {
		t.Fatal("BackendError must unwrap to the upstream error")
	}
}
