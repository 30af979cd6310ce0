package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes external media tools. It exists so the conversion,
// probing and segmentation logic can be exercised without ffmpeg installed.
type Runner interface {
	// CombinedOutput runs the command and returns stdout and stderr mixed,
	// the way ffmpeg reports stream info and progress on stderr.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
	// StreamOutput runs the command and delivers each stdout line to onLine
	// as it is produced. Stderr is captured and included in the error.
	StreamOutput(ctx context.Context, name string, args []string, onLine func(string)) error
}

type execRunner struct{}

func NewRunner() Runner { return execRunner{} }

func (execRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (execRunner) StreamOutput(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, truncate(detail, 2048))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
