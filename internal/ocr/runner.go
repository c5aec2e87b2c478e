package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner abstracts the external tools the acquisition ladder shells
// out to (pdftotext, pdftoppm, tesseract) so tests can substitute
// canned output for the real binaries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner invokes the tool directly. Stderr is captured rather than
// streamed: tesseract is chatty there even on success, and on failure
// the tail is what explains a bad recognition run.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		slog.Error("acquisition tool failed",
			"tool", name,
			"args", strings.Join(args, " "),
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
			"stderr", clipOutput(stderr.String(), 8<<10),
		)
	} else {
		slog.Debug("acquisition tool done",
			"tool", name,
			"args", strings.Join(args, " "),
			"elapsed_ms", elapsed.Milliseconds(),
			"stdout_bytes", stdout.Len(),
		)
	}

	return stdout.Bytes(), stderr.Bytes(), err
}

// clipOutput keeps log records bounded when a tool dumps its whole
// diagnostics buffer on stderr.
func clipOutput(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(clipped)"
}
