package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Recognizer turns a rendered bitmap into best-effort text. It may
// return an empty string for unreadable content; it must not fail on it.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, languages string, psm int) (string, error)
}

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

// cliRecognizer shells out to the tesseract binary through the Runner.
type cliRecognizer struct {
	runner      Runner
	binary      string
	tessdataDir string
}

func (r cliRecognizer) Recognize(ctx context.Context, imagePath, languages string, psm int) (string, error) {
	args := []string{imagePath, "stdout", "-l", languages}
	if psm > 0 {
		args = append(args, "--psm", strconv.Itoa(psm))
	}
	if r.tessdataDir != "" {
		args = append(args, "--tessdata-dir", r.tessdataDir)
	}

	// tesseract <file> stdout -l <langs> --psm <n>
	out, errb, err := r.runner.Run(ctx, r.binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, clipOutput(string(errb), 2<<10))
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return strings.TrimSpace(txt), nil
}
