//go:build ocr

package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// GosseractRecognizer performs OCR in-process through Tesseract's C API.
// Build with -tags ocr; requires the tesseract development headers.
type GosseractRecognizer struct {
	TessdataDir string
}

func (g GosseractRecognizer) Recognize(ctx context.Context, imagePath, languages string, psm int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if g.TessdataDir != "" {
		client.TessdataPrefix = g.TessdataDir
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", err
	}
	if err := client.SetLanguage(strings.Split(languages, "+")...); err != nil {
		return "", err
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		return "", err
	}

	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reBoxNoise.ReplaceAllString(text, "")), nil
}
