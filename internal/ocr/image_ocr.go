package ocr

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dbelyaev/invoicescan/constants"
	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/extract"
)

// extractImage runs the recognition ladder directly on a standalone
// photo or scan; there is no native layer to try first.
func (e *Extractor) extractImage(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res := extract.TextExtractionResult{
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.Languages,
		Pages:      1,
	}

	txt, warns := e.recognizeBitmap(ctx, path)
	res.Warnings = warns
	if txt == "" {
		return res, fmt.Errorf("image %q: %w", filepath.Base(path), common.ErrNoUsableText)
	}

	res.Text = Normalize(txt)
	if len([]rune(res.Text)) < minUsableChars {
		return res, fmt.Errorf("image %q: %w", filepath.Base(path), common.ErrNoUsableText)
	}
	return res, nil
}
