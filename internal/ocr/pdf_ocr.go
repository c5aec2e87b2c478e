package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dbelyaev/invoicescan/constants"
	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/extract"
)

// extractPDF runs the acquisition ladder for a PDF: native text per page,
// per-page OCR for pages under minPageChars, and a whole-document OCR pass
// that discards the native layer when the aggregate stays under minDocChars.
func (e *Extractor) extractPDF(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	res := extract.TextExtractionResult{
		SourceType: constants.PDF,
		Language:   e.cfg.Languages,
	}

	pages, warns, err := e.pdfPageTexts(ctx, path)
	if err != nil {
		e.logger.Warn("native layer extraction failed", "path", path, "error", err)
		pages = nil
	}
	if e.cfg.MaxPages > 0 && len(pages) > e.cfg.MaxPages {
		pages = pages[:e.cfg.MaxPages]
	}

	parts := make([]string, 0, len(pages))
	total := 0
	ocrPages := 0
	for i, pg := range pages {
		if len(strings.TrimSpace(pg)) > minPageChars {
			parts = append(parts, pg)
			total += len(strings.TrimSpace(pg))
			continue
		}
		e.logger.Debug("page text below threshold, using ocr", "page", i+1, "chars", len(strings.TrimSpace(pg)))
		txt, w := e.ocrPage(ctx, path, i+1)
		warns = append(warns, w...)
		// keep the slot even when OCR came back empty so page order holds
		parts = append(parts, txt)
		total += len(strings.TrimSpace(txt))
		ocrPages++
	}

	if total < minDocChars {
		e.logger.Info("aggregate text too short, ocr over every page", "path", path, "chars", total)
		text, n, w := e.pdfToOCR(ctx, path)
		warns = append(warns, w...)
		res.Method = "pdf-ocr"
		res.Pages = n
		res.Text = Normalize(text)
		res.Warnings = warns
	} else {
		raw := strings.Join(parts, "\n\f\n")
		res.Pages = len(pages)
		res.Text = Normalize(raw)
		res.Tables = GridsFromLayout(raw)
		res.Warnings = warns
		switch {
		case ocrPages == 0:
			res.Method = "pdf-text"
		case ocrPages == len(pages):
			res.Method = "pdf-ocr"
		default:
			res.Method = "pdf-mixed"
		}
	}

	if len([]rune(res.Text)) < minUsableChars {
		return res, fmt.Errorf("pdf %q: %w", filepath.Base(path), common.ErrNoUsableText)
	}
	return res, nil
}

// pdfPageTexts returns the native text layer split per page.
func (e *Extractor) pdfPageTexts(ctx context.Context, path string) ([]string, []string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, []string{string(errb)}, err
	}
	// A form-feed \f is used as page separator by default.
	pages := strings.Split(string(out), "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil, nil
}

// ocrPage rasterizes a single page and runs the recognition ladder on it.
func (e *Extractor) ocrPage(ctx context.Context, path string, page int) (string, []string) {
	tmpDir, err := os.MkdirTemp("", "invscan-pp-*")
	if err != nil {
		return "", []string{err.Error()}
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	img, warns, err := e.rasterizePage(ctx, path, page, tmpDir)
	if err != nil {
		warns = append(warns, fmt.Sprintf("rasterize page %d: %v", page, err))
		return "", warns
	}
	txt, w := e.recognizeBitmap(ctx, img)
	return txt, append(warns, w...)
}

func (e *Extractor) rasterizePage(ctx context.Context, path string, page int, dir string) (string, []string, error) {
	prefix := filepath.Join(dir, "page")
	// pdftoppm -f N -l N -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", strconv.Itoa(page), "-l", strconv.Itoa(page),
		"-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", []string{string(errb)}, err
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", nil, fmt.Errorf("no page rendered")
	}
	sort.Strings(matches)
	return matches[0], nil, nil
}

// pdfToOCR renders and recognizes every page, ignoring the native layer.
func (e *Extractor) pdfToOCR(ctx context.Context, path string) (string, int, []string) {
	tmpDir, err := os.MkdirTemp("", "invscan-pp-*")
	if err != nil {
		return "", 0, []string{err.Error()}
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		e.logger.Debug("ocr page", "page", i+1, "of", len(matches))
		txt, w := e.recognizeBitmap(ctx, img)
		warns = append(warns, w...)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
	}
	return b.String(), len(matches), warns
}
