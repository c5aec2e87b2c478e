package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dbelyaev/invoicescan/constants"
	"github.com/dbelyaev/invoicescan/internal/extract"
)

// Character thresholds of the acquisition ladder.
const (
	// minPageChars: a page's native or recognized text is accepted only
	// above this trimmed length; shorter pages fall through to OCR.
	minPageChars = 50
	// minDocChars: aggregate text below this discards the native layer
	// and re-runs OCR across every page.
	minDocChars = 100
	// minUsableChars: text below this counts as a failed acquisition.
	minUsableChars = 10
)

// Page segmentation modes tried in order: dense uniform block,
// sparse text, sparse text with orientation detection.
const (
	psmSingleBlock   = 6
	psmSparseText    = 11
	psmSparseTextOSD = 12
)

var segModes = []int{psmSingleBlock, psmSparseText, psmSparseTextOSD}

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Languages string // tesseract language set, default "rus+eng"
	DPI       int    // rasterization DPI for scanned PDFs, default 300
	MaxPages  int    // 0 = no limit

	TessdataDir string
}

type Extractor struct {
	cfg    Config
	runner Runner
	rec    Recognizer
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "rus+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	runner := execRunner{}
	return &Extractor{
		cfg:    cfg,
		runner: runner,
		rec:    cliRecognizer{runner: runner, binary: cfg.Tesseract, tessdataDir: cfg.TessdataDir},
		logger: logger,
	}
}

// UseRecognizer swaps the recognition backend (e.g. the in-process
// gosseract recognizer built with -tags ocr).
func (e *Extractor) UseRecognizer(r Recognizer) {
	if r != nil {
		e.rec = r
	}
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (extract.TextExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("starting text acquisition", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Error("unsupported extension", "extension", ext)
		return extract.TextExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// recognizeBitmap runs the OCR ladder over one rendered page or image:
// preprocess, then each segmentation mode in order, then one retry on
// the unprocessed bitmap. Returns "" when every attempt stays under
// minUsableChars.
func (e *Extractor) recognizeBitmap(ctx context.Context, imgPath string) (string, []string) {
	var warns []string

	prepped := imgPath
	if p, cleanup, err := preprocessToFile(imgPath); err != nil {
		warns = append(warns, fmt.Sprintf("preprocess %s: %v", filepath.Base(imgPath), err))
	} else {
		defer cleanup()
		prepped = p
	}

	var text string
	for _, psm := range segModes {
		t, err := e.rec.Recognize(ctx, prepped, e.cfg.Languages, psm)
		if err != nil {
			warns = append(warns, fmt.Sprintf("psm %d: %v", psm, err))
			continue
		}
		text = t
		if len(strings.TrimSpace(t)) > minPageChars {
			e.logger.Debug("segmentation mode accepted", "psm", psm, "chars", len(t))
			break
		}
	}

	// Last resort: the unprocessed original under the default mode.
	if len(strings.TrimSpace(text)) <= minPageChars && prepped != imgPath {
		if t, err := e.rec.Recognize(ctx, imgPath, e.cfg.Languages, segModes[0]); err != nil {
			warns = append(warns, fmt.Sprintf("raw bitmap retry: %v", err))
		} else if len(strings.TrimSpace(t)) > len(strings.TrimSpace(text)) {
			text = t
		}
	}

	if len(strings.TrimSpace(text)) < minUsableChars {
		return "", warns
	}
	return text, warns
}
