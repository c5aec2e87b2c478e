package extract

import (
	"context"
	"time"
)

// TextExtractor is Stage 1: document file -> plain text (plus layout tables).
type TextExtractor interface {
	Extract(ctx context.Context, path string) (TextExtractionResult, error)
}

type TextExtractionResult struct {
	Text       string
	Tables     [][][]string // raw row/column grids, secondary signal
	Pages      int
	SourceType string // constants.PDF | constants.IMAGE
	Method     string // "pdf-text" | "pdf-mixed" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
}

// FieldValidator is an optional collaborator consulted per extracted candidate.
// Absence or failure must not alter default (accept-all) behavior.
type FieldValidator interface {
	Validate(ctx context.Context, field, value, contextText string) (plausible bool, confidence float32, err error)
}
