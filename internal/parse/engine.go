package parse

import (
	"context"
	"log/slog"

	"github.com/dbelyaev/invoicescan/internal/extract"
)

const maxInvoiceNumberRunes = 10

// Config carries the parse-side knobs.
type Config struct {
	// DefaultCurrency is assumed when the text names no currency.
	DefaultCurrency string
	// MinValidatorConfidence gates validator rejections: an
	// implausible verdict drops the value only while its confidence
	// stays under this threshold.
	MinValidatorConfidence float32
}

// Engine runs the per-field regex cascades over normalized document
// text. Stateless between calls; safe for concurrent use.
type Engine struct {
	cfg       Config
	validator extract.FieldValidator
	logger    *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "RUB"
	}
	if cfg.MinValidatorConfidence == 0 {
		cfg.MinValidatorConfidence = 0.5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// UseValidator attaches an optional plausibility checker consulted
// for every extracted field. The engine fails open: validator errors
// never drop a regex-extracted value.
func (e *Engine) UseValidator(v extract.FieldValidator) {
	e.validator = v
}

// extractField walks the field's cascade in order and returns the
// first candidate whose match survives the cross-section guard and
// the field's post-processing. Empty string means not found.
func (e *Engine) extractField(ctx context.Context, text, field string) string {
	for i, c := range fieldCascades[field] {
		loc := c.re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		gs, ge := loc[2*c.group], loc[2*c.group+1]
		if gs < 0 {
			continue
		}
		if c.excludeBetween != "" && containsFold(text[loc[0]:gs], c.excludeBetween) {
			continue
		}
		value := e.postprocess(field, text[gs:ge])
		if value == "" {
			continue
		}
		if !e.plausible(ctx, field, value, text) {
			e.logger.Debug("field value rejected by validator", "field", field, "value", value)
			continue
		}
		e.logger.Debug("field extracted", "field", field, "pattern", i, "value", value)
		return value
	}
	return ""
}

func (e *Engine) postprocess(field, raw string) string {
	v := collapseWhitespace(raw)
	switch field {
	case FieldInvoiceNumber:
		if len([]rune(v)) > maxInvoiceNumberRunes {
			return ""
		}
	case FieldSeller, FieldBuyer:
		v = truncateName(v)
		if isDegenerateName(v) {
			return ""
		}
	case FieldTotalAmount:
		v = normalizeAmount(v)
	}
	return v
}

// plausible consults the optional validator with the whole document
// as context. A value is dropped only on an implausible verdict below
// the confidence threshold; errors pass the value through.
func (e *Engine) plausible(ctx context.Context, field, value, text string) bool {
	if e.validator == nil {
		return true
	}
	ok, conf, err := e.validator.Validate(ctx, field, value, text)
	if err != nil {
		e.logger.Warn("field validator error, keeping value", "field", field, "error", err)
		return true
	}
	if !ok && conf < e.cfg.MinValidatorConfidence {
		return false
	}
	return true
}
