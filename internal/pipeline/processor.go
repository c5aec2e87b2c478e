// Package pipeline chains text acquisition, field extraction and
// persistence into one document-processing pass.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dbelyaev/invoicescan/constants"
	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/extract"
	"github.com/dbelyaev/invoicescan/internal/parse"
	"github.com/dbelyaev/invoicescan/internal/store"
)

// Saver persists one flat record row. *store.Store satisfies it; tests
// use a stub.
type Saver interface {
	SaveRecord(ctx context.Context, rec store.InvoiceRecord) error
}

// Result is the outcome of one processed document.
type Result struct {
	ID          string
	SourcePath  string
	Status      constants.JobStatus
	Acquisition extract.TextExtractionResult
	Record      parse.Record
}

// Processor runs a document through acquisition and extraction.
type Processor struct {
	extractor extract.TextExtractor
	engine    *parse.Engine
	saver     Saver
	logger    *slog.Logger
}

func NewProcessor(extractor extract.TextExtractor, engine *parse.Engine, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{extractor: extractor, engine: engine, logger: logger}
}

// UseSaver attaches a persistence backend. Without one the processor
// only extracts.
func (p *Processor) UseSaver(s Saver) {
	p.saver = s
}

// Process acquires text from the document at path, extracts the
// record and, when a saver is attached, persists it. Acquisition
// failures pass through unchanged so callers can match
// common.ErrNoUsableText; nothing is persisted for a failed document.
func (p *Processor) Process(ctx context.Context, path string) (*Result, error) {
	res := &Result{
		ID:         uuid.New().String(),
		SourcePath: path,
		Status:     constants.JobStatusRunning,
	}
	log := p.logger.With("job_id", res.ID, "path", path)

	acq, err := p.extractor.Extract(ctx, path)
	if err != nil {
		res.Status = constants.JobStatusFailed
		log.Error("text acquisition failed", "error", err)
		return res, err
	}
	res.Acquisition = acq
	res.Status = constants.JobStatusTextOK
	log.Info("text acquired",
		"method", acq.Method,
		"pages", acq.Pages,
		"chars", len(acq.Text),
		"duration_ms", acq.Duration.Milliseconds())

	res.Record = p.engine.ExtractInvoiceData(ctx, acq.Text, acq.Tables)
	res.Status = constants.JobStatusParsed
	if err := parse.ValidateRecord(res.Record); err != nil {
		// advisory only; the record still stands
		log.Warn("record failed schema validation", "error", err)
	}

	if p.saver != nil {
		if err := p.save(ctx, res); err != nil {
			log.Error("persist failed", "error", err)
			return res, common.WrapError(err, "persist record")
		}
		log.Info("record persisted")
	}
	return res, nil
}

func (p *Processor) save(ctx context.Context, res *Result) error {
	raw, err := json.Marshal(res.Record)
	if err != nil {
		return common.WrapError(err, "marshal record")
	}
	rec := store.InvoiceRecord{
		ID:         res.ID,
		SourcePath: res.SourcePath,
		Method:     res.Acquisition.Method,
		RecordJSON: string(raw),
		CreatedAt:  time.Now().UTC(),
	}
	if inv, ok := res.Record["invoice"].(parse.Section); ok {
		rec.InvoiceNumber, _ = inv["number"].(string)
		rec.InvoiceDate, _ = inv["date"].(string)
	}
	if sup, ok := res.Record["supplier"].(parse.Section); ok {
		rec.Supplier, _ = sup["company_name"].(string)
	}
	if fin, ok := res.Record["financial_summary"].(parse.Section); ok {
		if v, ok := fin["total_amount"].(float64); ok {
			rec.Total = v
		} else if v, ok := fin["total_with_vat"].(float64); ok {
			rec.Total = v
		}
	}
	return p.saver.SaveRecord(ctx, rec)
}
