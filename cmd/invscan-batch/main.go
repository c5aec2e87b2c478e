// invscan-batch processes every supported document under a directory,
// persists the records and optionally exports an XLSX workbook.
package main

import (
	"context"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dbelyaev/invoicescan/constants"
	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/export"
	"github.com/dbelyaev/invoicescan/internal/ocr"
	"github.com/dbelyaev/invoicescan/internal/parse"
	"github.com/dbelyaev/invoicescan/internal/pipeline"
	"github.com/dbelyaev/invoicescan/internal/store"
)

func main() {
	dir := flag.String("dir", "", "directory to scan for documents (required)")
	dsn := flag.String("dsn", "", "database DSN (default: DB_URL)")
	out := flag.String("out", "", "write an XLSX workbook of all stored records to this path")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *dsn != "" {
		cfg.Database.DSN = *dsn
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *dir, *out); err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, dir, out string) error {
	st, err := store.Open(cfg.Database.DSN, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	extractor := ocr.NewExtractor(ocr.Config{
		Pdftotext:   cfg.OCR.Pdftotext,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Languages:   cfg.OCR.Languages,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	engine := parse.NewEngine(parse.Config{DefaultCurrency: cfg.Parse.DefaultCurrency}, logger)

	proc := pipeline.NewProcessor(extractor, engine, logger)
	proc.UseSaver(st)

	var processed, failed int
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		// one bad document must not sink the batch
		if _, err := proc.Process(ctx, path); err != nil {
			failed++
			logger.Warn("document skipped", "path", path, "error", err)
			return nil
		}
		processed++
		return nil
	})
	if err != nil {
		return common.WrapError(err, "walk directory")
	}
	logger.Info("batch finished", "processed", processed, "failed", failed)

	sum, err := st.Summarize(ctx)
	if err != nil {
		return err
	}
	logger.Info("store summary", "records", sum.Count, "total_amount", sum.TotalAmount)
	for _, s := range sum.BySupplier {
		logger.Info("supplier total", "supplier", s.Supplier, "documents", s.Count, "total", s.Total)
	}

	if out == "" {
		return nil
	}
	records, err := st.ListRecords(ctx)
	if err != nil {
		return err
	}
	buf, err := export.Workbook(records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return common.WrapError(err, "write workbook file")
	}
	logger.Info("workbook written", "path", out, "records", len(records))
	return nil
}
