// invscan extracts a structured invoice record from one PDF or image
// and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dbelyaev/invoicescan/internal/common"
	"github.com/dbelyaev/invoicescan/internal/ocr"
	"github.com/dbelyaev/invoicescan/internal/parse"
	"github.com/dbelyaev/invoicescan/internal/pipeline"
	"github.com/dbelyaev/invoicescan/internal/store"
	"github.com/dbelyaev/invoicescan/internal/validate"
)

func main() {
	filePath := flag.String("file", "", "path to the PDF or image to process (required)")
	save := flag.Bool("save", false, "persist the record to the database named by DB_URL")
	useValidator := flag.Bool("validate", false, "enable the LLM field validator")
	pretty := flag.Bool("pretty", false, "indent the JSON output")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *filePath == "" {
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
	if *useValidator {
		cfg.Validator.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *filePath, *save, *pretty); err != nil {
		if errors.Is(err, common.ErrNoUsableText) {
			logger.Error("document unreadable", "path", *filePath)
			os.Exit(3)
		}
		logger.Error("processing failed", "path", *filePath, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, filePath string, save, pretty bool) error {
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
	if cfg.Validator.Enabled {
		v, err := validate.NewOpenAIValidator(cfg.Validator, logger)
		if err != nil {
			return err
		}
		engine.UseValidator(v)
	}

	proc := pipeline.NewProcessor(extractor, engine, logger)
	if save {
		st, err := store.Open(cfg.Database.DSN, logger)
		if err != nil {
			return err
		}
		defer st.Close()
		proc.UseSaver(st)
	}

	res, err := proc.Process(ctx, filePath)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res.Record); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}
