package ocr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/dbelyaev/invoicescan/internal/common"
)

const (
	nativePageOne = "Счёт на оплату № 123 от 15.03.2024. Поставщик: ООО Ромашка, ИНН 1234567890."
	ocrPageTwo    = "Покупатель: АО Лютик, ИНН 9876543210. Всего к оплате: 14 400,00 руб."
)

// fakeRunner answers pdftotext with canned output and simulates
// pdftoppm by dropping dummy files where the real binary would.
type fakeRunner struct {
	t            *testing.T
	pdftotextOut string
	pdftotextErr error
	calls        []string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	r.calls = append(r.calls, name)
	switch name {
	case "pdftotext":
		if r.pdftotextErr != nil {
			return nil, []byte("boom"), r.pdftotextErr
		}
		return []byte(r.pdftotextOut), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		if page := flagValue(args, "-f"); page != "" {
			writeDummy(r.t, prefix+"-"+page+".png")
		} else {
			writeDummy(r.t, prefix+"-full-1.png")
			writeDummy(r.t, prefix+"-full-2.png")
		}
		return nil, nil, nil
	default:
		r.t.Fatalf("unexpected command %q", name)
		return nil, nil, nil
	}
}

func flagValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func writeDummy(t *testing.T, path string) {
	t.Helper()
	// deliberately not a decodable image; preprocessing must degrade
	// to the raw path, not fail the ladder
	if err := os.WriteFile(path, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}
}

type fakeRecognizer struct {
	fn func(path string) string
}

func (f fakeRecognizer) Recognize(_ context.Context, path, _ string, _ int) (string, error) {
	return f.fn(path), nil
}

func newTestExtractor(r Runner, rec Recognizer) *Extractor {
	return &Extractor{
		cfg: Config{
			Pdftotext: "pdftotext",
			Pdftoppm:  "pdftoppm",
			Tesseract: "tesseract",
			Languages: "rus+eng",
			DPI:       300,
		},
		runner: r,
		rec:    rec,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestExtractPDFNativeText(t *testing.T) {
	table := "№  Наименование  Кол-во  Цена\n1  Труба  10  1200,00\n2  Лист  5  2000,00"
	runner := &fakeRunner{t: t, pdftotextOut: nativePageOne + "\f" + table + "\f"}
	e := newTestExtractor(runner, fakeRecognizer{fn: func(string) string {
		t.Fatal("recognizer must not run when the native layer suffices")
		return ""
	}})

	res, err := e.Extract(context.Background(), "invoice.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "pdf-text" {
		t.Errorf("method = %q, want pdf-text", res.Method)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if !strings.Contains(res.Text, "ООО Ромашка") {
		t.Errorf("native text missing from result: %q", res.Text)
	}
	if len(res.Tables) == 0 {
		t.Error("layout grids not recovered from native text")
	} else if rows := len(res.Tables[0]); rows != 3 {
		t.Errorf("grid rows = %d, want 3", rows)
	}
	for _, call := range runner.calls {
		if call == "pdftoppm" {
			t.Error("page rasterized despite good native text")
		}
	}
}

func TestExtractPDFMixedPageOCR(t *testing.T) {
	// page 2 has a degenerate native layer and must be recognized,
	// with its text merged back at the second page position
	runner := &fakeRunner{t: t, pdftotextOut: nativePageOne + "\fx"}
	e := newTestExtractor(runner, fakeRecognizer{fn: func(string) string { return ocrPageTwo }})

	res, err := e.Extract(context.Background(), "invoice.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "pdf-mixed" {
		t.Errorf("method = %q, want pdf-mixed", res.Method)
	}
	iNative := strings.Index(res.Text, "ООО Ромашка")
	iOCR := strings.Index(res.Text, "АО Лютик")
	if iNative < 0 || iOCR < 0 {
		t.Fatalf("merged text incomplete: %q", res.Text)
	}
	if iNative > iOCR {
		t.Error("recognized page merged out of order")
	}
}

func TestExtractPDFWholeDocumentFallback(t *testing.T) {
	// every native page is junk and per-page OCR yields nothing, so
	// the whole document is re-rendered and recognized from scratch
	runner := &fakeRunner{t: t, pdftotextOut: "x\fy"}
	e := newTestExtractor(runner, fakeRecognizer{fn: func(path string) string {
		if strings.Contains(path, "-full-") {
			return nativePageOne
		}
		return ""
	}})

	res, err := e.Extract(context.Background(), "invoice.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != "pdf-ocr" {
		t.Errorf("method = %q, want pdf-ocr", res.Method)
	}
	if res.Pages != 2 {
		t.Errorf("pages = %d, want 2", res.Pages)
	}
	if !strings.Contains(res.Text, "ООО Ромашка") {
		t.Errorf("recognized text missing: %q", res.Text)
	}
}

func TestExtractPDFNoUsableText(t *testing.T) {
	runner := &fakeRunner{t: t, pdftotextOut: "x"}
	e := newTestExtractor(runner, fakeRecognizer{fn: func(string) string { return "" }})

	_, err := e.Extract(context.Background(), "invoice.pdf")
	if !errors.Is(err, common.ErrNoUsableText) {
		t.Errorf("err = %v, want ErrNoUsableText", err)
	}
}

func TestExtractImage(t *testing.T) {
	t.Run("readable scan", func(t *testing.T) {
		e := newTestExtractor(&fakeRunner{t: t}, fakeRecognizer{fn: func(string) string { return ocrPageTwo }})
		res, err := e.Extract(context.Background(), "scan.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if res.Method != "image-ocr" {
			t.Errorf("method = %q, want image-ocr", res.Method)
		}
		if !strings.Contains(res.Text, "АО Лютик") {
			t.Errorf("text = %q", res.Text)
		}
	})

	t.Run("unreadable scan", func(t *testing.T) {
		e := newTestExtractor(&fakeRunner{t: t}, fakeRecognizer{fn: func(string) string { return "шум" }})
		_, err := e.Extract(context.Background(), "scan.jpg")
		if !errors.Is(err, common.ErrNoUsableText) {
			t.Errorf("err = %v, want ErrNoUsableText", err)
		}
	})
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := newTestExtractor(&fakeRunner{t: t}, fakeRecognizer{fn: func(string) string { return "" }})
	if _, err := e.Extract(context.Background(), "invoice.docx"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestRecognizeBitmapLadderStopsEarly(t *testing.T) {
	var psms []int
	rec := recognizerFunc(func(_ context.Context, _ string, _ string, psm int) (string, error) {
		psms = append(psms, psm)
		return nativePageOne, nil
	})
	e := newTestExtractor(&fakeRunner{t: t}, rec)

	text, _ := e.recognizeBitmap(context.Background(), "missing.png")
	if text != nativePageOne {
		t.Errorf("text = %q", text)
	}
	if len(psms) != 1 || psms[0] != psmSingleBlock {
		t.Errorf("psm attempts = %v, want [%d]", psms, psmSingleBlock)
	}
}

func TestRecognizeBitmapLadderExhaustsModes(t *testing.T) {
	var psms []int
	rec := recognizerFunc(func(_ context.Context, _ string, _ string, psm int) (string, error) {
		psms = append(psms, psm)
		return "короткий текст тут", nil // above minUsableChars, below minPageChars
	})
	e := newTestExtractor(&fakeRunner{t: t}, rec)

	text, _ := e.recognizeBitmap(context.Background(), "missing.png")
	if text == "" {
		t.Error("usable short text discarded")
	}
	want := strconv.Itoa(len(segModes))
	if got := strconv.Itoa(len(psms)); got != want {
		t.Errorf("psm attempts = %v, want all of %v", psms, segModes)
	}
}

type recognizerFunc func(ctx context.Context, path, languages string, psm int) (string, error)

func (f recognizerFunc) Recognize(ctx context.Context, path, languages string, psm int) (string, error) {
	return f(ctx, path, languages, psm)
}
