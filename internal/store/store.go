// Package store persists parsed invoice records. The backend is
// selected by DSN: postgres:// URLs use pgx, anything else is treated
// as a SQLite file path (":memory:" included).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/dbelyaev/invoicescan/internal/common"
)

const schema = `
CREATE TABLE IF NOT EXISTS invoice_record (
	id             TEXT PRIMARY KEY,
	source_path    TEXT NOT NULL,
	method         TEXT NOT NULL,
	invoice_number TEXT,
	invoice_date   TEXT,
	supplier       TEXT,
	total          REAL,
	record_json    TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
)`

// InvoiceRecord is the flat row kept per processed document; the full
// nested record travels as JSON in record_json.
type InvoiceRecord struct {
	ID            string
	SourcePath    string
	Method        string
	InvoiceNumber string
	InvoiceDate   string
	Supplier      string
	Total         float64
	RecordJSON    string
	CreatedAt     time.Time
}

// SupplierTotal is one row of the per-supplier summary.
type SupplierTotal struct {
	Supplier string
	Count    int
	Total    float64
}

// Summary aggregates the stored records.
type Summary struct {
	Count       int
	TotalAmount float64
	BySupplier  []SupplierTotal
}

type Store struct {
	db       *sql.DB
	postgres bool
	logger   *slog.Logger
}

// Open connects to the backend named by the DSN and ensures the
// schema exists.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver := "sqlite"
	postgres := false
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
		postgres = true
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, common.WrapError(err, "open database")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, common.WrapError(err, "ensure schema")
	}
	logger.Debug("store opened", "driver", driver)
	return &Store{db: db, postgres: postgres, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for the postgres driver.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) SaveRecord(ctx context.Context, rec InvoiceRecord) error {
	if rec.ID == "" {
		return common.NewAppError("STORE_ERROR", "record has no id", common.ErrInvalidInput)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO invoice_record
			(id, source_path, method, invoice_number, invoice_date, supplier, total, record_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.SourcePath, rec.Method, rec.InvoiceNumber, rec.InvoiceDate,
		rec.Supplier, rec.Total, rec.RecordJSON, rec.CreatedAt)
	if err != nil {
		return common.WrapError(err, "insert record")
	}
	s.logger.Debug("record saved", "id", rec.ID, "invoice_number", rec.InvoiceNumber)
	return nil
}

func (s *Store) GetRecord(ctx context.Context, id string) (InvoiceRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, source_path, method, invoice_number, invoice_date, supplier, total, record_json, created_at
		FROM invoice_record WHERE id = ?`), id)
	var rec InvoiceRecord
	err := row.Scan(&rec.ID, &rec.SourcePath, &rec.Method, &rec.InvoiceNumber,
		&rec.InvoiceDate, &rec.Supplier, &rec.Total, &rec.RecordJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return InvoiceRecord{}, common.NewAppError("STORE_ERROR", "record "+id, common.ErrNotFound)
	}
	if err != nil {
		return InvoiceRecord{}, common.WrapError(err, "get record")
	}
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context) ([]InvoiceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_path, method, invoice_number, invoice_date, supplier, total, record_json, created_at
		FROM invoice_record ORDER BY created_at, id`)
	if err != nil {
		return nil, common.WrapError(err, "list records")
	}
	defer rows.Close()

	var out []InvoiceRecord
	for rows.Next() {
		var rec InvoiceRecord
		if err := rows.Scan(&rec.ID, &rec.SourcePath, &rec.Method, &rec.InvoiceNumber,
			&rec.InvoiceDate, &rec.Supplier, &rec.Total, &rec.RecordJSON, &rec.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan record")
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Summarize computes document count, grand total and a per-supplier
// breakdown ordered by descending total.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(total), 0) FROM invoice_record`)
	if err := row.Scan(&sum.Count, &sum.TotalAmount); err != nil {
		return Summary{}, common.WrapError(err, "summarize")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT supplier, COUNT(*), COALESCE(SUM(total), 0)
		FROM invoice_record
		WHERE supplier <> ''
		GROUP BY supplier
		ORDER BY SUM(total) DESC, supplier`)
	if err != nil {
		return Summary{}, common.WrapError(err, "summarize suppliers")
	}
	defer rows.Close()

	for rows.Next() {
		var st SupplierTotal
		if err := rows.Scan(&st.Supplier, &st.Count, &st.Total); err != nil {
			return Summary{}, common.WrapError(err, "scan supplier total")
		}
		sum.BySupplier = append(sum.BySupplier, st)
	}
	return sum, rows.Err()
}
