// Package journal keeps an optional database record of pipeline runs and
// per-document outcomes. The spreadsheet ledger stays the user-facing log;
// the journal is for operators.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Run is one pipeline invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Method     string
	InputDir   string
	OutputDir  string
	Total      int
	Succeeded  int
	LedgerErr  string
}

// Entry is the outcome of one document.
type Entry struct {
	RunID         string
	Seq           int
	OriginalName  string
	NewName       string
	Status        string
	InvoiceNumber string
	InvoiceDate   string
	Amount        string
	Sender        string
	ContentHash   string
	Error         string
	ProcessedAt   time.Time
}

type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

type Journal struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	logger  *slog.Logger
}

// DialectFor picks the backend from the DSN scheme. Anything that is not a
// postgres URL is treated as a SQLite file path.
func DialectFor(dsn string) Dialect {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// Open connects and creates the tables if needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("journal: dsn is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	j := &Journal{dialect: DialectFor(cfg.DSN), logger: logger}
	logger.Info("journal.connecting", "dialect", j.dialect)

	switch j.dialect {
	case DialectPostgres:
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			logger.Error("journal.parse_dsn_failed", "error", err)
			return nil, err
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		if cfg.MaxConnLifetime > 0 {
			pc.MaxConnLifetime = cfg.MaxConnLifetime
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "invoice-scanner"

		dctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		pool, err := pgxpool.NewWithConfig(dctx, pc)
		if err != nil {
			logger.Error("journal.connect_failed", "error", err)
			return nil, err
		}
		j.pool = pool
		j.db = stdlib.OpenDBFromPool(pool)
	default:
		db, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			logger.Error("journal.open_failed", "error", err)
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one writer; avoids SQLITE_BUSY between the pipeline and health pings
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
		j.db = db
	}

	if err := j.migrate(ctx); err != nil {
		j.Close()
		return nil, err
	}
	logger.Info("journal.ready", "dialect", j.dialect)
	return j, nil
}

func (j *Journal) Dialect() Dialect { return j.dialect }

// Ping checks the connection.
func (j *Journal) Ping(ctx context.Context) error {
	if j.pool != nil {
		return j.pool.Ping(ctx)
	}
	return j.db.PingContext(ctx)
}

// Close releases the database handles.
func (j *Journal) Close() {
	if j.db != nil {
		if err := j.db.Close(); err != nil {
			j.logger.Error("journal.close_failed", "error", err)
		}
	}
	if j.pool != nil {
		j.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_run (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		method      TEXT NOT NULL,
		input_dir   TEXT NOT NULL,
		output_dir  TEXT NOT NULL,
		total       INTEGER NOT NULL DEFAULT 0,
		succeeded   INTEGER NOT NULL DEFAULT 0,
		ledger_err  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_outcome (
		run_id         TEXT NOT NULL REFERENCES pipeline_run(id),
		seq            INTEGER NOT NULL,
		original_name  TEXT NOT NULL,
		new_name       TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		invoice_number TEXT NOT NULL DEFAULT '',
		invoice_date   TEXT NOT NULL DEFAULT '',
		amount         TEXT NOT NULL DEFAULT '',
		sender         TEXT NOT NULL DEFAULT '',
		content_hash   TEXT NOT NULL DEFAULT '',
		error          TEXT NOT NULL DEFAULT '',
		processed_at   TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
}

func (j *Journal) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			j.logger.Error("journal.migrate_failed", "error", err)
			return fmt.Errorf("migrate journal: %w", err)
		}
	}
	return nil
}

// rebind turns '?' placeholders into $n for postgres.
func (j *Journal) rebind(q string) string {
	if j.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// StartRun inserts the run row.
func (j *Journal) StartRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, j.rebind(
		`INSERT INTO pipeline_run (id, started_at, method, input_dir, output_dir) VALUES (?, ?, ?, ?, ?)`),
		r.ID, ts(r.StartedAt), r.Method, r.InputDir, r.OutputDir)
	if err != nil {
		j.logger.Error("journal.start_run_failed", "run_id", r.ID, "error", err)
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordEntry inserts one document outcome.
func (j *Journal) RecordEntry(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, j.rebind(
		`INSERT INTO pipeline_outcome
			(run_id, seq, original_name, new_name, status, invoice_number, invoice_date, amount, sender, content_hash, error, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.RunID, e.Seq, e.OriginalName, e.NewName, e.Status, e.InvoiceNumber, e.InvoiceDate,
		e.Amount, e.Sender, e.ContentHash, e.Error, ts(e.ProcessedAt))
	if err != nil {
		j.logger.Error("journal.record_entry_failed", "run_id", e.RunID, "file", e.OriginalName, "error", err)
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun stores the run totals.
func (j *Journal) FinishRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, j.rebind(
		`UPDATE pipeline_run SET finished_at = ?, total = ?, succeeded = ?, ledger_err = ? WHERE id = ?`),
		ts(r.FinishedAt), r.Total, r.Succeeded, r.LedgerErr, r.ID)
	if err != nil {
		j.logger.Error("journal.finish_run_failed", "run_id", r.ID, "error", err)
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetRun loads a run by id.
func (j *Journal) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	err := j.db.QueryRowContext(ctx, j.rebind(
		`SELECT id, started_at, finished_at, method, input_dir, output_dir, total, succeeded, ledger_err
		   FROM pipeline_run WHERE id = ?`), id).
		Scan(&r.ID, &started, &finished, &r.Method, &r.InputDir, &r.OutputDir, &r.Total, &r.Succeeded, &r.LedgerErr)
	if err != nil {
		return nil, err
	}
	r.StartedAt = parseTS(started)
	if finished.Valid {
		r.FinishedAt = parseTS(finished.String)
	}
	return &r, nil
}

// Entries lists the outcomes of a run in processing order.
func (j *Journal) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, j.rebind(
		`SELECT run_id, seq, original_name, new_name, status, invoice_number, invoice_date, amount, sender, content_hash, error, processed_at
		   FROM pipeline_outcome WHERE run_id = ? ORDER BY seq`), runID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			j.logger.Warn("journal.rows_close_failed", "error", err)
		}
	}(rows)

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&e.RunID, &e.Seq, &e.OriginalName, &e.NewName, &e.Status, &e.InvoiceNumber,
			&e.InvoiceDate, &e.Amount, &e.Sender, &e.ContentHash, &e.Error, &at); err != nil {
			return nil, err
		}
		e.ProcessedAt = parseTS(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
