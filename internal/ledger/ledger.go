// Package ledger appends processed documents to an xlsx audit log.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

// SheetName is used when a new workbook is created.
const SheetName = "PDF Log"

// RunDateLayout formats the first column.
const RunDateLayout = "02.01.2006"

// Header is row 1 of every ledger.
var Header = []string{"Date", "Original File", "New File", "Invoice Number", "Invoice Date", "Amount", "Sender"}

// Row is one successfully relocated document.
type Row struct {
	RunDate       time.Time
	OriginalFile  string
	NewFile       string
	InvoiceNumber string
	InvoiceDate   string
	Amount        string
	Sender        string
}

func (r Row) values() []any {
	return []any{
		r.RunDate.Format(RunDateLayout),
		r.OriginalFile,
		r.NewFile,
		r.InvoiceNumber,
		r.InvoiceDate,
		r.Amount,
		r.Sender,
	}
}

// Appender owns reads and rewrites of one ledger file per call.
type Appender struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Appender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Appender{logger: logger}
}

// Append adds rows after the existing content of the first sheet and rewrites
// the workbook in place. A missing ledger is created with the header row. An
// existing file that cannot be opened is left alone and an error returned.
func (a *Appender) Append(ctx context.Context, path string, rows []Row) error {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return common.NewLedgerError("append cancelled", err)
	}

	f, sheet, existing, err := open(path)
	if err != nil {
		a.logger.Error("ledger.open_failed", "path", path, "error", err)
		return common.NewLedgerError(fmt.Sprintf("open %s", path), err)
	}
	defer func(f *excelize.File) {
		if err := f.Close(); err != nil {
			a.logger.Warn("ledger.close_failed", "path", path, "error", err)
		}
	}(f)

	next := existing + 1
	if existing == 0 {
		if err := setRow(f, sheet, 1, toAny(Header)); err != nil {
			return common.NewLedgerError("write header", err)
		}
		next = 2
	}
	for i, r := range rows {
		if err := setRow(f, sheet, next+i, r.values()); err != nil {
			return common.NewLedgerError(fmt.Sprintf("write row %d", next+i), err)
		}
	}

	if err := save(f, path); err != nil {
		a.logger.Error("ledger.save_failed", "path", path, "error", err)
		return common.NewLedgerError(fmt.Sprintf("save %s", path), err)
	}

	a.logger.Info("ledger.append.ok",
		"path", path,
		"sheet", sheet,
		"existing_rows", existing,
		"appended", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ReadRows returns every row of the first sheet, header included.
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func(f *excelize.File) {
		_ = f.Close()
	}(f)
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func open(path string) (*excelize.File, string, int, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
			_ = f.Close()
			return nil, "", 0, err
		}
		return f, SheetName, 0, nil
	} else if err != nil {
		return nil, "", 0, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", 0, err
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, "", 0, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, "", 0, err
	}
	return f, sheets[0], len(rows), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// save writes to a temporary file next to path and renames it over path, so a
// failed write never leaves a half-written ledger behind.
func save(f *excelize.File, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".ledger-*.xlsx")
	if err != nil {
		return err
	}
	defer func(name string) {
		if err != nil {
			_ = os.Remove(name)
		}
	}(tmp.Name())

	if err = f.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
