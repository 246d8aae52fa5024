package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-scanner/internal/common"
)

var runDate = time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)

func row(orig, newName string) Row {
	return Row{
		RunDate:       runDate,
		OriginalFile:  orig,
		NewFile:       newName,
		InvoiceNumber: "RE-1",
		InvoiceDate:   "05.03.2024",
		Amount:        "119.00",
		Sender:        "ACME GmbH",
	}
}

func TestAppendCreatesLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "log.xlsx")

	require.NoError(t, New(nil).Append(context.Background(), path, []Row{row("a.pdf", "x.pdf")}))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"07.03.2024", "a.pdf", "x.pdf", "RE-1", "05.03.2024", "119.00", "ACME GmbH"}, rows[1])

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
}

func TestAppendKeepsExistingRowsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	a := New(nil)
	ctx := context.Background()

	require.NoError(t, a.Append(ctx, path, []Row{row("1.pdf", "one.pdf"), row("2.pdf", "two.pdf")}))
	require.NoError(t, a.Append(ctx, path, []Row{row("3.pdf", "three.pdf")}))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "1.pdf", rows[1][1])
	assert.Equal(t, "2.pdf", rows[2][1])
	assert.Equal(t, "3.pdf", rows[3][1])
}

func TestAppendZeroRowsLeavesContentUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	a := New(nil)
	ctx := context.Background()
	require.NoError(t, a.Append(ctx, path, []Row{row("1.pdf", "one.pdf")}))
	before, err := ReadRows(path)
	require.NoError(t, err)

	require.NoError(t, a.Append(ctx, path, nil))

	after, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAppendToForeignWorkbookUsesFirstSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Rechnungen"))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Rechnungen", "A1", &[]any{"Datum", "Original File"}))
	require.NoError(t, f.SetSheetRow("Rechnungen", "A2", &[]any{"01.01.2024", "old.pdf"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	require.NoError(t, New(nil).Append(context.Background(), path, []Row{row("new.pdf", "n.pdf")}))

	rows, err := ReadRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Datum", "Original File"}, rows[0])
	assert.Equal(t, "old.pdf", rows[1][1])
	assert.Equal(t, "new.pdf", rows[2][1])
}

func TestAppendRefusesUnreadableLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	err := New(nil).Append(context.Background(), path, []Row{row("a.pdf", "b.pdf")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrLedger))

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "not a workbook", string(got), "a broken ledger is never overwritten")
}
