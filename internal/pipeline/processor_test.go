package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-scanner/constants"
	"github.com/joseph-ayodele/invoice-scanner/internal/common"
	"github.com/joseph-ayodele/invoice-scanner/internal/events"
	"github.com/joseph-ayodele/invoice-scanner/internal/extract"
	"github.com/joseph-ayodele/invoice-scanner/internal/journal"
	"github.com/joseph-ayodele/invoice-scanner/internal/ledger"
	"github.com/joseph-ayodele/invoice-scanner/internal/llm"
)

var clock = func() time.Time { return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC) }

type env struct {
	in, out, ledger string
}

func newEnv(t *testing.T, docs ...string) env {
	t.Helper()
	root := t.TempDir()
	e := env{
		in:     filepath.Join(root, "in"),
		out:    filepath.Join(root, "out"),
		ledger: filepath.Join(root, "log.xlsx"),
	}
	require.NoError(t, os.MkdirAll(e.in, 0o755))
	for _, d := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(e.in, d), []byte("%PDF-1.4 "+d), 0o644))
	}
	return e
}

func (e env) config() Config {
	return Config{InputDir: e.in, OutputDir: e.out, LedgerPath: e.ledger, Method: constants.MethodRuleReader}
}

// textByName echoes the document name as its text.
var textByName = extract.Func(func(_ context.Context, doc extract.Document) (extract.TextExtractionResult, error) {
	return extract.TextExtractionResult{Text: doc.Name, Pages: 1, Method: "pdfreader"}, nil
})

type fieldsByText map[string]*llm.InvoiceFields

func (f fieldsByText) ExtractFields(_ context.Context, text string) (*llm.InvoiceFields, error) {
	if v, ok := f[text]; ok && v != nil {
		cp := *v
		return &cp, nil
	}
	return nil, common.ErrFieldExtractionEmpty
}

func acme(number string) *llm.InvoiceFields {
	return &llm.InvoiceFields{InvoiceNumber: number, Date: "2024-03-05", TotalAmount: "119", Sender: "ACME"}
}

func exists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

func TestRunMixedOutcomes(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf", "c.pdf")
	fields := fieldsByText{
		"a.pdf": acme("RE-1"),
		"c.pdf": {InvoiceNumber: "77", Date: "01.02.2024", TotalAmount: "40", Sender: "Stadtwerke"},
	}
	rec := &events.Recorder{}
	p := NewProcessor(e.config(), textByName, fields, nil, WithSink(rec), WithClock(clock))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "a.pdf", res.Outcomes[0].OriginalName)
	assert.Equal(t, "b.pdf", res.Outcomes[1].OriginalName)
	assert.Equal(t, "c.pdf", res.Outcomes[2].OriginalName)
	assert.True(t, res.Outcomes[0].Succeeded())
	assert.False(t, res.Outcomes[1].Succeeded())
	assert.Equal(t, constants.MsgNoData, res.Outcomes[1].Error)
	assert.True(t, res.Outcomes[2].Succeeded())
	assert.Equal(t, "2/3", res.Tally())

	assert.Equal(t, "2024-03-05_RE-1_EUR_119_ACME.pdf", res.Outcomes[0].ResolvedName)
	assert.Equal(t, "2024-02-01_77_EUR_40_Stadtwerke.pdf", res.Outcomes[2].ResolvedName)
	assert.True(t, exists(t, filepath.Join(e.out, res.Outcomes[0].ResolvedName)))
	assert.False(t, exists(t, filepath.Join(e.in, "a.pdf")))
	assert.True(t, exists(t, filepath.Join(e.in, "b.pdf")), "failed document stays in place")

	rows, err := ledger.ReadRows(e.ledger)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ledger.Header, rows[0])
	assert.Equal(t, []string{"10.03.2024", "a.pdf", "2024-03-05_RE-1_EUR_119_ACME.pdf", "RE-1", "2024-03-05", "119", "ACME"}, rows[1])
	assert.Equal(t, "c.pdf", rows[2][1])

	evs := rec.Events()
	last := evs[len(evs)-1]
	assert.Equal(t, events.KindRunComplete, last.Kind)
	assert.Equal(t, 2, last.Succeeded)
	assert.Equal(t, 3, last.Total)
	assert.Contains(t, last.Message, "2/3")
}

func TestRunEventOrder(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf")
	rec := &events.Recorder{}
	p := NewProcessor(e.config(), textByName, fieldsByText{"a.pdf": acme("1")}, nil, WithSink(rec), WithClock(clock))

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []events.Kind{
		events.KindRunStart,
		events.KindFileStart, events.KindTextExtraction, events.KindFieldExtraction, events.KindRelocation, events.KindFileSuccess,
		events.KindFileStart, events.KindTextExtraction, events.KindFieldExtraction, events.KindFileError,
		events.KindLogUpdate,
		events.KindRunComplete,
	}, rec.Kinds())

	evs := rec.Events()
	assert.Equal(t, 2, evs[0].Total)
	for i, ev := range evs {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, evs[0].RunID, ev.RunID)
	}
	assert.Equal(t, 1, evs[1].Index)
	assert.Equal(t, "a.pdf", evs[1].FileName)
	assert.Equal(t, 2, evs[6].Index)
}

func TestRunCollisionGetsSuffix(t *testing.T) {
	e := newEnv(t, "first.pdf", "second.pdf")
	fields := fieldsByText{"first.pdf": acme("RE-1"), "second.pdf": acme("RE-1")}
	p := NewProcessor(e.config(), textByName, fields, nil, WithClock(clock))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)

	assert.Equal(t, "2024-03-05_RE-1_EUR_119_ACME.pdf", res.Outcomes[0].ResolvedName)
	assert.False(t, res.Outcomes[0].WasRenamed)
	assert.Equal(t, "2024-03-05_RE-1_EUR_119_ACME_1.pdf", res.Outcomes[1].ResolvedName)
	assert.True(t, res.Outcomes[1].WasRenamed)
	assert.Equal(t, res.Outcomes[0].CandidateName, res.Outcomes[1].CandidateName)
}

func TestRunAllMissingFieldsKeepsOriginalStem(t *testing.T) {
	e := newEnv(t, "scan 7.pdf")
	blank := fieldsByText{"scan 7.pdf": {InvoiceNumber: "N/A", Date: "N/A", TotalAmount: "N/A", Sender: "N/A"}}
	p := NewProcessor(e.config(), textByName, blank, nil, WithClock(clock))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Outcomes[0].Succeeded())
	assert.Equal(t, "scan 7_2024-03-10_unprocessed.pdf", res.Outcomes[0].ResolvedName)
}

func TestRunNoNewDocumentsLeavesLedger(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, ledger.New(nil).Append(context.Background(), e.ledger, []ledger.Row{
		{RunDate: clock(), OriginalFile: "old.pdf", NewFile: "x.pdf", InvoiceNumber: "1", InvoiceDate: "2024-01-01", Amount: "5", Sender: "S"},
	}))
	before, err := ledger.ReadRows(e.ledger)
	require.NoError(t, err)

	rec := &events.Recorder{}
	res, err := NewProcessor(e.config(), textByName, fieldsByText{}, nil, WithSink(rec)).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, "0/0", res.Tally())

	after, err := ledger.ReadRows(e.ledger)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []events.Kind{events.KindRunStart, events.KindLogUpdate, events.KindRunComplete}, rec.Kinds())
}

func TestRunExtractionFailure(t *testing.T) {
	e := newEnv(t, "bad.pdf", "good.pdf")
	text := extract.Func(func(ctx context.Context, doc extract.Document) (extract.TextExtractionResult, error) {
		if doc.Name == "bad.pdf" {
			return extract.TextExtractionResult{}, common.NewExtractionError("pdfreader: bad.pdf", errors.New("malformed xref"))
		}
		return textByName(ctx, doc)
	})
	p := NewProcessor(e.config(), text, fieldsByText{"good.pdf": acme("9")}, nil, WithClock(clock))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 2)
	assert.Equal(t, "text extraction failed: pdfreader: bad.pdf: malformed xref", res.Outcomes[0].Error)
	assert.True(t, exists(t, filepath.Join(e.in, "bad.pdf")))
	assert.True(t, res.Outcomes[1].Succeeded())
}

type failingRelocator struct{}

func (failingRelocator) Relocate(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestRunRelocationFailure(t *testing.T) {
	e := newEnv(t, "a.pdf")
	p := NewProcessor(e.config(), textByName, fieldsByText{"a.pdf": acme("1")}, nil,
		WithRelocator(failingRelocator{}), WithClock(clock))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	o := res.Outcomes[0]
	assert.False(t, o.Succeeded())
	assert.Equal(t, "copy failed: disk full", o.Error)
	assert.True(t, exists(t, filepath.Join(e.in, "a.pdf")))

	rows, err := ledger.ReadRows(e.ledger)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestRunPanicBecomesFailure(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf")
	text := extract.Func(func(ctx context.Context, doc extract.Document) (extract.TextExtractionResult, error) {
		if doc.Name == "a.pdf" {
			panic("boom")
		}
		return textByName(ctx, doc)
	})
	res, err := NewProcessor(e.config(), text, fieldsByText{"b.pdf": acme("2")}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, res.Outcomes[0].Error, "boom")
	assert.True(t, res.Outcomes[1].Succeeded())
}

func TestRunEnumerationFailure(t *testing.T) {
	e := newEnv(t)
	cfg := e.config()
	cfg.InputDir = filepath.Join(e.in, "missing")
	rec := &events.Recorder{}

	res, err := NewProcessor(cfg, textByName, fieldsByText{}, nil, WithSink(rec)).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrEnumeration))
	assert.True(t, common.IsFatal(err))
	assert.Empty(t, res.Outcomes)
	assert.Empty(t, rec.Events())
	assert.False(t, exists(t, e.ledger))
}

func TestRunLedgerFailureKeepsOutcomes(t *testing.T) {
	e := newEnv(t, "a.pdf")
	cfg := e.config()
	cfg.LedgerPath = e.in // a directory cannot be a workbook

	res, err := NewProcessor(cfg, textByName, fieldsByText{"a.pdf": acme("1")}, nil, WithClock(clock)).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrLedger))
	require.Len(t, res.Outcomes, 1)
	assert.True(t, res.Outcomes[0].Succeeded())
	assert.Error(t, res.LedgerErr)
}

func TestRunCancelledBetweenDocuments(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf", "c.pdf")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := events.Func(func(ev events.Event) {
		if ev.Kind == events.KindFileSuccess {
			cancel()
		}
	})
	fields := fieldsByText{"a.pdf": acme("1"), "b.pdf": acme("2"), "c.pdf": acme("3")}
	rec := &events.Recorder{}

	res, err := NewProcessor(e.config(), textByName, fields, nil,
		WithSink(events.Multi{sink, rec}), WithClock(clock)).Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	require.Len(t, res.Outcomes, 1)
	assert.True(t, exists(t, filepath.Join(e.in, "b.pdf")))

	rows, err := ledger.ReadRows(e.ledger)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	kinds := rec.Kinds()
	assert.Equal(t, events.KindRunComplete, kinds[len(kinds)-1])
}

type memJournal struct {
	mu      sync.Mutex
	runs    []journal.Run
	entries []journal.Entry
	fin     []journal.Run
}

func (m *memJournal) StartRun(_ context.Context, r journal.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, r)
	return nil
}

func (m *memJournal) RecordEntry(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return errors.New("entries are logged, not fatal")
}

func (m *memJournal) FinishRun(_ context.Context, r journal.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fin = append(m.fin, r)
	return nil
}

func TestRunWritesJournal(t *testing.T) {
	e := newEnv(t, "a.pdf", "b.pdf")
	j := &memJournal{}
	res, err := NewProcessor(e.config(), textByName, fieldsByText{"a.pdf": acme("1")}, nil,
		WithJournal(j), WithClock(clock)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, j.runs, 1)
	assert.Equal(t, res.RunID, j.runs[0].ID)
	assert.Equal(t, "pdfreader", j.runs[0].Method)

	require.Len(t, j.entries, 2)
	assert.Equal(t, "SUCCEEDED", j.entries[0].Status)
	assert.Equal(t, "1", j.entries[0].InvoiceNumber)
	assert.NotEmpty(t, j.entries[0].ContentHash)
	assert.Equal(t, "FAILED", j.entries[1].Status)
	assert.Equal(t, constants.MsgNoData, j.entries[1].Error)

	require.Len(t, j.fin, 1)
	assert.Equal(t, 2, j.fin[0].Total)
	assert.Equal(t, 1, j.fin[0].Succeeded)
}

func TestRunWithSQLiteJournal(t *testing.T) {
	e := newEnv(t, "a.pdf")
	j, err := journal.Open(context.Background(), journal.Config{DSN: filepath.Join(t.TempDir(), "j.db")}, nil)
	require.NoError(t, err)
	defer j.Close()

	res, err := NewProcessor(e.config(), textByName, fieldsByText{"a.pdf": acme("1")}, nil,
		WithJournal(j), WithClock(clock)).Run(context.Background())
	require.NoError(t, err)

	entries, err := j.Entries(context.Background(), res.RunID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.Outcomes[0].ResolvedName, entries[0].NewName)
}
