package pdfreader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	items []Item
	err   error
}

func (s *sliceSource) Next() (Item, error) {
	if len(s.items) == 0 {
		if s.err != nil {
			return Item{}, s.err
		}
		return Item{}, io.EOF
	}
	it := s.items[0]
	s.items = s.items[1:]
	return it, nil
}

func TestCollectInsertsPageBreaks(t *testing.T) {
	src := &sliceSource{items: []Item{
		{Kind: ItemPage, Page: 1},
		{Kind: ItemText, Page: 1, Text: "Rechnung"},
		{Kind: ItemText, Page: 1, Text: "4711"},
		{Kind: ItemPage, Page: 2},
		{Kind: ItemText, Page: 2, Text: "Summe"},
		{Kind: ItemPage, Page: 3},
	}}
	text, pages, err := Collect(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "Rechnung 4711 \f Summe \f", text)
	assert.Equal(t, 3, pages)
}

func TestCollectPropagatesErrors(t *testing.T) {
	src := &sliceSource{items: []Item{{Kind: ItemPage, Page: 1}}, err: errors.New("corrupt stream")}
	_, _, err := Collect(context.Background(), src)
	require.EqualError(t, err, "corrupt stream")
}

func TestCollectStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Collect(ctx, &sliceSource{items: []Item{{Kind: ItemPage, Page: 1}}})
	require.ErrorIs(t, err, context.Canceled)
}

// buildPDF writes a minimal uncompressed PDF with one content stream per page.
func buildPDF(pages ...string) []byte {
	var b bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i, content := range pages {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return b.Bytes()
}

func TestReaderExtract(t *testing.T) {
	data := buildPDF(
		"BT /F1 12 Tf 72 700 Td (Rechnung 4711) Tj 0 -14 Td (Datum 05.03.2024) Tj ET",
		"BT /F1 12 Tf 72 700 Td [(Ge) -300 (samt)] TJ ET",
	)

	res, err := New(nil).Extract(context.Background(), "two-pages.pdf", data)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Rechnung 4711 Datum 05.03.2024 \f Ge samt", res.Text)
}

func TestReaderRejectsNonPDF(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), "x.pdf", []byte("hello"))
	require.Error(t, err)
}
