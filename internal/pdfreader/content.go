package pdfreader

import (
	"bytes"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// operand is one value on the content stream operand stack.
type operand struct {
	str   []byte    // literal or hex string
	num   float64   // number
	isNum bool
	arr   []operand // array
	isArr bool
}

// textRuns returns the strings shown by Tj, TJ, ' and " in one page's
// content stream, in stream order. Everything else is parsed and dropped.
func textRuns(content []byte) []string {
	l := lexer{buf: content}
	var stack []operand
	var runs []string

	emit := func(raw []byte) {
		if s := decodeText(raw); s != "" {
			runs = append(runs, s)
		}
	}

	for {
		tok, op, ok := l.next()
		if !ok {
			return runs
		}
		if op == "" {
			stack = append(stack, tok)
			continue
		}
		switch op {
		case "Tj", "'":
			if n := len(stack); n > 0 && stack[n-1].str != nil {
				emit(stack[n-1].str)
			}
		case `"`:
			if n := len(stack); n > 0 && stack[n-1].str != nil {
				emit(stack[n-1].str)
			}
		case "TJ":
			if n := len(stack); n > 0 && stack[n-1].isArr {
				emit(joinTJ(stack[n-1].arr))
			}
		case "BI":
			l.skipInlineImage()
		}
		stack = stack[:0]
	}
}

// joinTJ concatenates a TJ array; large negative adjustments are word gaps.
func joinTJ(arr []operand) []byte {
	var b bytes.Buffer
	for _, o := range arr {
		switch {
		case o.str != nil:
			b.Write(o.str)
		case o.isNum && o.num < -200:
			b.WriteByte(' ')
		}
	}
	return b.Bytes()
}

var utf16BOM = []byte{0xFE, 0xFF}

// decodeText maps string bytes to text. UTF-16BE strings carry a BOM; the rest
// is read as Windows-1252, which covers the simple fonts invoices usually use.
// Composite fonts without a readable encoding produce control bytes, which
// are dropped.
func decodeText(raw []byte) string {
	var s string
	if bytes.HasPrefix(raw, utf16BOM) {
		out, err := xunicode.UTF16(xunicode.BigEndian, xunicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		s = string(out)
	} else {
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return ""
		}
		s = string(out)
	}
	s = strings.Map(func(r rune) rune {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\t') {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

type lexer struct {
	buf []byte
	pos int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		switch {
		case isWhite(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.buf) && l.buf[l.pos] != '\n' && l.buf[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// next returns either an operand (op == "") or an operator.
func (l *lexer) next() (operand, string, bool) {
	l.skipSpace()
	if l.pos >= len(l.buf) {
		return operand{}, "", false
	}
	c := l.buf[l.pos]
	switch {
	case c == '(':
		l.pos++
		return operand{str: l.literal()}, "", true
	case c == '<' && l.peek(1) == '<':
		l.skipDict()
		return operand{}, "", true
	case c == '<':
		l.pos++
		return operand{str: l.hex()}, "", true
	case c == '[':
		l.pos++
		return operand{arr: l.array(), isArr: true}, "", true
	case c == '/':
		l.pos++
		l.word()
		return operand{}, "", true
	case c == ']' || c == '>' || c == ')' || c == '{' || c == '}':
		l.pos++
		return operand{}, "", true
	}
	w := l.word()
	if w == "" {
		l.pos++
		return operand{}, "", true
	}
	if f, err := strconv.ParseFloat(w, 64); err == nil {
		return operand{num: f, isNum: true}, "", true
	}
	return operand{}, w, true
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.buf) {
		return l.buf[l.pos+off]
	}
	return 0
}

func (l *lexer) word() string {
	start := l.pos
	for l.pos < len(l.buf) && !isWhite(l.buf[l.pos]) && !isDelim(l.buf[l.pos]) {
		l.pos++
	}
	return string(l.buf[start:l.pos])
}

// literal reads a (string) body after the opening paren.
func (l *lexer) literal() []byte {
	out := []byte{}
	depth := 1
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return out
			}
		case '\\':
			if l.pos >= len(l.buf) {
				return out
			}
			e := l.buf[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.peek(0) == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.buf) && l.buf[l.pos] >= '0' && l.buf[l.pos] <= '7'; i++ {
						v = v*8 + int(l.buf[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// hex reads a <hex> body after the opening angle bracket.
func (l *lexer) hex() []byte {
	out := []byte{}
	var hi byte
	half := false
	for l.pos < len(l.buf) {
		c := l.buf[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		v, ok := hexVal(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *lexer) array() []operand {
	var arr []operand
	for {
		l.skipSpace()
		if l.pos >= len(l.buf) {
			return arr
		}
		if l.buf[l.pos] == ']' {
			l.pos++
			return arr
		}
		tok, op, ok := l.next()
		if !ok {
			return arr
		}
		if op == "" {
			arr = append(arr, tok)
		}
	}
}

func (l *lexer) skipDict() {
	depth := 0
	for l.pos < len(l.buf) {
		switch {
		case l.buf[l.pos] == '<' && l.peek(1) == '<':
			depth++
			l.pos += 2
		case l.buf[l.pos] == '>' && l.peek(1) == '>':
			depth--
			l.pos += 2
			if depth == 0 {
				return
			}
		case l.buf[l.pos] == '(':
			l.pos++
			l.literal()
		default:
			l.pos++
		}
	}
}

// skipInlineImage jumps past the binary data of BI ... ID <data> EI.
func (l *lexer) skipInlineImage() {
	id := bytes.Index(l.buf[l.pos:], []byte("ID"))
	if id < 0 {
		l.pos = len(l.buf)
		return
	}
	l.pos += id + 2
	for l.pos < len(l.buf) {
		i := bytes.Index(l.buf[l.pos:], []byte("EI"))
		if i < 0 {
			l.pos = len(l.buf)
			return
		}
		at := l.pos + i
		before := at == 0 || isWhite(l.buf[at-1])
		after := at+2 >= len(l.buf) || isWhite(l.buf[at+2])
		l.pos = at + 2
		if before && after {
			return
		}
	}
}
