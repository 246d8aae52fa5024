package naming

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/invoice-scanner/constants"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "NA"},
		{"N/A", "NA"},
		{"  n/a ", "NA"},
		{"RE-2024/001", "RE-2024_001"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"Müller   GmbH & Co. KG", "Müller_GmbH_&_Co_KG"},
		{"1.234,56", "1_234,56"},
		{"...leading and trailing...", "leading_and_trailing"},
		{"a__b___c", "a_b_c"},
		{"tab\tand\nnewline", "tab_and_newline"},
		{"???", "NA"},
		{"NA", "NA"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("x", 49) + " y" + strings.Repeat("z", 20)
	got := Sanitize(long)
	assert.Equal(t, strings.Repeat("x", 49), got, "cut lands on an underscore, which is trimmed")

	umlauts := strings.Repeat("ä", 80)
	got = Sanitize(umlauts)
	assert.Equal(t, constants.MaxTokenLen, utf8.RuneCountInString(got))
}

func TestSanitizeIdempotentAndSafe(t *testing.T) {
	inputs := []string{
		"", "N/A", "Rechnung Nr. 2024-0815", "C:\\Users\\x\\file.pdf", " __a . b__ ",
		strings.Repeat("ab. ", 40), "Ärzte & Söhne <GmbH>", "1.299,00 €", "\x00\x01ctl", "_", "._.",
		strings.Repeat("x", 49) + "._" + "tail",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
		assert.NotContainsf(t, once, ".", "input %q", in)
		assert.False(t, strings.ContainsAny(once, `<>:"/\|?*`), "input %q gave %q", in, once)
		assert.LessOrEqual(t, utf8.RuneCountInString(once), constants.MaxTokenLen)
		assert.NotEmpty(t, once)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"05.03.2024", "2024-03-05"},
		{"5.3.2024", "2024-03-05"},
		{"05/03/2024", "2024-03-05"},
		{"2024-03-05", "2024-03-05"},
		{"2024-3-5", "2024-03-05"},
		{" 31.12.1999 ", "1999-12-31"},
		{"31.13.2024", "31_13_2024"},
		{"00.01.2024", "00_01_2024"},
		{"01.01.1899", "01_01_1899"},
		{"05.03/2024", "05_03_2024"},
		{"March 5, 2024", "March_5,_2024"},
		{"N/A", "NA"},
		{"", "NA"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestSanitizeComposesUnicode(t *testing.T) {
	assert.Equal(t, "M\u00fcller_AG", Sanitize("Mu\u0308ller AG"))
}
