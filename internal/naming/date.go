package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDayMonthYear = regexp.MustCompile(`^(\d{1,2})[./](\d{1,2})[./](\d{4})$`)
	reYearMonthDay = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// NormalizeDate renders DD.MM.YYYY, DD/MM/YYYY and YYYY-MM-DD as YYYY-MM-DD.
// Anything that does not parse or is out of range falls back to Sanitize.
func NormalizeDate(value string) string {
	v := strings.TrimSpace(value)
	if IsMissing(v) {
		return Sanitize(v)
	}

	var day, month, year string
	if m := reDayMonthYear.FindStringSubmatch(v); m != nil && sameSeparator(v) {
		day, month, year = m[1], m[2], m[3]
	} else if m := reYearMonthDay.FindStringSubmatch(v); m != nil {
		year, month, day = m[1], m[2], m[3]
	} else {
		return Sanitize(value)
	}

	d, _ := strconv.Atoi(day)
	mo, _ := strconv.Atoi(month)
	y, _ := strconv.Atoi(year)
	if d < 1 || d > 31 || mo < 1 || mo > 12 || y < 1900 || y > 2100 {
		return Sanitize(value)
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mo, d)
}

// sameSeparator rejects mixed forms such as 05.03/2024.
func sameSeparator(v string) bool {
	return strings.Count(v, ".") == 2 || strings.Count(v, "/") == 2
}
