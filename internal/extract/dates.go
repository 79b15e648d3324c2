// internal/extract/dates.go
package extract

import (
	"regexp"
	"strings"
	"time"
)

const monthPattern = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec|January|February|March|April|May|June|July|August|September|October|November|December)`

var (
	numericDateRe = regexp.MustCompile(`(\d{2})[./-](\d{2})[./-](\d{4})`)

	// Textual candidates, in the order they are tried.
	textualDateRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d{1,2}\s+` + monthPattern + `\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b` + monthPattern + `\s+\d{1,2},\s*\d{4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}-` + monthPattern + `-\d{4}\b`),
	}

	textualLayouts = []string{
		"2 January 2006",
		"2 Jan 2006",
		"Jan 2, 2006",
		"January 2, 2006",
		"2-Jan-2006",
		"2-January-2006",
	}

	septRe  = regexp.MustCompile(`(?i)\bsept\b`)
	commaRe = regexp.MustCompile(`,\s*`)
)

// ExtractDate finds the first calendar date in text. Numeric day-month-year
// forms win over textual month names. The returned time is midnight UTC.
func ExtractDate(text string) (time.Time, bool) {
	for _, m := range numericDateRe.FindAllStringSubmatch(text, -1) {
		if d, err := time.Parse("02-01-2006", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return d, true
		}
	}

	for _, re := range textualDateRes {
		for _, cand := range re.FindAllString(text, -1) {
			if d, ok := parseTextualDate(cand); ok {
				return d, true
			}
		}
	}

	return time.Time{}, false
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// CivilDate returns the calendar date of t in loc as midnight UTC, comparable
// with values returned by ExtractDate.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseTextualDate(cand string) (time.Time, bool) {
	cand = strings.Join(strings.Fields(cand), " ")
	cand = septRe.ReplaceAllString(cand, "Sep")
	cand = commaRe.ReplaceAllString(cand, ", ")

	for _, layout := range textualLayouts {
		if d, err := time.Parse(layout, cand); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
