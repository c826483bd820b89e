package extract

import (
	"regexp"
	"strings"
)

// birthdatePattern couples a date regex with the layout used to parse its
// canonical form. time.Parse rejects impossible day/month combinations, so
// no extra range checks are needed beyond the year plausibility cut.
type birthdatePattern struct {
	re        *regexp.Regexp
	layout    string
	canonical func(string) string
}

var birthdatePatterns = []birthdatePattern{
	{
		re:        regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
		layout:    "2006-01-02",
		canonical: func(s string) string { return s },
	},
	{
		re:        regexp.MustCompile(`\b\d{2}[./]\d{2}[./]\d{4}\b`),
		layout:    "02.01.2006",
		canonical: func(s string) string { return strings.ReplaceAll(s, "/", ".") },
	},
}

// birthMarker matches the explicit birth-date markers seen in Latin and
// Cyrillic business text.
const birthMarker = `(?:born|date of birth|dob|д\.\s?р\.|дата рождения|род\.)`

// markerBirthdatePatterns anchor a date to an explicit marker ("born
// 1990-04-12", "д.р. 12.04.1990"). The capture group holds the date itself.
// A marker-anchored date wins attachment over any bare date in the text,
// which keeps invoice numbers and document dates from claiming a person.
var markerBirthdatePatterns = []birthdatePattern{
	{
		re:        regexp.MustCompile(`(?i)` + birthMarker + `[:\s]\s*(\d{4}-\d{2}-\d{2})\b`),
		layout:    "2006-01-02",
		canonical: func(s string) string { return s },
	},
	{
		re:        regexp.MustCompile(`(?i)` + birthMarker + `[:\s]\s*(\d{2}[./]\d{2}[./]\d{4})\b`),
		layout:    "02.01.2006",
		canonical: func(s string) string { return strings.ReplaceAll(s, "/", ".") },
	},
}
