package extract

import "regexp"

// pattern is one entry of an ordered matching table. Tables are evaluated
// top to bottom and the first pattern that matches anywhere in the text wins,
// regardless of where a later pattern would have matched.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// RE2's \b only knows ASCII word characters, so a date glued to a Cyrillic
// word ("до15.06") would still match. These groups bound a token by any
// Unicode letter, digit or underscore instead.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func bounded(expr string) *regexp.Regexp {
	return regexp.MustCompile(wordStart + expr + wordEnd)
}

// datePatterns capture (day, month) in that order.
var datePatterns = []pattern{
	{name: "dd.mm", re: bounded(`(\d{2})\.(\d{2})`)},
	{name: "dd/mm", re: bounded(`(\d{2})/(\d{2})`)},
	{name: "d.m", re: bounded(`(\d{1,2})\.(\d{1,2})`)},
}

// locationPatterns capture the raw location string.
var locationPatterns = []pattern{
	{name: "pin", re: regexp.MustCompile(`📍\s*(.+)`)},
	{name: "pin-bounded", re: regexp.MustCompile(`📍\s*([^📍\n]+)`)},
	{name: "label-place", re: regexp.MustCompile(`(?i)место[:\s]*(.+)`)},
	{name: "label-address", re: regexp.MustCompile(`(?i)адрес[:\s]*(.+)`)},
}

var (
	// titleLine finds the line carrying the event date.
	titleLine = bounded(`\d{1,2}[./]\d{1,2}`)
	// titlePrefix strips a leading "DD.MM |" from the title line.
	titlePrefix = regexp.MustCompile(`^\s*\d{1,2}[./]\d{1,2}\s*\|\s*`)
)

// detailsArrow marks the start of a "more details" tail after the location.
const detailsArrow = "➡️"

// firstMatch returns the submatches of the first pattern in table that
// matches text, along with that pattern's name.
func firstMatch(table []pattern, text string) ([]string, string) {
	for _, p := range table {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return m, p.name
		}
	}
	return nil, ""
}
