// Package extract turns free-text event announcements into structured
// event candidates using ordered pattern tables.
package extract

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/meowafisha/eventmap/internal/model"
)

// DefaultTitle is used when a post has no lines at all.
const DefaultTitle = "Событие"

// DefaultCityWords are the settlement names and administrative markers that
// make a location specific enough to geocode without the default city.
var DefaultCityWords = []string{
	"калининград", "гурьевск", "светлогорск", "янтарный", "зеленоградск",
	"пионерский", "балтийск", "поселок", "пос.", "г.",
}

// Options configures an Extractor.
type Options struct {
	DefaultYear string
	DefaultCity string
	CityWords   []string
}

// Extractor parses posts. It holds only configuration and is safe for
// concurrent use.
type Extractor struct {
	year      string
	city      string
	cityWords []string
}

// New creates an Extractor. Empty options fall back to Калининград and
// DefaultCityWords.
func New(opts Options) *Extractor {
	city := opts.DefaultCity
	if city == "" {
		city = "Калининград"
	}
	words := opts.CityWords
	if len(words) == 0 {
		words = DefaultCityWords
	}
	folded := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			folded = append(folded, cases.Fold().String(w))
		}
	}
	return &Extractor{year: opts.DefaultYear, city: city, cityWords: folded}
}

// Extract parses text into an event candidate. It returns false when the
// text lacks a date or a location.
func (x *Extractor) Extract(text string) (model.EventCandidate, bool) {
	if strings.TrimSpace(text) == "" {
		return model.EventCandidate{}, false
	}

	dateMatch, _ := firstMatch(datePatterns, text)
	locMatch, _ := firstMatch(locationPatterns, text)
	if dateMatch == nil || locMatch == nil {
		zap.L().Debug("extract: no date or location in post", zap.String("text", preview(text, 100)))
		return model.EventCandidate{}, false
	}

	location := x.normalizeLocation(locMatch[1])
	if location == "" {
		zap.L().Debug("extract: empty location after normalization", zap.String("text", preview(text, 100)))
		return model.EventCandidate{}, false
	}

	return model.EventCandidate{
		Title:    deriveTitle(text),
		Date:     fmt.Sprintf("%s-%s-%s", x.year, pad2(dateMatch[2]), pad2(dateMatch[1])),
		Location: location,
		Text:     text,
	}, true
}

func (x *Extractor) normalizeLocation(raw string) string {
	loc, _, _ := strings.Cut(raw, detailsArrow)
	loc, _, _ = strings.Cut(loc, "\n")
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return ""
	}
	if !x.mentionsCity(loc) {
		loc += ", " + x.city
	}
	return loc
}

func (x *Extractor) mentionsCity(loc string) bool {
	folded := cases.Fold().String(loc)
	for _, w := range x.cityWords {
		if strings.Contains(folded, w) {
			return true
		}
	}
	return false
}

func deriveTitle(text string) string {
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		if titleLine.MatchString(line) {
			if title := strings.TrimSpace(titlePrefix.ReplaceAllString(line, "")); title != "" {
				return title
			}
			break
		}
	}
	if text == "" {
		return DefaultTitle
	}
	return strings.TrimSpace(lines[0])
}

func pad2(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// preview truncates s to n runes for logging.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
