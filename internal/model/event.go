// Package model defines the event records flowing through the extraction
// and geocoding pipeline.
package model

import (
	"fmt"
	"strconv"
	"unicode/utf16"
)

// EventCandidate is an event parsed from one post, not yet geocoded.
type EventCandidate struct {
	Title    string `json:"title"`
	Date     string `json:"date"` // YYYY-MM-DD
	Location string `json:"location"`
	Text     string `json:"text"`
}

// Key returns the identity used for deduplication and merging.
func (c EventCandidate) Key() EventKey {
	return EventKey{Date: c.Date, Title: c.Title, Location: c.Location}
}

// Event is a geocoded event as persisted in the event store. Lat and Lon are
// always both present; candidates without coordinates never become events.
type Event struct {
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Location string  `json:"location"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Text     string  `json:"text,omitempty"`
}

// NewEvent attaches coordinates to a candidate. It returns false when the
// coordinates are unresolved.
func NewEvent(c EventCandidate, coords Coordinates) (Event, bool) {
	if !coords.Valid {
		return Event{}, false
	}
	return Event{
		Title:    c.Title,
		Date:     c.Date,
		Location: c.Location,
		Lat:      coords.Lat,
		Lon:      coords.Lon,
		Text:     c.Text,
	}, true
}

// Key returns the identity used for deduplication and merging.
func (e Event) Key() EventKey {
	return EventKey{Date: e.Date, Title: e.Title, Location: e.Location}
}

// ID returns the stable share-link identifier of the event: "e" followed by
// the hex djb2 hash of "date|title|lat|lon", computed over UTF-16 code units
// with 32-bit wraparound so it matches the map front-end.
func (e Event) ID() string {
	s := fmt.Sprintf("%s|%s|%s|%s", e.Date, e.Title,
		strconv.FormatFloat(e.Lat, 'f', -1, 64),
		strconv.FormatFloat(e.Lon, 'f', -1, 64))

	h := int64(5381)
	for _, unit := range utf16.Encode([]rune(s)) {
		shifted := int32(uint32(h)) << 5
		h = int64(shifted) + h + int64(unit)
	}
	return "e" + strconv.FormatUint(uint64(uint32(h)), 16)
}

// EventKey is the (date, title, location) identity tuple.
type EventKey struct {
	Date     string
	Title    string
	Location string
}

// String renders the key the way it appears in logs.
func (k EventKey) String() string {
	return k.Date + "|" + k.Title + "|" + k.Location
}
