// Package export renders persisted events for map clients.
package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/meowafisha/eventmap/internal/model"
)

// Formats accepted by Write.
const (
	FormatGeoJSON = "geojson"
	FormatJSON    = "json"
)

// Feature builds a Point feature at [lon, lat] carrying the event's share
// ID and display fields.
func Feature(e model.Event) *geojson.Feature {
	id := e.ID()
	return &geojson.Feature{
		ID:       id,
		Geometry: geom.NewPointFlat(geom.XY, []float64{e.Lon, e.Lat}),
		Properties: map[string]any{
			"id":       id,
			"title":    e.Title,
			"date":     e.Date,
			"location": e.Location,
		},
	}
}

// FeatureCollection converts events to a GeoJSON FeatureCollection.
func FeatureCollection(events []model.Event) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(events))}
	for _, e := range events {
		fc.Features = append(fc.Features, Feature(e))
	}
	return fc
}

// Write encodes events to w in the given format.
func Write(w io.Writer, format string, events []model.Event) error {
	var v any
	switch format {
	case FormatGeoJSON:
		v = FeatureCollection(events)
	case FormatJSON:
		if events == nil {
			events = []model.Event{}
		}
		v = events
	default:
		return eris.Errorf("export: unknown format %q", format)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrapf(err, "export: encode %s", format)
	}
	return nil
}
