package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowafisha/eventmap/internal/model"
)

var sample = []model.Event{
	{Title: "Концерт", Date: "2025-06-15", Location: "ул. Ленина 5, Калининград", Lat: 54.7, Lon: 20.5},
	{Title: "Лекция", Date: "2025-07-03", Location: "Светлогорск", Lat: 54.94, Lon: 20.15},
}

type featureDoc struct {
	Type     string `json:"type"`
	Features []struct {
		Type     string `json:"type"`
		ID       string `json:"id"`
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func TestWrite_GeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGeoJSON, sample))

	var doc featureDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)

	f := doc.Features[0]
	assert.Equal(t, "Feature", f.Type)
	assert.Equal(t, "e6191fbed", f.ID)
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{20.5, 54.7}, f.Geometry.Coordinates, "GeoJSON is [lon, lat]")
	assert.Equal(t, "Концерт", f.Properties["title"])
	assert.Equal(t, "2025-06-15", f.Properties["date"])
	assert.Equal(t, "e6191fbed", f.Properties["id"])
	assert.Equal(t, "ул. Ленина 5, Калининград", f.Properties["location"])
}

func TestWrite_GeoJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatGeoJSON, nil))

	var doc featureDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "FeatureCollection", doc.Type)
	assert.Empty(t, doc.Features)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample))

	var got []model.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sample, got)
	assert.Contains(t, buf.String(), "Концерт", "non-ASCII text is written as is")
}

func TestWrite_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, "kml", sample)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
