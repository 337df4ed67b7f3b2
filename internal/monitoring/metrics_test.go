package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowafisha/eventmap/internal/model"
)

func TestMetrics_Register(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.CacheLookup("hit")
	m.ProviderCall("ArcGIS", "success", 0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["eventmap_geocode_cache_total"])
	assert.True(t, names["eventmap_geocode_requests_total"])
	assert.True(t, names["eventmap_posts_fetched_total"])
}

func TestMetrics_Unregistered(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(nil)
		NewMetrics(nil)
	})
}

func TestMetrics_ProviderCall(t *testing.T) {
	m := NewMetrics(nil)
	m.ProviderCall("ArcGIS", "success", 120*time.Millisecond)
	m.ProviderCall("ArcGIS", "success", 80*time.Millisecond)
	m.ProviderCall("Yandex", "not_configured", 0)

	assert.InDelta(t, 2, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("ArcGIS", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("Yandex", "not_configured")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.GeocodeDuration))
}

func TestMetrics_CacheLookup(t *testing.T) {
	m := NewMetrics(nil)
	m.CacheLookup("hit")
	m.CacheLookup("hit")
	m.CacheLookup("miss")

	assert.InDelta(t, 2, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestMetrics_RecordRun(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordRun(&model.RunResult{
		PostsFetched: 50,
		Extracted:    12,
		Duplicates:   4,
		TotalEvents:  140,
		FetchError:   "boom",
		Duration:     3 * time.Second,
	})

	assert.InDelta(t, 50, testutil.ToFloat64(m.PostsFetched), 0)
	assert.InDelta(t, 12, testutil.ToFloat64(m.EventsExtracted), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.Duplicates), 0)
	assert.InDelta(t, 140, testutil.ToFloat64(m.EventsPersisted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.FetchFailures), 0)
}
