package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowafisha/eventmap/internal/config"
)

func TestBuildProviders_Order(t *testing.T) {
	gc := config.GeocodeConfig{
		Providers:   []string{"arcgis", "yandex", "nominatim", "google"},
		TimeoutSecs: 10,
		Concurrency: 4,
		Yandex:      config.ProviderConfig{Key: "ykey", MinDelaySecs: 1},
		Google:      config.ProviderConfig{Key: "gkey", MinDelaySecs: 0.1},
	}

	providers, opts, err := buildProviders(gc)
	require.NoError(t, err)
	require.Len(t, providers, 4)

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"ArcGIS", "Yandex", "Nominatim", "Google"}, names)
	// Timeout and concurrency, then one throttle per provider.
	assert.Len(t, opts, 2+4)
}

func TestBuildProviders_Availability(t *testing.T) {
	providers, _, err := buildProviders(config.GeocodeConfig{
		Providers: []string{"arcgis", "yandex", "google"},
	})
	require.NoError(t, err)
	require.Len(t, providers, 3)

	assert.True(t, providers[0].Available(), "arcgis needs no key")
	assert.False(t, providers[1].Available(), "yandex without key")
	assert.False(t, providers[2].Available(), "google without key")
}

func TestBuildProviders_SkipsRepeats(t *testing.T) {
	providers, _, err := buildProviders(config.GeocodeConfig{
		Providers: []string{"nominatim", "nominatim"},
	})
	require.NoError(t, err)
	assert.Len(t, providers, 1)
}

func TestBuildProviders_Unknown(t *testing.T) {
	_, _, err := buildProviders(config.GeocodeConfig{Providers: []string{"bing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bing")
}
