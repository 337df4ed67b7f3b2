package main

import (
	"github.com/rotisserie/eris"

	"github.com/meowafisha/eventmap/internal/config"
	"github.com/meowafisha/eventmap/pkg/geocode"
)

// buildProviders creates the geocoding providers in the configured cascade
// order, along with the cascade options that carry their throttles.
func buildProviders(gc config.GeocodeConfig) ([]geocode.Provider, []geocode.CascadeOption, error) {
	providers := make([]geocode.Provider, 0, len(gc.Providers))
	opts := []geocode.CascadeOption{
		geocode.WithTimeout(gc.Timeout()),
		geocode.WithConcurrency(gc.Concurrency),
	}
	seen := make(map[string]bool, len(gc.Providers))

	for _, name := range gc.Providers {
		if seen[name] {
			continue
		}
		seen[name] = true

		var (
			p  geocode.Provider
			pc config.ProviderConfig
		)
		switch name {
		case "arcgis":
			pc = gc.ArcGIS
			p = geocode.NewArcGIS(providerOptions(pc)...)
		case "yandex":
			pc = gc.Yandex
			p = geocode.NewYandex(providerOptions(pc)...)
		case "nominatim":
			pc = gc.Nominatim
			p = geocode.NewNominatim(providerOptions(pc)...)
		case "google":
			pc = gc.Google
			p = geocode.NewGoogle(providerOptions(pc)...)
		default:
			return nil, nil, eris.Errorf("geocode: unknown provider %q", name)
		}
		providers = append(providers, p)
		opts = append(opts, geocode.WithMinDelay(p.Name(), pc.MinDelay()))
	}

	return providers, opts, nil
}

func providerOptions(pc config.ProviderConfig) []geocode.ProviderOption {
	var opts []geocode.ProviderOption
	if pc.Key != "" {
		opts = append(opts, geocode.WithAPIKey(pc.Key))
	}
	if pc.BaseURL != "" {
		opts = append(opts, geocode.WithBaseURL(pc.BaseURL))
	}
	if pc.UserAgent != "" {
		opts = append(opts, geocode.WithUserAgent(pc.UserAgent))
	}
	return opts
}
