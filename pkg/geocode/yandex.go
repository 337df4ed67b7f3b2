package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const yandexURL = "https://geocode-maps.yandex.ru/1.x/"

type yandexResponse struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []struct {
				GeoObject struct {
					Name        string `json:"name"`
					Description string `json:"description"`
					Point       struct {
						Pos string `json:"pos"`
					} `json:"Point"`
				} `json:"GeoObject"`
			} `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// Yandex geocodes through the Yandex Geocoder HTTP API. It requires a key.
type Yandex struct {
	httpProvider
}

// NewYandex creates a Yandex provider. Use WithAPIKey to enable it.
func NewYandex(opts ...ProviderOption) *Yandex {
	return &Yandex{httpProvider: newHTTPProvider("Yandex", yandexURL, opts)}
}

// Available implements Provider.
func (p *Yandex) Available() bool { return p.key != "" }

// Geocode implements Provider.
func (p *Yandex) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{
		"apikey":  {p.key},
		"geocode": {address},
		"format":  {"json"},
		"results": {"1"},
		"lang":    {"ru_RU"},
	}

	var resp yandexResponse
	if err := p.getJSON(ctx, p.baseURL, params, &resp); err != nil {
		return nil, err
	}
	if resp.Message != "" {
		return nil, &ProviderError{Provider: p.name, Message: resp.Message}
	}

	members := resp.Response.GeoObjectCollection.FeatureMember
	if len(members) == 0 {
		return nil, nil
	}

	obj := members[0].GeoObject
	lat, lon, err := parseYandexPos(obj.Point.Pos)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Message: err.Error()}
	}

	label := obj.Name
	if obj.Description != "" {
		label += ", " + obj.Description
	}
	return &Result{Latitude: lat, Longitude: lon, Label: label}, nil
}

// parseYandexPos parses a "lon lat" position string.
func parseYandexPos(pos string) (lat, lon float64, err error) {
	fields := strings.Fields(pos)
	if len(fields) != 2 {
		return 0, 0, eris.Errorf("malformed position %q", pos)
	}
	if lon, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, err
	}
	if lat, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}
