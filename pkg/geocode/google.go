package geocode

import (
	"context"
	"net/url"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Google geocodes through the Google Geocoding API. It requires a key.
type Google struct {
	httpProvider
}

// NewGoogle creates a Google provider. Use WithAPIKey to enable it.
func NewGoogle(opts ...ProviderOption) *Google {
	return &Google{httpProvider: newHTTPProvider("Google", googleGeocodeURL, opts)}
}

// Available implements Provider.
func (p *Google) Available() bool { return p.key != "" }

// Geocode implements Provider.
func (p *Google) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{
		"address":  {address},
		"key":      {p.key},
		"language": {"ru"},
	}

	var resp googleGeocodeResponse
	if err := p.getJSON(ctx, p.baseURL, params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return nil, &ProviderError{Provider: p.name, Message: msg}
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := resp.Results[0]
	return &Result{
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Label:     r.FormattedAddress,
	}, nil
}
