package geocode

import (
	"context"
	"net/url"
	"strings"
)

const arcgisURL = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"

type arcgisResponse struct {
	Candidates []struct {
		Address  string `json:"address"`
		Location struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"location"`
		Score float64 `json:"score"`
	} `json:"candidates"`
	Error *struct {
		Code    int      `json:"code"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	} `json:"error"`
}

// ArcGIS geocodes through the ArcGIS World Geocoding Service. It needs no key.
type ArcGIS struct {
	httpProvider
}

// NewArcGIS creates an ArcGIS provider.
func NewArcGIS(opts ...ProviderOption) *ArcGIS {
	return &ArcGIS{httpProvider: newHTTPProvider("ArcGIS", arcgisURL, opts)}
}

// Available implements Provider.
func (p *ArcGIS) Available() bool { return true }

// Geocode implements Provider.
func (p *ArcGIS) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{
		"SingleLine":   {address},
		"f":            {"json"},
		"maxLocations": {"1"},
	}
	if p.key != "" {
		params.Set("token", p.key)
	}

	var resp arcgisResponse
	if err := p.getJSON(ctx, strings.TrimRight(p.baseURL, "/")+"/findAddressCandidates", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		msg := resp.Error.Message
		if len(resp.Error.Details) > 0 {
			msg += ": " + strings.Join(resp.Error.Details, "; ")
		}
		return nil, &ProviderError{Provider: p.name, Message: msg}
	}
	if len(resp.Candidates) == 0 {
		return nil, nil
	}

	c := resp.Candidates[0]
	return &Result{
		Latitude:  c.Location.Y,
		Longitude: c.Location.X,
		Label:     c.Address,
	}, nil
}
