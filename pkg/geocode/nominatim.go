package geocode

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

const nominatimURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim geocodes through an OpenStreetMap Nominatim instance. The public
// instance requires an identifying User-Agent.
type Nominatim struct {
	httpProvider
}

// NewNominatim creates a Nominatim provider. WithBaseURL accepts a bare host
// name as well as a full URL.
func NewNominatim(opts ...ProviderOption) *Nominatim {
	p := &Nominatim{httpProvider: newHTTPProvider("Nominatim", nominatimURL, opts)}
	p.baseURL = withScheme(p.baseURL)
	return p
}

// Available implements Provider.
func (p *Nominatim) Available() bool { return true }

// Geocode implements Provider.
func (p *Nominatim) Geocode(ctx context.Context, address string) (*Result, error) {
	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}

	var raw json.RawMessage
	if err := p.getJSON(ctx, strings.TrimRight(p.baseURL, "/")+"/search", params, &raw); err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(raw, &places); err != nil {
		return nil, &ProviderError{Provider: p.name, Message: nominatimErrorMessage(raw)}
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Message: "bad latitude " + strconv.Quote(places[0].Lat)}
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Message: "bad longitude " + strconv.Quote(places[0].Lon)}
	}
	return &Result{Latitude: lat, Longitude: lon, Label: places[0].DisplayName}, nil
}

// nominatimErrorMessage extracts the message from {"error": "..."} or
// {"error": {"message": "..."}} bodies.
func nominatimErrorMessage(raw json.RawMessage) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Error) == 0 {
		return "unexpected response shape"
	}
	var msg string
	if json.Unmarshal(body.Error, &msg) == nil {
		return msg
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(body.Error)
}

func withScheme(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "https://" + u
}
