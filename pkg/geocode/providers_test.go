package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArcGIS_Match(t *testing.T) {
	var req *http.Request
	srv := jsonServer(t, http.StatusOK, `{
		"candidates": [{
			"address": "улица Ленина 5, Калининград",
			"location": {"x": 20.5101, "y": 54.7104},
			"score": 98.5
		}]
	}`, &req)

	p := NewArcGIS(WithBaseURL(srv.URL))
	res, err := p.Geocode(context.Background(), "ул. Ленина 5, Калининград")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 54.7104, res.Latitude, 1e-9)
	assert.InDelta(t, 20.5101, res.Longitude, 1e-9)
	assert.Equal(t, "улица Ленина 5, Калининград", res.Label)

	assert.Equal(t, "/findAddressCandidates", req.URL.Path)
	assert.Equal(t, "ул. Ленина 5, Калининград", req.URL.Query().Get("SingleLine"))
	assert.Equal(t, "json", req.URL.Query().Get("f"))
	assert.True(t, p.Available())
}

func TestArcGIS_NoCandidates(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"candidates": []}`, nil)
	res, err := NewArcGIS(WithBaseURL(srv.URL)).Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestArcGIS_ServiceError(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"error": {"code": 498, "message": "Invalid Token", "details": ["expired"]}}`, nil)
	_, err := NewArcGIS(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "ArcGIS: Invalid Token: expired", pe.Error())
}

func TestArcGIS_HTTPStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusServiceUnavailable, `oops`, nil)
	_, err := NewArcGIS(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)
	assert.Equal(t, "status 503", he.Error())
}

func TestArcGIS_MalformedJSON(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"candidates": [`, nil)
	_, err := NewArcGIS(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "parse response")
}

func TestYandex_Match(t *testing.T) {
	var req *http.Request
	srv := jsonServer(t, http.StatusOK, `{
		"response": {"GeoObjectCollection": {"featureMember": [{
			"GeoObject": {
				"name": "улица Ленина, 5",
				"description": "Калининград, Россия",
				"Point": {"pos": "20.510100 54.710400"}
			}
		}]}}
	}`, &req)

	p := NewYandex(WithBaseURL(srv.URL), WithAPIKey("secret"))
	require.True(t, p.Available())

	res, err := p.Geocode(context.Background(), "ул. Ленина 5")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 54.7104, res.Latitude, 1e-9)
	assert.InDelta(t, 20.5101, res.Longitude, 1e-9)
	assert.Equal(t, "улица Ленина, 5, Калининград, Россия", res.Label)

	q := req.URL.Query()
	assert.Equal(t, "secret", q.Get("apikey"))
	assert.Equal(t, "ул. Ленина 5", q.Get("geocode"))
	assert.Equal(t, "json", q.Get("format"))
}

func TestYandex_NotAvailableWithoutKey(t *testing.T) {
	assert.False(t, NewYandex().Available())
}

func TestYandex_Empty(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"response": {"GeoObjectCollection": {"featureMember": []}}}`, nil)
	res, err := NewYandex(WithBaseURL(srv.URL), WithAPIKey("k")).Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestYandex_Forbidden(t *testing.T) {
	srv := jsonServer(t, http.StatusForbidden, `{"statusCode": 403, "error": "Forbidden", "message": "Invalid api key"}`, nil)
	_, err := NewYandex(WithBaseURL(srv.URL), WithAPIKey("bad")).Geocode(context.Background(), "x")

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.StatusCode)
}

func TestYandex_BadPos(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"response": {"GeoObjectCollection": {"featureMember": [
		{"GeoObject": {"Point": {"pos": "garbage"}}}
	]}}}`, nil)
	_, err := NewYandex(WithBaseURL(srv.URL), WithAPIKey("k")).Geocode(context.Background(), "x")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "malformed position")
}

func TestParseYandexPos(t *testing.T) {
	lat, lon, err := parseYandexPos("37.617635 55.755814")
	require.NoError(t, err)
	assert.InDelta(t, 55.755814, lat, 1e-9)
	assert.InDelta(t, 37.617635, lon, 1e-9)

	_, _, err = parseYandexPos("37.6")
	assert.Error(t, err)
	_, _, err = parseYandexPos("x y")
	assert.Error(t, err)
}

func TestNominatim_Match(t *testing.T) {
	var req *http.Request
	srv := jsonServer(t, http.StatusOK, `[{"lat": "54.7104", "lon": "20.5101", "display_name": "5, улица Ленина"}]`, &req)

	p := NewNominatim(WithBaseURL(srv.URL), WithUserAgent("test-agent"))
	res, err := p.Geocode(context.Background(), "ул. Ленина 5")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 54.7104, res.Latitude, 1e-9)
	assert.InDelta(t, 20.5101, res.Longitude, 1e-9)

	assert.Equal(t, "/search", req.URL.Path)
	assert.Equal(t, "ул. Ленина 5", req.URL.Query().Get("q"))
	assert.Equal(t, "test-agent", req.Header.Get("User-Agent"))
}

func TestNominatim_DefaultUserAgent(t *testing.T) {
	var req *http.Request
	srv := jsonServer(t, http.StatusOK, `[]`, &req)

	res, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, "meowafisha-bot", req.Header.Get("User-Agent"))
}

func TestNominatim_ErrorBody(t *testing.T) {
	for _, body := range []string{
		`{"error": "Nothing to search for"}`,
		`{"error": {"code": 400, "message": "Nothing to search for"}}`,
	} {
		srv := jsonServer(t, http.StatusOK, body, nil)
		_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")

		var pe *ProviderError
		require.ErrorAs(t, err, &pe, body)
		assert.Equal(t, "Nothing to search for", pe.Message)
	}
}

func TestNominatim_BadCoordinate(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[{"lat": "north", "lon": "20.5"}]`, nil)
	_, err := NewNominatim(WithBaseURL(srv.URL)).Geocode(context.Background(), "x")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestNominatim_BareHost(t *testing.T) {
	p := NewNominatim(WithBaseURL("nominatim.example.org"))
	assert.Equal(t, "https://nominatim.example.org", p.baseURL)

	p = NewNominatim(WithBaseURL("http://localhost:8088"))
	assert.Equal(t, "http://localhost:8088", p.baseURL)
}

func TestGoogle_Match(t *testing.T) {
	var req *http.Request
	srv := jsonServer(t, http.StatusOK, `{
		"status": "OK",
		"results": [{
			"geometry": {"location": {"lat": 54.7104, "lng": 20.5101}},
			"formatted_address": "ул. Ленина, 5, Калининград"
		}]
	}`, &req)

	p := NewGoogle(WithBaseURL(srv.URL), WithAPIKey("test-key"))
	require.True(t, p.Available())
	res, err := p.Geocode(context.Background(), "ул. Ленина 5")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.InDelta(t, 54.7104, res.Latitude, 1e-9)
	assert.Equal(t, "test-key", req.URL.Query().Get("key"))
}

func TestGoogle_ZeroResults(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"status": "ZERO_RESULTS", "results": []}`, nil)
	res, err := NewGoogle(WithBaseURL(srv.URL), WithAPIKey("k")).Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGoogle_Denied(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`, nil)
	_, err := NewGoogle(WithBaseURL(srv.URL), WithAPIKey("k")).Geocode(context.Background(), "x")

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "REQUEST_DENIED: The provided API key is invalid.", pe.Message)
}

func TestGoogle_NotAvailableWithoutKey(t *testing.T) {
	assert.False(t, NewGoogle().Available())
}

func TestProvider_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewArcGIS(WithBaseURL(srv.URL)).Geocode(ctx, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	outcome, detail := classify(err)
	assert.Equal(t, OutcomeTimeout, outcome)
	assert.Equal(t, "timeout", detail)
}

func TestProvider_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewNominatim(WithBaseURL(url)).Geocode(context.Background(), "x")
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Zero(t, he.StatusCode)

	outcome, detail := classify(err)
	assert.Equal(t, OutcomeHTTPError, outcome)
	assert.Contains(t, detail, "HTTP error: ")
}
