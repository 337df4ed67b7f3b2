package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

const maxResponseBytes = 1 << 20

// ProviderOption configures an HTTP-backed provider.
type ProviderOption func(*httpProvider)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ProviderOption {
	return func(p *httpProvider) { p.httpClient = hc }
}

// WithBaseURL overrides the service endpoint.
func WithBaseURL(u string) ProviderOption {
	return func(p *httpProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithAPIKey sets the credential sent with each request.
func WithAPIKey(key string) ProviderOption {
	return func(p *httpProvider) { p.key = key }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ProviderOption {
	return func(p *httpProvider) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

type httpProvider struct {
	name       string
	httpClient *http.Client
	baseURL    string
	key        string
	userAgent  string
}

func newHTTPProvider(name, baseURL string, opts []ProviderOption) httpProvider {
	p := httpProvider{
		name:       name,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		userAgent:  "meowafisha-bot",
	}
	for _, o := range opts {
		o(&p)
	}
	return p
}

// Name implements Provider.
func (p *httpProvider) Name() string { return p.name }

// getJSON issues a GET and decodes a 200 response body into out.
func (p *httpProvider) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", p.name)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &HTTPError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &HTTPError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("geocode: %s returned status %d", p.name, resp.StatusCode),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: p.name, Message: "parse response: " + err.Error()}
	}
	return nil
}
