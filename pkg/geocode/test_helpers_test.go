package geocode

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeProvider is a scripted Provider.
type fakeProvider struct {
	name      string
	available bool
	calls     atomic.Int32
	fn        func(ctx context.Context, addr string) (*Result, error)
}

func (f *fakeProvider) Name() string    { return f.name }
func (f *fakeProvider) Available() bool { return f.available }

func (f *fakeProvider) Geocode(ctx context.Context, addr string) (*Result, error) {
	f.calls.Add(1)
	return f.fn(ctx, addr)
}

func found(lat, lon float64) func(context.Context, string) (*Result, error) {
	return func(context.Context, string) (*Result, error) {
		return &Result{Latitude: lat, Longitude: lon}, nil
	}
}

func notFound(context.Context, string) (*Result, error) { return nil, nil }

func failing(err error) func(context.Context, string) (*Result, error) {
	return func(context.Context, string) (*Result, error) { return nil, err }
}

func newFake(name string, fn func(context.Context, string) (*Result, error)) *fakeProvider {
	return &fakeProvider{name: name, available: true, fn: fn}
}

// recordingObserver captures Observer calls.
type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	lookups  []string
}

func (r *recordingObserver) ProviderCall(provider, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, provider+":"+outcome)
}

func (r *recordingObserver) CacheLookup(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, result)
}

// jsonServer serves body with the given status and records the last request.
func jsonServer(t *testing.T, status int, body string, last **http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if last != nil {
			*last = r.Clone(context.Background())
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
