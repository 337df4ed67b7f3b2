package geocode

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meowafisha/eventmap/internal/model"
)

// Outcome labels reported to an Observer.
const (
	OutcomeSuccess       = "success"
	OutcomeNoResult      = "no_result"
	OutcomeNotConfigured = "not_configured"
	OutcomeHTTPError     = "http_error"
	OutcomeProviderError = "provider_error"
	OutcomeTimeout       = "timeout"
	OutcomeUnexpected    = "unexpected"
)

// Cache lookup labels reported to an Observer.
const (
	CacheHit           = "hit"
	CacheHitUnresolved = "hit_unresolved"
	CacheMiss          = "miss"
)

const progressEvery = 10

// Observer receives per-call measurements, typically to feed metrics.
type Observer interface {
	ProviderCall(provider, outcome string, elapsed time.Duration)
	CacheLookup(result string)
}

type nopObserver struct{}

func (nopObserver) ProviderCall(string, string, time.Duration) {}
func (nopObserver) CacheLookup(string)                         {}

// CascadeClient resolves addresses by trying providers in priority order,
// stopping at the first match.
type CascadeClient struct {
	providers   []Provider
	throttles   map[string]*Throttle
	minDelays   map[string]time.Duration
	cache       *Cache
	log         *OutcomeLog
	timeout     time.Duration
	concurrency int
	clock       clockwork.Clock
	observer    Observer
}

// CascadeOption configures the CascadeClient.
type CascadeOption func(*CascadeClient)

// WithTimeout bounds each provider call. Throttle waits are not counted.
func WithTimeout(d time.Duration) CascadeOption {
	return func(c *CascadeClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithConcurrency sets how many addresses ResolveAll works on at once.
func WithConcurrency(n int) CascadeOption {
	return func(c *CascadeClient) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMinDelay spaces consecutive calls to the named provider at least d
// apart, across all addresses and workers.
func WithMinDelay(provider string, d time.Duration) CascadeOption {
	return func(c *CascadeClient) { c.minDelays[provider] = d }
}

// WithClock sets the clock driving throttles and call timing.
func WithClock(clock clockwork.Clock) CascadeOption {
	return func(c *CascadeClient) { c.clock = clock }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) CascadeOption {
	return func(c *CascadeClient) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewCascadeClient creates a CascadeClient over providers, tried in the
// given order. A nil log discards outcomes after logging them.
func NewCascadeClient(cache *Cache, log *OutcomeLog, providers []Provider, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:   providers,
		throttles:   make(map[string]*Throttle, len(providers)),
		minDelays:   make(map[string]time.Duration),
		cache:       cache,
		log:         log,
		timeout:     10 * time.Second,
		concurrency: 4,
		clock:       clockwork.NewRealClock(),
		observer:    nopObserver{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cache = NewCache()
	}
	if c.log == nil {
		c.log = NewOutcomeLog()
	}
	for _, p := range providers {
		c.throttles[p.Name()] = NewThrottle(c.minDelays[p.Name()], c.clock)
	}
	return c
}

// Cache returns the cache shared by all lookups.
func (c *CascadeClient) Cache() *Cache { return c.cache }

// Log returns the outcome log shared by all lookups.
func (c *CascadeClient) Log() *OutcomeLog { return c.log }

// Resolve returns coordinates for address, or unresolved coordinates when
// no provider could place it. Cached coordinates are returned without any
// provider call; a cached sentinel is retried.
func (c *CascadeClient) Resolve(ctx context.Context, address string) model.Coordinates {
	addr := NormalizeAddress(address)
	if addr == "" {
		zap.L().Warn("geocode: empty address")
		return model.Coordinates{}
	}

	if cached, ok := c.cache.Lookup(addr); ok {
		if cached.Valid {
			c.observer.CacheLookup(CacheHit)
			zap.L().Info("geocode cache hit", zap.String("address", addr), zap.Stringer("coords", cached))
			return cached
		}
		c.observer.CacheLookup(CacheHitUnresolved)
		zap.L().Info("geocode cache hit, previously unresolved", zap.String("address", addr))
	} else {
		c.observer.CacheLookup(CacheMiss)
	}

	for _, p := range c.providers {
		if !p.Available() {
			c.observer.ProviderCall(p.Name(), OutcomeNotConfigured, 0)
			c.log.Record(addr, p.Name(), Outcome{Detail: "key not configured"})
			continue
		}

		res, outcome, detail := c.try(ctx, p, addr)
		o := Outcome{Success: outcome == OutcomeSuccess, Detail: detail}
		if res != nil {
			o.Label = res.Label
		}
		c.log.Record(addr, p.Name(), o)
		if res != nil {
			coords := model.Point(res.Latitude, res.Longitude)
			c.cache.Store(addr, coords)
			return coords
		}
	}

	c.cache.Store(addr, model.Coordinates{})
	zap.L().Warn("geocode: all providers failed", zap.String("address", addr))
	return model.Coordinates{}
}

// try makes one throttled, time-bounded call and classifies its outcome.
func (c *CascadeClient) try(ctx context.Context, p Provider, addr string) (*Result, string, string) {
	if th := c.throttles[p.Name()]; th != nil {
		if err := th.Wait(ctx); err != nil {
			outcome, detail := classify(err)
			c.observer.ProviderCall(p.Name(), outcome, 0)
			return nil, outcome, detail
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := c.clock.Now()
	res, err := safeGeocode(callCtx, p, addr)
	elapsed := c.clock.Since(start)

	switch {
	case err != nil:
		outcome, detail := classify(err)
		c.observer.ProviderCall(p.Name(), outcome, elapsed)
		return nil, outcome, detail
	case res == nil:
		c.observer.ProviderCall(p.Name(), OutcomeNoResult, elapsed)
		return nil, OutcomeNoResult, "no result"
	default:
		c.observer.ProviderCall(p.Name(), OutcomeSuccess, elapsed)
		return res, OutcomeSuccess, fmt.Sprintf("%.6f,%.6f", res.Latitude, res.Longitude)
	}
}

// safeGeocode turns a provider panic into an error.
func safeGeocode(ctx context.Context, p Provider, addr string) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Geocode(ctx, addr)
}

func classify(err error) (outcome, detail string) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return OutcomeTimeout, "timeout"
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return OutcomeHTTPError, "HTTP error: " + httpErr.Error()
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return OutcomeProviderError, "Geocoding error: " + provErr.Error()
	}

	return OutcomeUnexpected, "Unexpected error: " + err.Error()
}

// ResolveAll resolves each distinct normalized address once with a bounded
// worker pool and returns coordinates keyed by the addresses as given.
// Per-provider throttles are shared by all workers.
func (c *CascadeClient) ResolveAll(ctx context.Context, addresses []string) map[string]model.Coordinates {
	spellings := make(map[string][]string, len(addresses))
	distinct := make([]string, 0, len(addresses))
	for _, a := range addresses {
		key := NormalizeAddress(a)
		if _, ok := spellings[key]; !ok {
			distinct = append(distinct, key)
		}
		if !slices.Contains(spellings[key], a) {
			spellings[key] = append(spellings[key], a)
		}
	}

	var (
		mu   sync.Mutex
		done atomic.Int64
		out  = make(map[string]model.Coordinates, len(addresses))
	)
	total := len(distinct)

	g := new(errgroup.Group)
	g.SetLimit(c.concurrency)
	for _, key := range distinct {
		g.Go(func() error {
			coords := c.Resolve(ctx, key)

			mu.Lock()
			for _, a := range spellings[key] {
				out[a] = coords
			}
			mu.Unlock()

			if n := done.Add(1); n%progressEvery == 0 || int(n) == total {
				zap.L().Info("geocoding progress", zap.Int64("done", n), zap.Int("total", total))
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Unresolved returns the addresses in coords that have no coordinates,
// sorted for stable reporting.
func Unresolved(coords map[string]model.Coordinates) []string {
	var out []string
	for addr, c := range coords {
		if !c.Valid {
			out = append(out, addr)
		}
	}
	slices.Sort(out)
	return out
}
