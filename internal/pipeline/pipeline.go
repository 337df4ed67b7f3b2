// Package pipeline drives one fetch → extract → dedupe → geocode → merge →
// persist run over the post source.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/extract"
	"github.com/meowafisha/eventmap/internal/model"
	"github.com/meowafisha/eventmap/internal/monitoring"
	"github.com/meowafisha/eventmap/internal/store"
	"github.com/meowafisha/eventmap/pkg/geocode"
	"github.com/meowafisha/eventmap/pkg/vk"
)

// maxMissingReport bounds the unresolved-address list in the run warning.
const maxMissingReport = 800

// ErrRunInProgress is returned when Run is called while another run of the
// same Pipeline has not finished.
var ErrRunInProgress = errors.New("pipeline: run already in progress")

// PostSource pages through raw posts, newest first.
type PostSource interface {
	WallGet(ctx context.Context, offset, count int) ([]vk.Post, error)
}

// Settings are the run parameters.
type Settings struct {
	MaxPosts  int
	PageSize  int
	EventsKey string
	CacheKey  string
	LogKey    string
	SaveLog   bool
}

// Pipeline runs the event ingestion flow.
type Pipeline struct {
	source      PostSource
	store       store.BlobStore
	extractor   *extract.Extractor
	providers   []geocode.Provider
	cascadeOpts []geocode.CascadeOption
	metrics     *monitoring.Metrics
	alerter     *monitoring.Alerter
	settings    Settings
	running     atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCascadeOptions passes options to the geocode cascade built per run.
func WithCascadeOptions(opts ...geocode.CascadeOption) Option {
	return func(p *Pipeline) { p.cascadeOpts = append(p.cascadeOpts, opts...) }
}

// WithMetrics records run and geocoding metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithAlerter evaluates each finished run for alerts.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(p *Pipeline) { p.alerter = a }
}

// New creates a Pipeline.
func New(src PostSource, st store.BlobStore, x *extract.Extractor, providers []geocode.Provider, settings Settings, opts ...Option) *Pipeline {
	if settings.PageSize <= 0 || settings.PageSize > vk.MaxPageSize {
		settings.PageSize = vk.MaxPageSize
	}
	p := &Pipeline{
		source:    src,
		store:     st,
		extractor: x,
		providers: providers,
		settings:  settings,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one ingestion run. Fetch failures after the retry budget end
// paging but keep what was already extracted; only authorization failures
// and store errors fail the run.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)

	start := time.Now()
	res := &model.RunResult{RunID: uuid.NewString()}
	log := zap.L().With(zap.String("run_id", res.RunID))
	log.Info("pipeline: starting run", zap.Int("max_posts", p.settings.MaxPosts))

	err := p.run(ctx, log, res)
	res.Duration = time.Since(start)
	if err != nil {
		log.Error("pipeline: run failed", zap.Error(err))
		return res, err
	}

	if p.metrics != nil {
		p.metrics.RecordRun(res)
	}
	if p.alerter != nil {
		p.alerter.Notify(ctx, res)
	}
	log.Info("pipeline: run complete",
		zap.Int("posts", res.PostsFetched),
		zap.Int("new_events", res.NewEvents),
		zap.Int("total_events", res.TotalEvents),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, res *model.RunResult) error {
	existing, err := LoadEvents(ctx, p.store, p.settings.EventsKey)
	if err != nil {
		return eris.Wrap(err, "pipeline: load events")
	}
	res.TotalEvents = len(existing)
	log.Info("pipeline: existing events loaded", zap.Int("count", len(existing)))

	known := make(map[model.EventKey]bool, len(existing))
	for _, e := range existing {
		known[e.Key()] = true
	}

	cache, err := geocode.LoadCache(ctx, p.store, p.settings.CacheKey)
	if err != nil {
		return eris.Wrap(err, "pipeline: load geocode cache")
	}

	candidates, err := trackPhase(log, "fetch", func() ([]model.EventCandidate, error) {
		return p.collect(ctx, log, res, known)
	})
	if err != nil {
		return err
	}
	log.Info("pipeline: events extracted",
		zap.Int("extracted", res.Extracted),
		zap.Int("new", len(candidates)),
		zap.Int("duplicates", res.Duplicates),
	)

	if len(candidates) == 0 {
		log.Warn("pipeline: no new events found, keeping existing events")
		return nil
	}

	outcomes := geocode.NewOutcomeLog()
	cascadeOpts := p.cascadeOpts
	if p.metrics != nil {
		cascadeOpts = append(cascadeOpts[:len(cascadeOpts):len(cascadeOpts)], geocode.WithObserver(p.metrics))
	}
	resolver := geocode.NewCascadeClient(cache, outcomes, p.providers, cascadeOpts...)

	addresses := make([]string, 0, len(candidates))
	for _, c := range candidates {
		addresses = append(addresses, c.Location)
	}
	coords, _ := trackPhase(log, "geocode", func() (map[string]model.Coordinates, error) {
		return resolver.ResolveAll(ctx, addresses), nil
	})
	res.Addresses = len(coords)
	res.Unresolved = geocode.Unresolved(coords)

	fresh := make([]model.Event, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		ev, ok := model.NewEvent(c, coords[c.Location])
		if !ok {
			dropped++
			continue
		}
		fresh = append(fresh, ev)
	}
	if dropped > 0 {
		log.Warn("pipeline: events without coordinates dropped",
			zap.Int("events", dropped),
			zap.String("addresses", truncate(strings.Join(res.Unresolved, ", "), maxMissingReport)),
		)
	}
	res.NewEvents = len(fresh)

	if len(fresh) > 0 {
		merged := Merge(existing, fresh)
		if err := SaveEvents(ctx, p.store, p.settings.EventsKey, merged); err != nil {
			return eris.Wrap(err, "pipeline: save events")
		}
		res.TotalEvents = len(merged)
		res.Persisted = true
		log.Info("pipeline: events saved",
			zap.Int("total", len(merged)),
			zap.Int("existing", len(existing)),
			zap.Int("new", len(fresh)),
		)
	} else {
		log.Warn("pipeline: no resolvable new events, keeping existing events")
	}

	if _, err := cache.Save(ctx, p.store, p.settings.CacheKey); err != nil {
		return eris.Wrap(err, "pipeline: save geocode cache")
	}
	if p.settings.SaveLog {
		if err := outcomes.Save(ctx, p.store, p.settings.LogKey); err != nil {
			log.Error("pipeline: save geocode log", zap.Error(err))
		}
	}
	return nil
}

// collect pages through the post source and returns the candidates not
// already known. It stops at MaxPosts, at an empty page, or when a page
// fails after its retries.
func (p *Pipeline) collect(ctx context.Context, log *zap.Logger, res *model.RunResult, known map[model.EventKey]bool) ([]model.EventCandidate, error) {
	var out []model.EventCandidate
	for offset := 0; offset < p.settings.MaxPosts; {
		count := min(p.settings.PageSize, p.settings.MaxPosts-offset)
		posts, err := p.source.WallGet(ctx, offset, count)
		if err != nil {
			if errors.Is(err, vk.ErrUnauthorized) {
				return nil, eris.Wrap(err, "pipeline: fetch posts")
			}
			log.Error("pipeline: fetch aborted", zap.Int("offset", offset), zap.Error(err))
			res.FetchError = err.Error()
			break
		}
		if len(posts) == 0 {
			log.Info("pipeline: no more posts", zap.Int("offset", offset))
			break
		}
		res.PostsFetched += len(posts)

		for _, post := range posts {
			c, ok := p.extractor.Extract(post.Text)
			if !ok {
				log.Debug("pipeline: post has no event",
					zap.Int64("post_id", post.ID),
					zap.Time("posted", post.Time()),
				)
				continue
			}
			res.Extracted++
			key := c.Key()
			if known[key] {
				res.Duplicates++
				log.Debug("pipeline: event already known", zap.String("title", c.Title), zap.String("date", c.Date))
				continue
			}
			known[key] = true
			out = append(out, c)
		}
		offset += count
	}
	return out, nil
}

// trackPhase runs fn and logs its duration.
func trackPhase[T any](log *zap.Logger, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		log.Error("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", duration), zap.Error(err))
		return v, err
	}
	log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", duration))
	return v, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
