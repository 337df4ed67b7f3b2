package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/extract"
	"github.com/meowafisha/eventmap/internal/monitoring"
	"github.com/meowafisha/eventmap/internal/pipeline"
	"github.com/meowafisha/eventmap/internal/store"
	"github.com/meowafisha/eventmap/pkg/vk"
)

// pipelineEnv holds the store, metrics and pipeline needed by the fetch and
// serve commands.
type pipelineEnv struct {
	Store    store.BlobStore
	Metrics  *monitoring.Metrics
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore validates shared settings and opens the configured blob store.
func initStore(ctx context.Context) (store.BlobStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

// initPipeline sets up the store, the post source, the geocoding providers
// and builds the Pipeline. Metrics register with reg when it is non-nil.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, reg prometheus.Registerer) (*pipelineEnv, error) {
	if err := cfg.ValidateSource(); err != nil {
		zap.L().Error("source credentials missing, cannot fetch posts", zap.Error(err))
		return nil, err
	}

	providers, cascadeOpts, err := buildProviders(cfg.Geocode)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	src := vk.NewClient(cfg.Source.Token, cfg.Source.Domain,
		vk.WithBaseURL(cfg.Source.BaseURL),
		vk.WithAPIVersion(cfg.Source.APIVersion),
		vk.WithTimeout(cfg.Source.Timeout()),
		vk.WithPageDelay(cfg.Source.PageDelay()),
		vk.WithAttempts(cfg.Source.Attempts),
	)

	x := extract.New(extract.Options{
		DefaultYear: cfg.Extract.DefaultYear,
		DefaultCity: cfg.Extract.DefaultCity,
		CityWords:   cfg.Extract.CityWords,
	})

	metrics := monitoring.NewMetrics(reg)

	p := pipeline.New(src, st, x, providers, pipeline.Settings{
		MaxPosts:  cfg.Source.MaxPosts,
		PageSize:  cfg.Source.PageSize,
		EventsKey: cfg.Store.EventsKey,
		CacheKey:  cfg.Store.CacheKey,
		LogKey:    cfg.Store.LogKey,
		SaveLog:   cfg.Geocode.SaveLog,
	},
		pipeline.WithCascadeOptions(cascadeOpts...),
		pipeline.WithMetrics(metrics),
		pipeline.WithAlerter(monitoring.NewAlerter(cfg.Monitoring)),
	)

	return &pipelineEnv{
		Store:    st,
		Metrics:  metrics,
		Pipeline: p,
	}, nil
}
