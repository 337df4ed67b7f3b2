package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/export"
	"github.com/meowafisha/eventmap/internal/pipeline"
	"github.com/meowafisha/eventmap/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve persisted events to the map and refresh them periodically",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		refresh := time.Duration(cfg.Server.RefreshIntervalMins) * time.Minute

		var st store.BlobStore
		if refresh > 0 {
			env, err := initPipeline(ctx, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer env.Close()
			st = env.Store

			go refreshLoop(ctx, env.Pipeline, refresh)
		} else {
			s, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			st = s
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st, cfg.Store.EventsKey, cfg.Server.AllowedOrigins, prometheus.DefaultGatherer),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Duration("refresh", refresh))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the HTTP API over the event store.
func newRouter(st store.BlobStore, eventsKey string, origins []string, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	serveEvents := func(format, contentType string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			events, err := pipeline.LoadEvents(r.Context(), st, eventsKey)
			if err != nil {
				zap.L().Error("load events failed", zap.Error(err))
				http.Error(w, `{"error":"events unavailable"}`, http.StatusInternalServerError)
				return
			}
			if date := r.URL.Query().Get("date"); date != "" {
				events = pipeline.FilterByDate(events, date)
			}
			w.Header().Set("Content-Type", contentType)
			if err := export.Write(w, format, events); err != nil {
				zap.L().Error("write events failed", zap.Error(err))
			}
		}
	}
	r.Get("/events.json", serveEvents(export.FormatJSON, "application/json"))
	r.Get("/events.geojson", serveEvents(export.FormatGeoJSON, "application/geo+json"))

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}

// refreshLoop runs the pipeline every interval until ctx is done.
func refreshLoop(ctx context.Context, p *pipeline.Pipeline, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := p.Run(ctx)
			if err != nil {
				zap.L().Error("scheduled refresh failed", zap.Error(err))
				continue
			}
			zap.L().Info("scheduled refresh complete",
				zap.String("run_id", result.RunID),
				zap.Int("new_events", result.NewEvents),
				zap.Int("total_events", result.TotalEvents),
			)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
