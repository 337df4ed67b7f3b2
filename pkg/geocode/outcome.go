package geocode

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/store"
)

// Outcome is the result of asking one provider about one address.
type Outcome struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	// Label is the provider's formatted address for a match.
	Label string `json:"label,omitempty"`
}

// OutcomeLog collects per-address, per-provider outcomes for one run.
// It is safe for concurrent use.
type OutcomeLog struct {
	mu      sync.Mutex
	entries map[string]map[string]Outcome
}

// NewOutcomeLog creates an empty log.
func NewOutcomeLog() *OutcomeLog {
	return &OutcomeLog{entries: make(map[string]map[string]Outcome)}
}

// Record stores an outcome and logs it, at INFO for success and WARN otherwise.
func (l *OutcomeLog) Record(addr, provider string, o Outcome) {
	fields := []zap.Field{
		zap.String("provider", provider),
		zap.String("address", addr),
		zap.String("detail", o.Detail),
	}
	if o.Label != "" {
		fields = append(fields, zap.String("label", o.Label))
	}
	if o.Success {
		zap.L().Info("geocode ok", fields...)
	} else {
		zap.L().Warn("geocode n/a", fields...)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	byProvider, ok := l.entries[addr]
	if !ok {
		byProvider = make(map[string]Outcome)
		l.entries[addr] = byProvider
	}
	byProvider[provider] = o
}

// Get returns the outcomes recorded for addr, keyed by provider name.
func (l *OutcomeLog) Get(addr string) map[string]Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]Outcome, len(l.entries[addr]))
	for k, v := range l.entries[addr] {
		out[k] = v
	}
	return out
}

// Len returns the number of addresses with at least one outcome.
func (l *OutcomeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Save writes the whole log under key, replacing any previous run's log.
func (l *OutcomeLog) Save(ctx context.Context, st store.BlobStore, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := store.PutJSON(ctx, st, key, l.entries); err != nil {
		return err
	}
	zap.L().Info("geocode log saved", zap.String("key", key), zap.Int("addresses", len(l.entries)))
	return nil
}
