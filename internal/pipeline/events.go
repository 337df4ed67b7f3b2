package pipeline

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/model"
	"github.com/meowafisha/eventmap/internal/store"
)

// LoadEvents reads the persisted event list. A missing or corrupt document
// is treated as empty; only store failures are returned.
func LoadEvents(ctx context.Context, st store.BlobStore, key string) ([]model.Event, error) {
	var events []model.Event
	found, err := store.GetJSON(ctx, st, key, &events)

	var corrupt *store.CorruptError
	if errors.As(err, &corrupt) {
		zap.L().Warn("pipeline: existing events unreadable, starting empty", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return events, nil
}

// SaveEvents replaces the persisted event list.
func SaveEvents(ctx context.Context, st store.BlobStore, key string, events []model.Event) error {
	if events == nil {
		events = []model.Event{}
	}
	return store.PutJSON(ctx, st, key, events)
}

// Merge appends fresh events to existing ones and orders the result by date.
// Events sharing a date keep their relative order, existing ones first.
func Merge(existing, fresh []model.Event) []model.Event {
	all := make([]model.Event, 0, len(existing)+len(fresh))
	all = append(all, existing...)
	all = append(all, fresh...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date < all[j].Date })
	return all
}

// FilterByDate returns the events on the given YYYY-MM-DD date. An empty
// date returns all events.
func FilterByDate(events []model.Event, date string) []model.Event {
	if date == "" {
		return events
	}
	out := make([]model.Event, 0)
	for _, e := range events {
		if e.Date == date {
			out = append(out, e)
		}
	}
	return out
}
