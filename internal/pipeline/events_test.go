package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meowafisha/eventmap/internal/model"
	"github.com/meowafisha/eventmap/internal/store"
)

func TestMerge_StableByDate(t *testing.T) {
	existing := []model.Event{
		{Title: "b", Date: "2025-06-15"},
		{Title: "a", Date: "2025-06-01"},
	}
	fresh := []model.Event{
		{Title: "c", Date: "2025-06-15"},
		{Title: "d", Date: "2025-05-30"},
	}

	got := Merge(existing, fresh)
	var titles []string
	for _, e := range got {
		titles = append(titles, e.Title)
	}
	assert.Equal(t, []string{"d", "a", "b", "c"}, titles)
	assert.Equal(t, "b", existing[0].Title, "inputs are not reordered")
}

func TestFilterByDate(t *testing.T) {
	events := []model.Event{
		{Title: "a", Date: "2025-06-15"},
		{Title: "b", Date: "2025-06-16"},
	}
	assert.Len(t, FilterByDate(events, ""), 2)
	assert.Equal(t, []model.Event{{Title: "b", Date: "2025-06-16"}}, FilterByDate(events, "2025-06-16"))
	assert.Empty(t, FilterByDate(events, "2024-01-01"))
	assert.NotNil(t, FilterByDate(events, "2024-01-01"))
}

func TestSaveLoadEvents(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	events := []model.Event{{Title: "Концерт", Date: "2025-06-15", Location: "ул. Ленина 5, Калининград", Lat: 54.7, Lon: 20.5, Text: "15.06 | Концерт"}}
	require.NoError(t, SaveEvents(ctx, st, "events.json", events))

	got, err := LoadEvents(ctx, st, "events.json")
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestSaveEvents_NilWritesEmptyArray(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, SaveEvents(ctx, st, "events.json", nil))
	raw, err := st.Get(ctx, "events.json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(raw))
}

func TestLoadEvents_Missing(t *testing.T) {
	st, err := store.NewFile(t.TempDir())
	require.NoError(t, err)

	got, err := LoadEvents(context.Background(), st, "events.json")
	require.NoError(t, err)
	assert.Empty(t, got)
}
