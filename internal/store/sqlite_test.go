package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_PutGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "geocode_cache.json", []byte(`{"a":[1,2]}`)))

	data, err := st.Get(ctx, "geocode_cache.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, string(data))
}

func TestSQLite_Upsert(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.Put(ctx, "events.json", []byte("[1]")))
	require.NoError(t, st.Put(ctx, "events.json", []byte("[1,2]")))

	data, err := st.Get(ctx, "events.json")
	require.NoError(t, err)
	assert.Equal(t, "[1,2]", string(data))
}

func TestSQLite_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}
