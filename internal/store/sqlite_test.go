package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SetGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sess1|email:jane@acme.com", []byte(`{"phone":"555"}`), time.Minute))

	val, found, err := s.Get(ctx, "sess1|email:jane@acme.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"phone":"555"}`, string(val))

	_, found, err = s.Get(ctx, "sess1|email:nobody@acme.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_SetOverwrites(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("v2"), time.Minute))

	val, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", string(val))
}

func TestSQLiteStore_ExpiredEntriesInvisible(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "gone", []byte("x"), -time.Second))

	_, found, err := s.Get(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := s.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_ListByPrefix(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sessA|id:1", []byte("a"), time.Minute))
	require.NoError(t, s.Set(ctx, "sessA|name:jane doe", []byte("b"), time.Minute))
	require.NoError(t, s.Set(ctx, "sessB|id:1", []byte("c"), time.Minute))

	got, err := s.List(ctx, "sessA|")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []byte("a"), got["sessA|id:1"])
	assert.Equal(t, []byte("b"), got["sessA|name:jane doe"])
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
