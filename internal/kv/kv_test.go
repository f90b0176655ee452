package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huelink/internal/db"
)

func buckets(t *testing.T) map[string]Bucket {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	return map[string]Bucket{
		"memory": NewMemory(),
		"sqlite": NewSQLiteBucket(database.DB, "credentials"),
	}
}

func TestBucket(t *testing.T) {
	for name, b := range buckets(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := b.Get(ctx, "hue:001788:key")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, b.Set(ctx, "hue:001788:key", "first"))
			require.NoError(t, b.Set(ctx, "hue:001788:key", "second"))
			require.NoError(t, b.Set(ctx, "hue:aabbcc:key", "other"))

			v, ok, err := b.Get(ctx, "hue:001788:key")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "second", v)

			keys, err := b.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"hue:001788:key", "hue:aabbcc:key"}, keys)

			deleted, err := b.Delete(ctx, "hue:aabbcc:key")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = b.Delete(ctx, "hue:aabbcc:key")
			require.NoError(t, err)
			assert.False(t, deleted)
		})
	}
}

func TestSQLiteBucketsAreIsolated(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer database.Close()

	ctx := context.Background()
	a := NewSQLiteBucket(database.DB, "a")
	b := NewSQLiteBucket(database.DB, "b")

	require.NoError(t, a.Set(ctx, "key", "1"))
	_, ok, err := b.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "a", a.Name())
}
