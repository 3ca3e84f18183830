package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gknightt/tts-gateway/internal/domain"
	"github.com/Gknightt/tts-gateway/internal/index"
	"github.com/Gknightt/tts-gateway/internal/logger"
	redisstore "github.com/Gknightt/tts-gateway/internal/store/redis"
)

func newTestRegistry(t *testing.T) (*Registry, *miniredis.Miniredis, *index.MemoryIndex) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	idx := index.NewMemoryIndex()
	reg := New(redisstore.NewStore(client), idx, logger.NewNop())
	return reg, mr, idx
}

func TestUpsertCreatesThenOverwrites(t *testing.T) {
	reg, _, idx := newTestRegistry(t)
	ctx := context.Background()

	created, err := reg.Upsert(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004",
	}, domain.SourceAPI)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = reg.Upsert(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:9000",
	}, domain.SourceSeed)
	require.NoError(t, err)
	assert.False(t, created, "upsert of an existing pair must report updated, not created")

	m, err := reg.Lookup(ctx, "TTS", "Ticket")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", m.BaseURL)
	assert.True(t, m.HasSource(domain.SourceAPI))
	assert.True(t, m.HasSource(domain.SourceSeed))
	assert.False(t, m.CreatedAt.IsZero())
	assert.False(t, m.UpdatedAt.Before(m.CreatedAt))

	// Index mirrors the store.
	mi, ok := idx.Get("TTS", "Ticket")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:9000", mi.BaseURL)
}

func TestUpsertNormalizesTrailingSlash(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Upsert(context.Background(), &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004/",
	}, domain.SourceAPI)
	require.NoError(t, err)

	m, err := reg.Lookup(context.Background(), "TTS", "Ticket")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8004", m.BaseURL)
}

func TestUpsertRejectsInvalidMapping(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Upsert(context.Background(), &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "not-a-url",
	}, domain.SourceAPI)
	assert.Error(t, err)

	_, err = reg.Upsert(context.Background(), &domain.ServiceMapping{
		System: "", Service: "Ticket", BaseURL: "http://localhost:8004",
	}, domain.SourceAPI)
	assert.Error(t, err)
}

func TestLookupNotFound(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Lookup(context.Background(), "TTS", "Ticket")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupFallsBackToIndexWhenRedisDown(t *testing.T) {
	reg, mr, idx := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Upsert(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004",
	}, domain.SourceAPI)
	require.NoError(t, err)

	mr.Close()

	m, err := reg.Lookup(ctx, "TTS", "Ticket")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8004", m.BaseURL)

	// Pairs absent from the index stay unresolvable in degraded mode.
	_, err = reg.Lookup(ctx, "TTS", "Workflow")
	assert.ErrorIs(t, err, ErrNotFound)

	// Listing degrades to the index as well.
	all, err := reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_ = idx
}

func TestDelete(t *testing.T) {
	reg, _, idx := newTestRegistry(t)
	ctx := context.Background()

	assert.ErrorIs(t, reg.Delete(ctx, "TTS", "Ticket"), ErrNotFound)

	_, err := reg.Upsert(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004",
	}, domain.SourceAPI)
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, "TTS", "Ticket"))

	_, err = reg.Lookup(ctx, "TTS", "Ticket")
	assert.ErrorIs(t, err, ErrNotFound)
	_, ok := idx.Get("TTS", "Ticket")
	assert.False(t, ok)
}

func TestUpsertMany(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	err := reg.UpsertMany(ctx, []*domain.ServiceMapping{
		{System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004"},
		{System: "TTS", Service: "Workflow", BaseURL: "http://localhost:8005/"},
	}, domain.SourceSeed)
	require.NoError(t, err)

	all, err := reg.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	m, err := reg.Lookup(ctx, "TTS", "Workflow")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8005", m.BaseURL)
	assert.True(t, m.HasSource(domain.SourceSeed))
}

func TestUpsertManyRejectsInvalidBatch(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	err := reg.UpsertMany(context.Background(), []*domain.ServiceMapping{
		{System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004"},
		{System: "TTS", Service: "Bad", BaseURL: "::: not a url"},
	}, domain.SourceSeed)
	assert.Error(t, err)
}
