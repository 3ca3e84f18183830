package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gknightt/tts-gateway/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client)
}

func TestSaveAndGetMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mapping := &domain.ServiceMapping{
		System:  "TTS",
		Service: "Ticket",
		BaseURL: "http://localhost:8004",
	}

	require.NoError(t, store.SaveMapping(ctx, mapping))

	got, err := store.GetMapping(ctx, "TTS", "Ticket")
	require.NoError(t, err)
	assert.Equal(t, "TTS", got.System)
	assert.Equal(t, "Ticket", got.Service)
	assert.Equal(t, "http://localhost:8004", got.BaseURL)
}

func TestGetMappingNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetMapping(context.Background(), "TTS", "Ticket")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappingNotFound)
}

func TestSaveMappingOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004",
	}))
	require.NoError(t, store.SaveMapping(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:9000",
	}))

	got, err := store.GetMapping(ctx, "TTS", "Ticket")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", got.BaseURL)

	all, err := store.GetAllMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "overwriting a pair must not duplicate it")
}

func TestGetAllMappings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	all, err := store.GetAllMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, store.SaveMappingsMany(ctx, []*domain.ServiceMapping{
		{System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004"},
		{System: "TTS", Service: "Workflow", BaseURL: "http://localhost:8005"},
		{System: "Auth", Service: "User", BaseURL: "http://localhost:8001"},
	}))

	all, err = store.GetAllMappings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDeleteMapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveMapping(ctx, &domain.ServiceMapping{
		System: "TTS", Service: "Ticket", BaseURL: "http://localhost:8004",
	}))

	require.NoError(t, store.DeleteMapping(ctx, "TTS", "Ticket"))

	_, err := store.GetMapping(ctx, "TTS", "Ticket")
	assert.ErrorIs(t, err, ErrMappingNotFound)

	all, err := store.GetAllMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestExtractMappingKey(t *testing.T) {
	key, err := ExtractMappingKey(KeyPrefixMapping + "TTS/Ticket")
	require.NoError(t, err)
	assert.Equal(t, "TTS/Ticket", key)

	_, err = ExtractMappingKey("bogus")
	assert.Error(t, err)
}
