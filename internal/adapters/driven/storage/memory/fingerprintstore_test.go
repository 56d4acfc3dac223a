package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

func TestNewFingerprintStore(t *testing.T) {
	store := NewFingerprintStore()
	require.NotNil(t, store)
	assert.Zero(t, store.Len())
}

func TestFingerprintStore_SaveAndGet(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	state := domain.FileState{
		Fingerprint:  "abc",
		ChunkDigests: map[string]string{"id-1": "d1"},
		Target:       "records/nomic-embed-text",
	}
	require.NoError(t, store.Save(ctx, "/data/p1.json", state))

	got, err := store.Get(ctx, "/data/p1.json")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Fingerprint)
	assert.Equal(t, "records/nomic-embed-text", got.Target)
	assert.Equal(t, map[string]string{"id-1": "d1"}, got.ChunkDigests)
}

func TestFingerprintStore_Get_NotFound(t *testing.T) {
	_, err := NewFingerprintStore().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFingerprintStore_Update(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u", domain.FileState{Fingerprint: "v1"}))
	require.NoError(t, store.Save(ctx, "u", domain.FileState{Fingerprint: "v2"}))

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Fingerprint)
	assert.Equal(t, 1, store.Len())
}

func TestFingerprintStore_IsolatesCopies(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	digests := map[string]string{"a": "1"}
	require.NoError(t, store.Save(ctx, "u", domain.FileState{ChunkDigests: digests}))
	digests["a"] = "changed"

	got, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ChunkDigests["a"])

	got.ChunkDigests["a"] = "mutated"
	again, err := store.Get(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, "1", again.ChunkDigests["a"])
}

func TestFingerprintStore_Delete(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u", domain.FileState{Fingerprint: "x"}))
	require.NoError(t, store.Delete(ctx, "u"))
	require.NoError(t, store.Delete(ctx, "never-saved"))

	_, err := store.Get(ctx, "u")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFingerprintStore_Concurrent(t *testing.T) {
	store := NewFingerprintStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := string(rune('a' + i))
			_ = store.Save(ctx, uri, domain.FileState{Fingerprint: uri})
			_, _ = store.Get(ctx, uri)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
}
