package toml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()

	config := viper.New()
	config.Set(DurablePathKey, path)
	store, err := NewStore(config)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "session.toml"))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "access_token", "eyJ.token"))
	require.NoError(t, store.Put(ctx, "remember_me", "true"))

	got, err := store.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.Equal(t, "eyJ.token", got)

	require.NoError(t, store.Delete(ctx, "access_token"))
	_, err = store.Get(ctx, "access_token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	remember, err := store.Get(ctx, "remember_me")
	require.NoError(t, err)
	assert.Equal(t, "true", remember)
}

func TestStoreSurvivesNewInstanceOnSamePath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, newTestStore(t, path).Put(context.Background(), "access_token", "persisted"))

	got, err := newTestStore(t, path).Get(context.Background(), "access_token")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestStoreCreatesDefaultPathWithOwnerOnlyPermissions(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	store, err := NewStore(viper.New())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "remember_me", "true"))

	sessionPath := filepath.Join(homeDir, ".stayctl", "session.toml")
	assert.Equal(t, sessionPath, store.Path())
	info, err := os.Stat(sessionPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "missing", "session.toml"))

	_, err := store.Get(context.Background(), "access_token")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
	require.NoError(t, store.Delete(context.Background(), "access_token"))
}

func TestStoreMalformedTOMLIsUnavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte("values = ["), 0o600))

	_, err := newTestStore(t, path).Get(context.Background(), "access_token")
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorContains(t, err, "decode session file")
}

func TestStoreFutureSchemaVersionIsUnavailable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"version = 999",
		"",
		"[values]",
		"access_token = \"x\"",
		"",
	}, "\n")), 0o600))

	_, err := newTestStore(t, path).Get(context.Background(), "access_token")
	require.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorContains(t, err, "unsupported session schema version")
}

func TestStorePutCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, filepath.Join(t.TempDir(), "session.toml"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Put(ctx, "access_token", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStoreConcurrentWritesAcrossInstancesPreserveAllKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	storeA := newTestStore(t, path)
	storeB := newTestStore(t, path)

	const perStoreWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perStoreWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(store *Store, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- store.Put(context.Background(), prefix+strconv.Itoa(i), "v")
		}
	}
	go write(storeA, "a-")
	go write(storeB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	for i := 0; i < perStoreWrites; i++ {
		_, err := storeA.Get(context.Background(), "b-"+strconv.Itoa(i))
		require.NoError(t, err)
	}
}

func TestStoreSerializedTOMLIncludesVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, newTestStore(t, path).Put(context.Background(), "remember_me", "true"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "remember_me = 'true'")
}
