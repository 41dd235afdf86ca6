package local

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/steam-gs-unlock/internal/domain"
)

const testSteamID domain.SteamID = 76561197960287930

func newTestStore(t *testing.T) *Store {
	t.Helper()

	config := viper.New()
	config.Set(StatsFileKey, filepath.Join(t.TempDir(), "stats.toml"))

	store, err := NewStore(config)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.RegisterApp(ctx, 480, []string{"ACH_WIN_ONE_GAME", "ACH_TRAVEL_FAR_ACCUM"}))

	achievements, err := store.Achievements(ctx, 480)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACH_WIN_ONE_GAME", "ACH_TRAVEL_FAR_ACCUM"}, achievements)

	unlocked, err := store.Unlocked(ctx, 480, testSteamID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	require.NoError(t, store.Unlock(ctx, 480, testSteamID, []string{"ACH_WIN_ONE_GAME"}))
	require.NoError(t, store.Unlock(ctx, 480, testSteamID, []string{"ACH_TRAVEL_FAR_ACCUM", "ACH_WIN_ONE_GAME"}))

	unlocked, err = store.Unlocked(ctx, 480, testSteamID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACH_TRAVEL_FAR_ACCUM", "ACH_WIN_ONE_GAME"}, unlocked)
}

func TestStoreUnknownAppIsReported(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Achievements(ctx, 480)
	require.ErrorIs(t, err, ErrAppNotRegistered)

	err = store.Unlock(ctx, 480, testSteamID, []string{"ACH_WIN_ONE_GAME"})
	require.ErrorIs(t, err, ErrAppNotRegistered)
}

func TestStoreRejectsUndefinedAchievement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.RegisterApp(ctx, 480, []string{"ACH_WIN_ONE_GAME"}))

	err := store.Unlock(ctx, 480, testSteamID, []string{"ACH_WIN_ONE_GAME", "ACH_UNKNOWN"})
	require.ErrorIs(t, err, domain.ErrUnknownAchievement)

	unlocked, err := store.Unlocked(ctx, 480, testSteamID)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestStoreReadsHandWrittenFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stats.toml")
	content := `version = 1

[[apps]]
app_id = 480
achievements = ["ACH_WIN_ONE_GAME"]

[[apps.users]]
steam_id = 76561197960287930
unlocked = ["ACH_WIN_ONE_GAME"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	config := viper.New()
	config.Set(StatsFileKey, path)
	store, err := NewStore(config)
	require.NoError(t, err)

	unlocked, err := store.Unlocked(context.Background(), 480, testSteamID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACH_WIN_ONE_GAME"}, unlocked)
}

func TestStoreRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "stats.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 2\n"), 0o600))

	config := viper.New()
	config.Set(StatsFileKey, path)
	store, err := NewStore(config)
	require.NoError(t, err)

	_, err = store.Achievements(context.Background(), 480)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported stats schema version 2")
}

func TestStoreWritesPrivateFile(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.RegisterApp(context.Background(), 480, []string{"ACH_WIN_ONE_GAME"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), ".stats-*.toml.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestStoreConcurrentUnlocksAreNotLost(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "stats.toml")

	newStore := func() *Store {
		config := viper.New()
		config.Set(StatsFileKey, path)
		store, err := NewStore(config)
		require.NoError(t, err)
		return store
	}

	require.NoError(t, newStore().RegisterApp(ctx, 480, []string{"ACH_WIN_ONE_GAME"}))

	const users = 16
	stores := make([]*Store, users)
	for i := range stores {
		stores[i] = newStore()
	}

	var wg sync.WaitGroup
	errs := make(chan error, users)
	for i, store := range stores {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Unlock(ctx, 480, domain.SteamID(1000+i), []string{"ACH_WIN_ONE_GAME"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	store := newStore()
	for i := range users {
		unlocked, err := store.Unlocked(ctx, 480, domain.SteamID(1000+i))
		require.NoError(t, err, strconv.Itoa(i))
		assert.Equal(t, []string{"ACH_WIN_ONE_GAME"}, unlocked)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newTestStore(t)
	err := store.RegisterApp(ctx, 480, []string{"ACH_WIN_ONE_GAME"})
	assert.ErrorIs(t, err, context.Canceled)
}
