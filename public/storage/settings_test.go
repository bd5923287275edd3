package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/awion/cryon-soc/config"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSettingsStore(t *testing.T) {
	store, err := NewSettingsStore(config.SettingsStoreConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemorySettingsStore{}, store)

	store, err = NewSettingsStore(config.SettingsStoreConfig{Type: "file", Path: filepath.Join(t.TempDir(), "settings.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileSettingsStore{}, store)

	store, err = NewSettingsStore(config.SettingsStoreConfig{Type: "redis", Host: "localhost", Port: 6379})
	require.NoError(t, err)
	assert.IsType(t, &RedisSettingsStore{}, store)
	require.NoError(t, store.Close())

	_, err = NewSettingsStore(config.SettingsStoreConfig{Type: "file"})
	assert.Error(t, err)

	_, err = NewSettingsStore(config.SettingsStoreConfig{Type: "etcd"})
	assert.Error(t, err)
}

func TestMemorySettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySettingsStore()

	patch, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, patch.Empty())

	saved := config.Thresholds{FailedLoginLimit: 5, LargeDownloadThreshold: 50, DataUploadThreshold: 250}
	require.NoError(t, store.Save(ctx, saved))

	patch, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, config.DefaultThresholds().Merge(patch))
}

func TestFileSettingsStore_CreatesDefaults(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	store, err := NewFileSettingsStore(path)
	require.NoError(t, err)

	patch, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultThresholds(), config.Thresholds{}.Merge(patch))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed_login_limit": 3`)
}

func TestFileSettingsStore_PartialJSON(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"failed_login_limit": 8}`), 0644))

	store, err := NewFileSettingsStore(path)
	require.NoError(t, err)

	patch, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, patch.FailedLoginLimit)
	assert.Equal(t, 8, *patch.FailedLoginLimit)
	assert.Nil(t, patch.LargeDownloadThreshold)
	assert.Nil(t, patch.DataUploadThreshold)
}

func TestFileSettingsStore_YAMLRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.yaml")

	store, err := NewFileSettingsStore(path)
	require.NoError(t, err)

	saved := config.Thresholds{FailedLoginLimit: 4, LargeDownloadThreshold: 75.5, DataUploadThreshold: 300}
	require.NoError(t, store.Save(ctx, saved))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "failed_login_limit: 4")

	patch, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, config.DefaultThresholds().Merge(patch))
}

func TestFileSettingsStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	store, err := NewFileSettingsStore(path)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.Error(t, err)
}

func TestFileSettingsStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes the rename fail
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.Mkdir(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "keep"), []byte("x"), 0644))

	store, err := NewFileSettingsStore(path)
	require.NoError(t, err)

	err = store.Save(context.Background(), config.DefaultThresholds())
	assert.Error(t, err)
}

func TestRedisSettingsStore_Load(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisSettingsStoreWithClient(client, "cryon:settings")

	mock.ExpectHGetAll("cryon:settings").SetVal(map[string]string{
		"failed_login_limit":    "6",
		"data_upload_threshold": "750.5",
	})

	patch, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, patch.FailedLoginLimit)
	assert.Equal(t, 6, *patch.FailedLoginLimit)
	assert.Nil(t, patch.LargeDownloadThreshold)
	require.NotNil(t, patch.DataUploadThreshold)
	assert.Equal(t, 750.5, *patch.DataUploadThreshold)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSettingsStore_LoadEmptyAndErrors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisSettingsStoreWithClient(client, "")

	mock.ExpectHGetAll("cryon:settings").SetVal(map[string]string{})
	patch, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, patch.Empty())

	mock.ExpectHGetAll("cryon:settings").SetErr(errors.New("connection refused"))
	_, err = store.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	mock.ExpectHGetAll("cryon:settings").SetVal(map[string]string{"failed_login_limit": "many"})
	_, err = store.Load(ctx)
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSettingsStore_Save(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	store := NewRedisSettingsStoreWithClient(client, "soc:thresholds")

	mock.ExpectHSet("soc:thresholds",
		"failed_login_limit", "5",
		"large_download_threshold", "120",
		"data_upload_threshold", "480.25",
	).SetVal(3)

	err := store.Save(ctx, config.Thresholds{FailedLoginLimit: 5, LargeDownloadThreshold: 120, DataUploadThreshold: 480.25})
	require.NoError(t, err)

	mock.ExpectHSet("soc:thresholds",
		"failed_login_limit", "3",
		"large_download_threshold", "100",
		"data_upload_threshold", "500",
	).SetErr(errors.New("READONLY"))

	err = store.Save(ctx, config.DefaultThresholds())
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
