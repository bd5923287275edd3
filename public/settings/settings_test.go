package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/logging"
	"github.com/awion/cryon-soc/public/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	loadErr error
	saveErr error
	patch   config.ThresholdsPatch
	saved   []config.Thresholds
}

func (f *failingStore) Load(ctx context.Context) (config.ThresholdsPatch, error) {
	return f.patch, f.loadErr
}

func (f *failingStore) Save(ctx context.Context, thresholds config.Thresholds) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, thresholds)
	return nil
}

func (f *failingStore) Close() error { return nil }

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestManager_DefaultsBeforeLoad(t *testing.T) {
	m := NewManager(storage.NewMemorySettingsStore(), logging.Discard())
	assert.Equal(t, config.DefaultThresholds(), m.Current())
	assert.Equal(t, config.DefaultThresholds(), m.Holder().Snapshot())
}

func TestManager_LoadMergesPartial(t *testing.T) {
	store := &failingStore{patch: config.ThresholdsPatch{LargeDownloadThreshold: floatPtr(42)}}
	m := NewManager(store, logging.Discard())

	require.NoError(t, m.Load(context.Background()))

	current := m.Current()
	assert.Equal(t, 42.0, current.LargeDownloadThreshold)
	assert.Equal(t, config.DefaultFailedLoginLimit, current.FailedLoginLimit)
	assert.Equal(t, float64(config.DefaultDataUploadThreshold), current.DataUploadThreshold)
}

func TestManager_LoadFailureKeepsSnapshot(t *testing.T) {
	store := &failingStore{loadErr: errors.New("unreachable")}
	m := NewManager(store, logging.Discard())

	assert.Error(t, m.Load(context.Background()))
	assert.Equal(t, config.DefaultThresholds(), m.Current())

	store.loadErr = nil
	store.patch = config.ThresholdsPatch{FailedLoginLimit: intPtr(0)}
	assert.Error(t, m.Load(context.Background()))
	assert.Equal(t, config.DefaultThresholds(), m.Current())
}

func TestManager_Save(t *testing.T) {
	store := &failingStore{}
	m := NewManager(store, logging.Discard())

	next := config.Thresholds{FailedLoginLimit: 5, LargeDownloadThreshold: 10, DataUploadThreshold: 20}
	result := m.Save(context.Background(), next)

	assert.True(t, result.OK())
	assert.Equal(t, "Settings updated", result.Message)
	assert.Equal(t, next, m.Current())
	assert.Equal(t, []config.Thresholds{next}, store.saved)
}

func TestManager_SaveFailureKeepsSnapshot(t *testing.T) {
	store := &failingStore{saveErr: errors.New("disk full")}
	m := NewManager(store, logging.Discard())

	result := m.Save(context.Background(), config.Thresholds{FailedLoginLimit: 9, LargeDownloadThreshold: 1, DataUploadThreshold: 1})

	assert.False(t, result.OK())
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Message, "disk full")
	assert.Error(t, result.Err)
	assert.Equal(t, config.DefaultThresholds(), m.Current())
}

func TestManager_SaveRejectsInvalid(t *testing.T) {
	store := &failingStore{}
	m := NewManager(store, logging.Discard())

	result := m.Save(context.Background(), config.Thresholds{FailedLoginLimit: 0})
	assert.False(t, result.OK())
	assert.True(t, errors.Is(result.Err, config.ErrInvalidThresholds))
	assert.Empty(t, store.saved)
	assert.Equal(t, config.DefaultThresholds(), m.Current())
}

func TestManager_UpdateAndReset(t *testing.T) {
	store := storage.NewMemorySettingsStore()
	m := NewManager(store, logging.Discard())
	ctx := context.Background()

	result := m.Update(ctx, config.ThresholdsPatch{FailedLoginLimit: intPtr(10)})
	require.True(t, result.OK())
	assert.Equal(t, 10, m.Current().FailedLoginLimit)
	assert.Equal(t, float64(config.DefaultLargeDownloadThreshold), m.Current().LargeDownloadThreshold)

	// A fresh manager over the same store sees the saved value
	other := NewManager(store, logging.Discard())
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, 10, other.Current().FailedLoginLimit)

	require.True(t, m.Reset(ctx).OK())
	assert.Equal(t, config.DefaultThresholds(), m.Current())
	assert.NoError(t, m.Close())
}
