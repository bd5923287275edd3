package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/awion/cryon-soc/config"
)

// SettingsStore persists detection thresholds. Load may return a partial
// patch; Save always receives a complete, validated value.
type SettingsStore interface {
	Load(ctx context.Context) (config.ThresholdsPatch, error)
	Save(ctx context.Context, thresholds config.Thresholds) error
	Close() error
}

// NewSettingsStore initializes a settings store based on configuration
func NewSettingsStore(cfg config.SettingsStoreConfig) (SettingsStore, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemorySettingsStore(), nil
	case "file":
		return NewFileSettingsStore(cfg.Path)
	case "redis":
		return NewRedisSettingsStore(cfg), nil
	default:
		return nil, fmt.Errorf("unknown settings store type: %s", cfg.Type)
	}
}

// MemorySettingsStore keeps thresholds in process memory
type MemorySettingsStore struct {
	saved *config.Thresholds
	mutex sync.RWMutex
}

// NewMemorySettingsStore creates an empty in-memory store
func NewMemorySettingsStore() *MemorySettingsStore {
	return &MemorySettingsStore{}
}

// Load returns the saved thresholds, or an empty patch if nothing was saved
func (m *MemorySettingsStore) Load(ctx context.Context) (config.ThresholdsPatch, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.saved == nil {
		return config.ThresholdsPatch{}, nil
	}
	return m.saved.Patch(), nil
}

// Save stores a copy of thresholds
func (m *MemorySettingsStore) Save(ctx context.Context, thresholds config.Thresholds) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.saved = &thresholds
	return nil
}

// Close is a no-op
func (m *MemorySettingsStore) Close() error {
	return nil
}
