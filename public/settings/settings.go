package settings

import (
	"context"
	"sync"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/public/storage"
	"github.com/sirupsen/logrus"
)

// Result statuses reported to UI callers
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the labeled outcome of a save
type Result struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// OK reports whether the save succeeded
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Manager owns the active thresholds and keeps them in sync with the store.
// The holder is only replaced after a successful load or save.
type Manager struct {
	store  storage.SettingsStore
	holder *config.ThresholdsHolder
	logger *logrus.Logger

	// serialises read-merge-save sequences
	mutex sync.Mutex
}

// NewManager creates a manager seeded with the default thresholds
func NewManager(store storage.SettingsStore, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		holder: config.NewThresholdsHolder(config.DefaultThresholds()),
		logger: logger,
	}
}

// Holder exposes the thresholds holder read by classification passes
func (m *Manager) Holder() *config.ThresholdsHolder {
	return m.holder
}

// Current returns the active thresholds
func (m *Manager) Current() config.Thresholds {
	return m.holder.Snapshot()
}

// Load merges the stored settings over the active snapshot. On failure the
// active snapshot is kept and the error is returned for reporting.
func (m *Manager) Load(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	patch, err := m.store.Load(ctx)
	if err != nil {
		m.logger.WithError(err).Warn("could not load settings, keeping current thresholds")
		return err
	}

	merged := m.holder.Snapshot().Merge(patch)
	if err := merged.Validate(); err != nil {
		m.logger.WithError(err).Warn("stored settings are invalid, keeping current thresholds")
		return err
	}

	m.holder.Replace(merged)
	m.logger.WithFields(logrus.Fields{
		"failed_login_limit":       merged.FailedLoginLimit,
		"large_download_threshold": merged.LargeDownloadThreshold,
		"data_upload_threshold":    merged.DataUploadThreshold,
	}).Info("settings loaded")
	return nil
}

// Save validates and persists a complete set of thresholds, then makes it
// active
func (m *Manager) Save(ctx context.Context, thresholds config.Thresholds) Result {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.save(ctx, thresholds)
}

// Update merges patch over the active thresholds and saves the result
func (m *Manager) Update(ctx context.Context, patch config.ThresholdsPatch) Result {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.save(ctx, m.holder.Snapshot().Merge(patch))
}

// Reset saves the default thresholds
func (m *Manager) Reset(ctx context.Context) Result {
	return m.Save(ctx, config.DefaultThresholds())
}

func (m *Manager) save(ctx context.Context, thresholds config.Thresholds) Result {
	if err := thresholds.Validate(); err != nil {
		m.logger.WithError(err).Error("rejected settings update")
		return Result{Status: StatusError, Message: err.Error(), Err: err}
	}

	if err := m.store.Save(ctx, thresholds); err != nil {
		m.logger.WithError(err).Error("failed to save settings")
		return Result{Status: StatusError, Message: "Failed to save settings: " + err.Error(), Err: err}
	}

	m.holder.Replace(thresholds)
	m.logger.Info("settings updated")
	return Result{Status: StatusSuccess, Message: "Settings updated"}
}

// Close releases the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}
