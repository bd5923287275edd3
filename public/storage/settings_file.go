package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/awion/cryon-soc/config"
	"gopkg.in/yaml.v2"
)

// FileSettingsStore keeps thresholds in a JSON or YAML file, chosen by the
// file extension (.yaml/.yml for YAML, anything else JSON)
type FileSettingsStore struct {
	path  string
	yaml  bool
	mutex sync.Mutex
}

// NewFileSettingsStore creates a file-backed store
func NewFileSettingsStore(path string) (*FileSettingsStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file settings store requires a path")
	}

	ext := strings.ToLower(filepath.Ext(path))
	return &FileSettingsStore{
		path: path,
		yaml: ext == ".yaml" || ext == ".yml",
	}, nil
}

// Load reads the settings file. A missing file is created with the default
// thresholds first.
func (f *FileSettingsStore) Load(ctx context.Context) (config.ThresholdsPatch, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		defaults := config.DefaultThresholds()
		if err := f.write(defaults); err != nil {
			return config.ThresholdsPatch{}, err
		}
		return defaults.Patch(), nil
	}
	if err != nil {
		return config.ThresholdsPatch{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var patch config.ThresholdsPatch
	if f.yaml {
		err = yaml.Unmarshal(data, &patch)
	} else {
		err = json.Unmarshal(data, &patch)
	}
	if err != nil {
		return config.ThresholdsPatch{}, fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}

	return patch, nil
}

// Save writes thresholds to the settings file
func (f *FileSettingsStore) Save(ctx context.Context, thresholds config.Thresholds) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	return f.write(thresholds)
}

// write replaces the file through a temporary sibling so readers never see
// a half-written document
func (f *FileSettingsStore) write(thresholds config.Thresholds) error {
	var (
		data []byte
		err  error
	)
	if f.yaml {
		data, err = yaml.Marshal(thresholds)
	} else {
		data, err = json.MarshalIndent(thresholds, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Close is a no-op
func (f *FileSettingsStore) Close() error {
	return nil
}
