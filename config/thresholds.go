package config

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidThresholds is returned when a threshold value is out of range
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Default detection thresholds
const (
	DefaultFailedLoginLimit       = 3
	DefaultLargeDownloadThreshold = 100
	DefaultDataUploadThreshold    = 500
)

// Thresholds is the immutable snapshot read by every classification pass
type Thresholds struct {
	FailedLoginLimit       int     `json:"failed_login_limit" yaml:"failed_login_limit"`
	LargeDownloadThreshold float64 `json:"large_download_threshold" yaml:"large_download_threshold"`
	DataUploadThreshold    float64 `json:"data_upload_threshold" yaml:"data_upload_threshold"`
}

// DefaultThresholds returns the thresholds used at process start
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailedLoginLimit:       DefaultFailedLoginLimit,
		LargeDownloadThreshold: DefaultLargeDownloadThreshold,
		DataUploadThreshold:    DefaultDataUploadThreshold,
	}
}

// Validate checks every field is in range
func (t Thresholds) Validate() error {
	if t.FailedLoginLimit <= 0 {
		return fmt.Errorf("%w: failed_login_limit must be greater than 0, got %d", ErrInvalidThresholds, t.FailedLoginLimit)
	}
	if t.LargeDownloadThreshold < 0 {
		return fmt.Errorf("%w: large_download_threshold must not be negative, got %g", ErrInvalidThresholds, t.LargeDownloadThreshold)
	}
	if t.DataUploadThreshold < 0 {
		return fmt.Errorf("%w: data_upload_threshold must not be negative, got %g", ErrInvalidThresholds, t.DataUploadThreshold)
	}
	return nil
}

// ThresholdsPatch is a partial update; nil fields keep their prior value
type ThresholdsPatch struct {
	FailedLoginLimit       *int     `json:"failed_login_limit,omitempty" yaml:"failed_login_limit,omitempty"`
	LargeDownloadThreshold *float64 `json:"large_download_threshold,omitempty" yaml:"large_download_threshold,omitempty"`
	DataUploadThreshold    *float64 `json:"data_upload_threshold,omitempty" yaml:"data_upload_threshold,omitempty"`
}

// Empty reports whether the patch overrides nothing
func (p ThresholdsPatch) Empty() bool {
	return p.FailedLoginLimit == nil && p.LargeDownloadThreshold == nil && p.DataUploadThreshold == nil
}

// Merge returns a copy of t with every field set in p overridden
func (t Thresholds) Merge(p ThresholdsPatch) Thresholds {
	if p.FailedLoginLimit != nil {
		t.FailedLoginLimit = *p.FailedLoginLimit
	}
	if p.LargeDownloadThreshold != nil {
		t.LargeDownloadThreshold = *p.LargeDownloadThreshold
	}
	if p.DataUploadThreshold != nil {
		t.DataUploadThreshold = *p.DataUploadThreshold
	}
	return t
}

// Patch returns a patch that sets every field to t's values
func (t Thresholds) Patch() ThresholdsPatch {
	limit := t.FailedLoginLimit
	download := t.LargeDownloadThreshold
	upload := t.DataUploadThreshold
	return ThresholdsPatch{
		FailedLoginLimit:       &limit,
		LargeDownloadThreshold: &download,
		DataUploadThreshold:    &upload,
	}
}

// ThresholdsHolder publishes the active thresholds. Readers always see a
// complete snapshot; writers replace it wholesale.
type ThresholdsHolder struct {
	current atomic.Pointer[Thresholds]
}

// NewThresholdsHolder creates a holder seeded with t
func NewThresholdsHolder(t Thresholds) *ThresholdsHolder {
	h := &ThresholdsHolder{}
	h.current.Store(&t)
	return h
}

// Snapshot returns a copy of the active thresholds
func (h *ThresholdsHolder) Snapshot() Thresholds {
	return *h.current.Load()
}

// Replace swaps in a new snapshot
func (h *ThresholdsHolder) Replace(t Thresholds) {
	h.current.Store(&t)
}
