package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/awion/cryon-soc/config"
	"github.com/go-redis/redis/v8"
)

const (
	fieldFailedLoginLimit       = "failed_login_limit"
	fieldLargeDownloadThreshold = "large_download_threshold"
	fieldDataUploadThreshold    = "data_upload_threshold"
)

// RedisSettingsStore keeps thresholds in a redis hash
type RedisSettingsStore struct {
	client *redis.Client
	key    string
}

// NewRedisSettingsStore connects to the configured redis server
func NewRedisSettingsStore(cfg config.SettingsStoreConfig) *RedisSettingsStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisSettingsStoreWithClient(client, cfg.Key)
}

// NewRedisSettingsStoreWithClient wraps an existing client
func NewRedisSettingsStoreWithClient(client *redis.Client, key string) *RedisSettingsStore {
	if key == "" {
		key = "cryon:settings"
	}
	return &RedisSettingsStore{client: client, key: key}
}

// Load reads whichever threshold fields are present in the hash
func (r *RedisSettingsStore) Load(ctx context.Context) (config.ThresholdsPatch, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return config.ThresholdsPatch{}, fmt.Errorf("failed to load settings from redis: %w", err)
	}

	var patch config.ThresholdsPatch

	if raw, ok := values[fieldFailedLoginLimit]; ok {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return config.ThresholdsPatch{}, fmt.Errorf("invalid %s in redis: %w", fieldFailedLoginLimit, err)
		}
		patch.FailedLoginLimit = &limit
	}
	if raw, ok := values[fieldLargeDownloadThreshold]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return config.ThresholdsPatch{}, fmt.Errorf("invalid %s in redis: %w", fieldLargeDownloadThreshold, err)
		}
		patch.LargeDownloadThreshold = &v
	}
	if raw, ok := values[fieldDataUploadThreshold]; ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return config.ThresholdsPatch{}, fmt.Errorf("invalid %s in redis: %w", fieldDataUploadThreshold, err)
		}
		patch.DataUploadThreshold = &v
	}

	return patch, nil
}

// Save writes all three fields in one HSET
func (r *RedisSettingsStore) Save(ctx context.Context, thresholds config.Thresholds) error {
	err := r.client.HSet(ctx, r.key,
		fieldFailedLoginLimit, strconv.Itoa(thresholds.FailedLoginLimit),
		fieldLargeDownloadThreshold, formatFloat(thresholds.LargeDownloadThreshold),
		fieldDataUploadThreshold, formatFloat(thresholds.DataUploadThreshold),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save settings to redis: %w", err)
	}
	return nil
}

// Close releases the redis connection pool
func (r *RedisSettingsStore) Close() error {
	return r.client.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
