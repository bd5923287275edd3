package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/logging"
	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const logsJSON = `[
	{"timestamp":"2026-02-26T10:15:00Z","event_type":"login_attempt","status":"failed","user_id":"u1","ip_address":"10.0.0.1"},
	{"timestamp":"2026-02-26T10:16:00Z","event_type":"data_download","user_id":"u2","ip_address":"192.168.1.5","size_mb":150}
]`

const alertsJSON = `[
	{"timestamp":"2026-02-26T10:15:00Z","type":"Brute Force Attack","description":"x","severity":"Critical"}
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type stubFetcher struct {
	data []byte
	err  error
}

func (s stubFetcher) Fetch(ctx context.Context) ([]byte, error) { return s.data, s.err }
func (s stubFetcher) Name() string                               { return "stub" }

func TestNewFetcher(t *testing.T) {
	f, err := NewFetcher("logs", config.SourceConfig{Type: "file", Path: "logs.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileFetcher{}, f)
	assert.Equal(t, "logs", f.Name())

	f, err = NewFetcher("logs", config.SourceConfig{Type: "http", URL: "http://localhost/api/logs"})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = NewFetcher("alerts", config.SourceConfig{Type: "derived"})
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = NewFetcher("alerts", config.SourceConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	path := writeFile(t, "logs.json", logsJSON)

	data, err := NewFileFetcher("logs", path).Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, logsJSON, string(data))

	_, err = NewFileFetcher("logs", filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileFetcher("logs", path).Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(logsJSON))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher("logs", server.URL+"/api/logs", time.Second, 3)
	data, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, logsJSON, string(data))
}

func TestHTTPFetcher_BreakerOpens(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher("logs", server.URL, time.Second, 2)

	for i := 0; i < 2; i++ {
		_, err := fetcher.Fetch(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnexpectedStatus))
	}
	assert.Equal(t, gobreaker.StateOpen, fetcher.State())

	_, err := fetcher.Fetch(context.Background())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCollector_FileSources(t *testing.T) {
	sources := config.SourcesConfig{
		Logs:   config.SourceConfig{Type: "file", Path: writeFile(t, "logs.json", logsJSON)},
		Alerts: config.SourceConfig{Type: "file", Path: writeFile(t, "alerts.json", alertsJSON)},
	}

	c, err := NewCollector(sources, nil, logging.Discard())
	require.NoError(t, err)

	batch := c.Collect(context.Background())
	require.Len(t, batch.Records, 2)
	assert.IsType(t, model.LoginAttempt{}, batch.Records[0])
	require.Len(t, batch.Alerts, 1)
	assert.Equal(t, model.SeverityCritical, batch.Alerts[0].Severity)
	assert.False(t, batch.DeriveAlerts)
}

func TestCollector_DerivedAlerts(t *testing.T) {
	sources := config.SourcesConfig{
		Logs:   config.SourceConfig{Type: "file", Path: writeFile(t, "logs.json", logsJSON)},
		Alerts: config.SourceConfig{Type: "derived"},
	}

	c, err := NewCollector(sources, nil, logging.Discard())
	require.NoError(t, err)

	batch := c.Collect(context.Background())
	assert.Len(t, batch.Records, 2)
	assert.Empty(t, batch.Alerts)
	assert.True(t, batch.DeriveAlerts)
}

func TestCollector_FailuresBecomeEmptyBatch(t *testing.T) {
	recorder := metrics.NewRecorder()
	c := NewCollectorWithFetchers(
		stubFetcher{err: errors.New("connection refused")},
		stubFetcher{data: []byte("<html>oops</html>")},
		false,
		recorder,
		logging.Discard(),
	)

	batch := c.Collect(context.Background())
	assert.NotNil(t, batch.Records)
	assert.Empty(t, batch.Records)
	assert.NotNil(t, batch.Alerts)
	assert.Empty(t, batch.Alerts)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.FetchFailures.WithLabelValues(SourceLogs)))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.FetchFailures.WithLabelValues(SourceAlerts)))
}

func TestCollector_NoSources(t *testing.T) {
	c := NewCollectorWithFetchers(nil, nil, false, nil, logging.Discard())
	batch := c.Collect(context.Background())
	assert.Empty(t, batch.Records)
	assert.Empty(t, batch.Alerts)
}
