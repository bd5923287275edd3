package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/analyzer"
	"github.com/awion/cryon-soc/public/collector"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned by Start when the monitor is already live
var ErrAlreadyRunning = errors.New("monitor already running")

// Sink receives every published snapshot
type Sink interface {
	Publish(snapshot model.Snapshot)
}

// SinkFunc adapts a function to a Sink
type SinkFunc func(snapshot model.Snapshot)

// Publish calls f
func (f SinkFunc) Publish(snapshot model.Snapshot) { f(snapshot) }

// Monitor drives periodic classification passes for the live view
type Monitor struct {
	collector *collector.Collector
	analyzer  *analyzer.Analyzer
	sinks     []Sink
	interval  time.Duration
	logger    *logrus.Logger

	mutex      sync.Mutex
	running    bool
	cancel     context.CancelFunc
	generation uint64
	done       chan struct{}

	// serialises passes between the live loop and RunOnce
	passMutex sync.Mutex
}

// NewMonitor creates a monitor that refreshes every interval
func NewMonitor(c *collector.Collector, a *analyzer.Analyzer, interval time.Duration, logger *logrus.Logger, sinks ...Sink) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		collector: c,
		analyzer:  a,
		sinks:     sinks,
		interval:  interval,
		logger:    logger,
	}
}

// Start runs one pass immediately, then one per interval until Stop or ctx
// is cancelled
func (m *Monitor) Start(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.generation++
	m.done = make(chan struct{})

	go m.loop(loopCtx, m.generation, m.done)

	m.logger.WithField("interval", m.interval).Info("live monitor started")
	return nil
}

// Stop cancels the loop and waits for it to exit. No pass is scheduled after
// Stop returns, and the result of a pass still in flight is dropped.
func (m *Monitor) Stop() {
	m.mutex.Lock()
	if !m.running {
		m.mutex.Unlock()
		return
	}
	m.running = false
	m.generation++
	m.cancel()
	done := m.done
	m.mutex.Unlock()

	<-done
	m.logger.Info("live monitor stopped")
}

// AddSink registers another receiver for published snapshots
func (m *Monitor) AddSink(sink Sink) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.sinks = append(m.sinks, sink)
}

// Running reports whether the live loop is active
func (m *Monitor) Running() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.running
}

// Interval returns the refresh interval
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// RunOnce runs a single pass and publishes it. It waits for any live pass
// in progress to finish first.
func (m *Monitor) RunOnce(ctx context.Context) model.Snapshot {
	m.passMutex.Lock()
	defer m.passMutex.Unlock()

	snapshot := m.pass(ctx)
	m.publish(snapshot)
	return snapshot
}

func (m *Monitor) loop(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	m.runLive(ctx, generation)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runLive(ctx, generation)
		case <-ctx.Done():
			m.release(generation)
			return
		}
	}
}

// release marks the loop stopped when its parent context ended without Stop
func (m *Monitor) release(generation uint64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.running && m.generation == generation {
		m.running = false
		m.cancel()
		m.logger.Info("live monitor stopped by context")
	}
}

// runLive runs one pass from the loop. Ticks that arrive while a pass is in
// progress are dropped by the ticker, so passes never pile up.
func (m *Monitor) runLive(ctx context.Context, generation uint64) {
	if ctx.Err() != nil {
		return
	}

	m.passMutex.Lock()
	defer m.passMutex.Unlock()

	snapshot := m.pass(ctx)

	if ctx.Err() != nil || !m.current(generation) {
		m.logger.Debug("discarding pass result from stopped monitor")
		return
	}
	m.publish(snapshot)
}

func (m *Monitor) pass(ctx context.Context) model.Snapshot {
	batch := m.collector.Collect(ctx)
	return m.analyzer.Analyze(batch.Records, batch.Alerts, batch.DeriveAlerts)
}

func (m *Monitor) current(generation uint64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.running && m.generation == generation
}

func (m *Monitor) publish(snapshot model.Snapshot) {
	m.mutex.Lock()
	sinks := append([]Sink(nil), m.sinks...)
	m.mutex.Unlock()

	for _, sink := range sinks {
		sink.Publish(snapshot)
	}
}
