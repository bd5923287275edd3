package collector

import (
	"context"
	"fmt"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source names used in logs and metrics
const (
	SourceLogs   = "logs"
	SourceAlerts = "alerts"
)

// Batch is one fetched snapshot of both sources
type Batch struct {
	Records []model.Activity
	Alerts  []model.AlertRecord
	// DeriveAlerts is set when no alert source is fetched and alerts should
	// be built from the classified records instead
	DeriveAlerts bool
}

// Collector fetches activity records and alerts for each refresh
type Collector struct {
	logs         Fetcher
	alerts       Fetcher
	deriveAlerts bool
	metrics      *metrics.Recorder
	logger       *logrus.Logger
}

// NewCollector builds the fetchers described by the sources configuration
func NewCollector(sources config.SourcesConfig, recorder *metrics.Recorder, logger *logrus.Logger) (*Collector, error) {
	logs, err := NewFetcher(SourceLogs, sources.Logs)
	if err != nil {
		return nil, fmt.Errorf("logs source: %w", err)
	}

	alerts, err := NewFetcher(SourceAlerts, sources.Alerts)
	if err != nil {
		return nil, fmt.Errorf("alerts source: %w", err)
	}

	return NewCollectorWithFetchers(logs, alerts, sources.Alerts.Type == "derived", recorder, logger), nil
}

// NewCollectorWithFetchers wires explicit fetchers; either may be nil
func NewCollectorWithFetchers(logs, alerts Fetcher, deriveAlerts bool, recorder *metrics.Recorder, logger *logrus.Logger) *Collector {
	return &Collector{
		logs:         logs,
		alerts:       alerts,
		deriveAlerts: deriveAlerts,
		metrics:      recorder,
		logger:       logger,
	}
}

// Collect fetches both sources concurrently. A source that fails is logged
// and contributes an empty list; Collect itself never fails.
func (c *Collector) Collect(ctx context.Context) Batch {
	batch := Batch{
		Records:      []model.Activity{},
		Alerts:       []model.AlertRecord{},
		DeriveAlerts: c.deriveAlerts,
	}

	var g errgroup.Group

	if c.logs != nil {
		g.Go(func() error {
			records, err := c.fetchRecords(ctx)
			if err != nil {
				c.failed(SourceLogs, err)
				return nil
			}
			batch.Records = records
			return nil
		})
	}

	if c.alerts != nil && !c.deriveAlerts {
		g.Go(func() error {
			alerts, err := c.fetchAlerts(ctx)
			if err != nil {
				c.failed(SourceAlerts, err)
				return nil
			}
			batch.Alerts = alerts
			return nil
		})
	}

	// goroutines never return errors
	_ = g.Wait()

	c.logger.WithFields(logrus.Fields{
		"records": len(batch.Records),
		"alerts":  len(batch.Alerts),
	}).Debug("collected batch")

	return batch
}

func (c *Collector) fetchRecords(ctx context.Context) ([]model.Activity, error) {
	data, err := c.logs.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return model.DecodeActivities(data)
}

func (c *Collector) fetchAlerts(ctx context.Context) ([]model.AlertRecord, error) {
	data, err := c.alerts.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return model.DecodeAlerts(data)
}

func (c *Collector) failed(source string, err error) {
	c.metrics.FetchFailed(source)
	c.logger.WithError(err).WithField("source", source).Warn("source unavailable, using empty batch")
}
