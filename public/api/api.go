package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/awion/cryon-soc/config"
	"github.com/awion/cryon-soc/model"
	"github.com/awion/cryon-soc/public/analyzer"
	"github.com/awion/cryon-soc/public/metrics"
	"github.com/awion/cryon-soc/public/settings"
	"github.com/awion/cryon-soc/public/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const errInvalidPayload = "Invalid settings payload"

type (
	// ServerDI lists the dependencies of the API server. Metrics may be nil.
	ServerDI struct {
		Config   config.APIConfig
		Storage  *storage.Storage
		Settings *settings.Manager
		Metrics  *metrics.Recorder
		Logger   *logrus.Logger
	}

	// Server exposes the latest snapshot and the settings over HTTP
	Server struct {
		config   config.APIConfig
		storage  *storage.Storage
		settings *settings.Manager
		metrics  *metrics.Recorder
		logger   *logrus.Logger
		router   *fiber.App
		now      func() time.Time
	}
)

// NewServer builds the fiber app and registers every route
func NewServer(di ServerDI) *Server {
	s := &Server{
		config:   di.Config,
		storage:  di.Storage,
		settings: di.Settings,
		metrics:  di.Metrics,
		logger:   di.Logger,
		now:      time.Now,
		router: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          10 * time.Second,
			IdleTimeout:           60 * time.Second,
		}),
	}

	s.router.Use(recover.New())
	s.setupRoutes()
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.router
}

// Run listens on the configured port until Shutdown
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.WithField("addr", addr).Info("starting API server")
	return s.router.Listen(addr)
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown() error {
	return s.router.Shutdown()
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   s.now().Format(time.RFC3339),
		})
	})

	api := s.router.Group("/api")
	{
		api.Get("/logs", s.getLogs)
		api.Get("/events", s.getEvents)
		api.Get("/alerts", s.getAlerts)
		api.Get("/stats", s.getStats)
		api.Get("/report", s.getReport)
		api.Get("/settings", s.getSettings)
		api.Post("/settings", s.postSettings)
	}

	if s.metrics != nil {
		handler := fasthttpadaptor.NewFastHTTPHandler(s.metrics.Handler())
		s.router.Get("/metrics", func(c *fiber.Ctx) error {
			handler(c.Context())
			return nil
		})
	}
}

func (s *Server) getLogs(c *fiber.Ctx) error {
	return c.JSON(s.storage.GetRecords())
}

// getEvents accepts ?limit=n and ?priority=CRITICAL|HIGH|NORMAL
func (s *Server) getEvents(c *fiber.Ctx) error {
	events := s.storage.GetEvents(0)

	if p := c.Query("priority"); p != "" {
		filtered := make([]model.ClassifiedEvent, 0, len(events))
		for _, event := range events {
			if string(event.Priority) == p {
				filtered = append(filtered, event)
			}
		}
		events = filtered
	}

	return c.JSON(limit(events, c.QueryInt("limit", 0)))
}

// getAlerts accepts ?limit=n and ?severity=<level>
func (s *Server) getAlerts(c *fiber.Ctx) error {
	var alerts []model.AlertRecord
	if sev := c.Query("severity"); sev != "" {
		alerts = s.storage.GetAlertsBySeverity(model.ParseSeverity(sev))
	} else {
		alerts = s.storage.GetAlerts(0)
	}

	return c.JSON(limit(alerts, c.QueryInt("limit", 0)))
}

func (s *Server) getStats(c *fiber.Ctx) error {
	return c.JSON(s.storage.GetStats())
}

func (s *Server) getReport(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"report": analyzer.Report(s.storage.GetAlerts(0), s.now()),
	})
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	return c.JSON(s.settings.Current())
}

// postSettings merges a partial body over the active thresholds and saves it
func (s *Server) postSettings(c *fiber.Ctx) error {
	var patch config.ThresholdsPatch
	if err := c.BodyParser(&patch); err != nil {
		s.logger.WithError(err).Warn("failed to bind settings request")
		return c.Status(fiber.StatusBadRequest).JSON(settings.Result{
			Status:  settings.StatusError,
			Message: errInvalidPayload,
		})
	}

	result := s.settings.Update(c.UserContext(), patch)
	if !result.OK() {
		status := fiber.StatusInternalServerError
		if errors.Is(result.Err, config.ErrInvalidThresholds) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(result)
	}

	return c.JSON(result)
}

func limit[T any](items []T, n int) []T {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}
