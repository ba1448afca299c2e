package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/pkg/logger"
)

const readyTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

// ExtractorInfo is the model status reported by the readiness check.
// Breaker, when set, reports the model client's circuit state.
type ExtractorInfo struct {
	Configured      bool          `json:"configured"`
	Model           string        `json:"model"`
	RequestDelaySec float64       `json:"request_delay_sec"`
	Breaker         func() string `json:"-"`
}

type HealthHandler struct {
	deps      map[string]Pinger
	extractor ExtractorInfo
}

func NewHealthHandler(deps map[string]Pinger, extractor ExtractorInfo) *HealthHandler {
	return &HealthHandler{
		deps:      deps,
		extractor: extractor,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Ready pings every backing store. An unconfigured model does not fail
// readiness since extraction degrades to empty results.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readyTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	ready := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", fiber.StatusOK
	if !ready {
		status, code = "not_ready", fiber.StatusServiceUnavailable
	}

	extractor := fiber.Map{
		"configured":        h.extractor.Configured,
		"model":             h.extractor.Model,
		"request_delay_sec": h.extractor.RequestDelaySec,
	}
	if h.extractor.Breaker != nil {
		extractor["circuit"] = h.extractor.Breaker()
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"extractor": extractor,
	})
}
