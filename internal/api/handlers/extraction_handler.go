package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/enrichment"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

type Enricher interface {
	Enrich(ctx context.Context, itemType skills.ItemType, items []skills.RawItem) ([]skills.RawItem, enrichment.Summary, error)
}

type ExtractionHandler struct {
	service Enricher
}

func NewExtractionHandler(service Enricher) *ExtractionHandler {
	return &ExtractionHandler{
		service: service,
	}
}

// Extract enriches a batch of scraped items of the type named in the path.
func (h *ExtractionHandler) Extract(c *fiber.Ctx) error {
	itemType := skills.ItemType(c.Params("type"))
	if !itemType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown item type: " + string(itemType),
		})
	}

	var req struct {
		Items []map[string]any `json:"items"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one item is required",
		})
	}

	items := make([]skills.RawItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, skills.RawItem(item))
	}

	enriched, summary, err := h.service.Enrich(c.Context(), itemType, items)
	if err != nil {
		if errors.Is(err, enrichment.ErrUnknownItemType) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Failed to enrich items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enrich items",
		})
	}

	return c.JSON(fiber.Map{
		"summary": summary,
		"items":   enriched,
	})
}
