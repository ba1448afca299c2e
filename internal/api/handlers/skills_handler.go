package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/kg/neo4j"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/internal/storage/models"
	"github.com/ml-career-pulse/backend/internal/trends"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

const (
	defaultMarketDays   = 30
	defaultTrendingDays = 7
	summaryTopSkills    = 5
)

type ItemReader interface {
	ListItems(ctx context.Context, filter models.ItemFilter) ([]*models.Item, error)
	CountItems(ctx context.Context, itemType string, since time.Time) (int, error)
}

type MetricReader interface {
	GetMetric(ctx context.Context, metricName string) (int64, error)
}

type GraphReader interface {
	TopSkills(ctx context.Context, itemType string, limit int) ([]neo4j.SkillCount, error)
}

// SkillsHandler serves the read-time aggregations. counters and graph are
// optional.
type SkillsHandler struct {
	items    ItemReader
	counters MetricReader
	graph    GraphReader
	now      func() time.Time
}

func NewSkillsHandler(items ItemReader, counters MetricReader, graph GraphReader) *SkillsHandler {
	return &SkillsHandler{
		items:    items,
		counters: counters,
		graph:    graph,
		now:      time.Now,
	}
}

func (h *SkillsHandler) since(c *fiber.Ctx, fallback int) time.Time {
	days := c.QueryInt("days", fallback)
	if days <= 0 {
		days = fallback
	}
	return h.now().AddDate(0, 0, -days)
}

func (h *SkillsHandler) MarketReady(c *fiber.Ctx) error {
	items, err := h.items.ListItems(c.Context(), models.ItemFilter{
		ItemType: string(skills.ItemPaper),
		Since:    h.since(c, defaultMarketDays),
	})
	if err != nil {
		logger.Error("Failed to list papers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load papers",
		})
	}

	papers := make([]skills.PaperSkills, 0, len(items))
	for _, item := range items {
		if !item.HasDetailed {
			continue
		}
		if p, ok := skills.DecodeResult(skills.ItemPaper, item.DetailedSkills).(skills.PaperSkills); ok {
			papers = append(papers, p)
		}
	}

	return c.JSON(trends.MarketReady(papers, c.QueryInt("limit", trends.DefaultMarketLimit)))
}

func (h *SkillsHandler) Trending(c *fiber.Ctx) error {
	items, err := h.items.ListItems(c.Context(), models.ItemFilter{
		Since: h.since(c, defaultTrendingDays),
	})
	if err != nil {
		logger.Error("Failed to list items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load items",
		})
	}

	lists := make([][]string, 0, len(items))
	for _, item := range items {
		lists = append(lists, item.ExtractedSkills)
	}

	return c.JSON(fiber.Map{
		"items_analyzed":  len(items),
		"trending_skills": trends.Trending(lists, c.QueryInt("limit", trends.DefaultTrendingLimit)),
	})
}

func (h *SkillsHandler) Detailed(c *fiber.Ctx) error {
	itemType := skills.ItemType(c.Query("type", string(skills.ItemPaper)))
	if !itemType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown item type: " + string(itemType),
		})
	}

	items, err := h.items.ListItems(c.Context(), models.ItemFilter{
		ItemType: string(itemType),
		Since:    h.since(c, defaultTrendingDays),
	})
	if err != nil {
		logger.Error("Failed to list items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load items",
		})
	}

	results := make([]skills.Result, 0, len(items))
	for _, item := range items {
		if !item.HasDetailed {
			results = append(results, nil)
			continue
		}
		results = append(results, skills.DecodeResult(itemType, item.DetailedSkills))
	}

	return c.JSON(trends.DetailedBreakdown(itemType, results, c.QueryInt("limit", trends.DefaultDetailedLimit)))
}

// DailySummary reports today's volume and the keyword skills of the last
// 24 hours.
func (h *SkillsHandler) DailySummary(c *fiber.Ctx) error {
	ctx := c.Context()
	now := h.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	total, err := h.items.CountItems(ctx, "", time.Time{})
	if err != nil {
		logger.Error("Failed to count items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count items",
		})
	}

	byType := make(map[string]int, len(skills.ItemTypes))
	newToday := 0
	for _, t := range skills.ItemTypes {
		n, err := h.items.CountItems(ctx, string(t), today)
		if err != nil {
			logger.Error("Failed to count items", zap.String("item_type", string(t)), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to count items",
			})
		}
		byType[string(t)] = n
		newToday += n
	}

	recent, err := h.items.ListItems(ctx, models.ItemFilter{Since: now.Add(-24 * time.Hour)})
	if err != nil {
		logger.Error("Failed to list items", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load items",
		})
	}
	lists := make([][]string, 0, len(recent))
	for _, item := range recent {
		lists = append(lists, item.ExtractedSkills)
	}

	resp := fiber.Map{
		"date":           today.Format("2006-01-02"),
		"total_items":    total,
		"new_today":      newToday,
		"new_by_type":    byType,
		"top_skills_24h": trends.Trending(lists, summaryTopSkills),
	}

	if h.counters != nil {
		enriched := make(map[string]int64, len(skills.ItemTypes))
		for _, t := range skills.ItemTypes {
			n, err := h.counters.GetMetric(ctx, "enriched:"+string(t))
			if err != nil {
				logger.Warn("Failed to read counter", zap.String("item_type", string(t)), zap.Error(err))
				continue
			}
			enriched[string(t)] = n
		}
		resp["enriched_total"] = enriched
	}

	if h.graph != nil {
		top, err := h.graph.TopSkills(ctx, "", summaryTopSkills)
		if err != nil {
			logger.Warn("Failed to read skill graph", zap.Error(err))
		} else {
			resp["graph_top_skills"] = top
		}
	}

	return c.JSON(resp)
}
