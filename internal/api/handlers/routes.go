package handlers

import "github.com/gofiber/fiber/v2"

type Routes struct {
	Health     *HealthHandler
	Extraction *ExtractionHandler
	Skills     *SkillsHandler
}

// Register mounts the API under router, typically the /api/v1 group.
func (r Routes) Register(router fiber.Router) {
	router.Get("/health", r.Health.Health)
	router.Get("/ready", r.Health.Ready)

	router.Post("/extract/:type", r.Extraction.Extract)

	router.Get("/skills/market-ready", r.Skills.MarketReady)
	router.Get("/skills/trending", r.Skills.Trending)
	router.Get("/skills/detailed", r.Skills.Detailed)
	router.Get("/summary/daily", r.Skills.DailySummary)
}
