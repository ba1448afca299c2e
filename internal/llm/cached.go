package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/pkg/logger"
	"github.com/ml-career-pulse/backend/pkg/utils"
)

const responseCacheType = "llm_response"

// ResponseCache stores raw model output by prompt hash.
type ResponseCache interface {
	GetResponse(ctx context.Context, key string) (string, bool, error)
	SetResponse(ctx context.Context, key, response string, ttl time.Duration) error
}

// CachedModel serves repeated prompts from a cache. Only responses that
// parse as a JSON object are stored, so a malformed reply is never replayed
// into a retry.
type CachedModel struct {
	next      skills.Model
	cache     ResponseCache
	modelName string
	ttl       time.Duration
}

func NewCachedModel(next skills.Model, cache ResponseCache, modelName string, ttl time.Duration) *CachedModel {
	return &CachedModel{
		next:      next,
		cache:     cache,
		modelName: modelName,
		ttl:       ttl,
	}
}

func (m *CachedModel) Configured() bool {
	if m.next == nil {
		return false
	}
	if c, ok := m.next.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func (m *CachedModel) key(prompt string) string {
	return utils.HashString(m.modelName + "\x00" + prompt)
}

// Lookup returns a stored response without calling the model. Callers that
// pace model requests use it to skip the wait on a hit.
func (m *CachedModel) Lookup(ctx context.Context, prompt string) (string, bool) {
	cached, ok, err := m.cache.GetResponse(ctx, m.key(prompt))
	if err != nil {
		logger.Warn("Response cache lookup failed", zap.Error(err))
		return "", false
	}
	if ok {
		metrics.CacheHits.WithLabelValues(responseCacheType).Inc()
	}
	return cached, ok
}

func (m *CachedModel) Generate(ctx context.Context, prompt string) (string, error) {
	key := m.key(prompt)

	cached, ok, err := m.cache.GetResponse(ctx, key)
	if err != nil {
		logger.Warn("Response cache lookup failed", zap.Error(err))
	}
	if ok {
		metrics.CacheHits.WithLabelValues(responseCacheType).Inc()
		return cached, nil
	}
	metrics.CacheMisses.WithLabelValues(responseCacheType).Inc()

	resp, err := m.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	if skills.Parseable(resp) {
		if err := m.cache.SetResponse(ctx, key, resp, m.ttl); err != nil {
			logger.Warn("Failed to cache model response", zap.Error(err))
		}
	}
	return resp, nil
}
