// Package enrichment runs scraped items through keyword and model-based
// skill extraction and hands the results to storage and the skill graph.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/kg/neo4j"
	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/internal/storage/models"
	"github.com/ml-career-pulse/backend/pkg/logger"
	"github.com/ml-career-pulse/backend/pkg/utils"
)

var ErrUnknownItemType = errors.New("unknown item type")

type Store interface {
	UpsertItem(ctx context.Context, item *models.Item) error
}

type GraphBuilder interface {
	BuildFromResult(ctx context.Context, item neo4j.ItemNode, result skills.Result) (int, error)
}

type Counter interface {
	IncrementMetricBy(ctx context.Context, metricName string, n int64) error
}

type Summary struct {
	RequestID   string  `json:"request_id"`
	ItemType    string  `json:"item_type"`
	Total       int     `json:"total"`
	Enriched    int     `json:"enriched"`
	Stored      int     `json:"stored"`
	Failed      int     `json:"failed"`
	SuccessRate string  `json:"success_rate"`
	DurationSec float64 `json:"duration_sec"`
}

// Service wires the extractor to its sinks. store, graph and counters may
// be nil; their failures are logged and counted, never returned. Concurrent
// Enrich calls run their batches one after another so the extractor's
// throttle holds across callers.
type Service struct {
	mu        sync.Mutex
	extractor *skills.Extractor
	store     Store
	graph     GraphBuilder
	counters  Counter
	now       func() time.Time
}

func NewService(extractor *skills.Extractor, store Store, graph GraphBuilder, counters Counter) *Service {
	return &Service{
		extractor: extractor,
		store:     store,
		graph:     graph,
		counters:  counters,
		now:       time.Now,
	}
}

// Enrich annotates items with extracted_skills and detailed_skills, assigns
// stable ids, and persists them. Output order matches input order.
func (s *Service) Enrich(ctx context.Context, itemType skills.ItemType, items []skills.RawItem) ([]skills.RawItem, Summary, error) {
	summary := Summary{
		RequestID:   uuid.NewString(),
		ItemType:    string(itemType),
		Total:       len(items),
		SuccessRate: "0%",
	}
	if !itemType.Valid() {
		return nil, summary, fmt.Errorf("%w: %q", ErrUnknownItemType, itemType)
	}

	start := s.now()
	logger.Info("Enrichment started",
		zap.String("request_id", summary.RequestID),
		zap.String("item_type", summary.ItemType),
		zap.Int("total", summary.Total),
	)

	prepared := make([]skills.RawItem, 0, len(items))
	for _, item := range items {
		prepared = append(prepared, prepare(item))
	}

	enriched := s.runBatch(ctx, itemType, prepared)

	for _, item := range enriched {
		result, _ := item[skills.DetailedSkillsKey].(skills.Result)
		hasDetailed := result != nil && !result.IsEmpty()
		if hasDetailed {
			summary.Enriched++
		}

		if s.store != nil {
			if err := s.store.UpsertItem(ctx, s.toModel(itemType, item, hasDetailed)); err != nil {
				logger.Error("Failed to store item",
					zap.String("request_id", summary.RequestID),
					zap.String("item_id", item.Text("id")),
					zap.Error(err),
				)
				metrics.ItemsStored.WithLabelValues(summary.ItemType, "error").Inc()
				summary.Failed++
			} else {
				metrics.ItemsStored.WithLabelValues(summary.ItemType, "ok").Inc()
				summary.Stored++
			}
		}

		if s.graph != nil && hasDetailed {
			node := neo4j.ItemNode{ID: item.Text("id"), Type: summary.ItemType, Title: itemTitle(item)}
			if _, err := s.graph.BuildFromResult(ctx, node, result); err != nil {
				logger.Warn("Failed to update skill graph", zap.String("item_id", node.ID), zap.Error(err))
			}
		}
	}

	if s.counters != nil {
		for metric, n := range map[string]int{
			"enriched:" + summary.ItemType:  summary.Enriched,
			"processed:" + summary.ItemType: summary.Total,
		} {
			if n == 0 {
				continue
			}
			if err := s.counters.IncrementMetricBy(ctx, metric, int64(n)); err != nil {
				logger.Warn("Failed to increment counter", zap.String("metric", metric), zap.Error(err))
			}
		}
	}

	if summary.Total > 0 {
		summary.SuccessRate = fmt.Sprintf("%.1f%%", float64(summary.Enriched)/float64(summary.Total)*100)
	}
	summary.DurationSec = s.now().Sub(start).Seconds()

	logger.Info("Enrichment completed",
		zap.String("request_id", summary.RequestID),
		zap.Int("enriched", summary.Enriched),
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
		zap.String("success_rate", summary.SuccessRate),
	)

	return enriched, summary, nil
}

func (s *Service) runBatch(ctx context.Context, itemType skills.ItemType, items []skills.RawItem) []skills.RawItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extractor.BatchProcess(ctx, items, itemType)
}

var keywordFields = []string{
	"title", "name", "full_name", "abstract", "description", "content", "body", "selftext",
}

// prepare copies the item, fills in a stable id and computes keyword skills.
func prepare(item skills.RawItem) skills.RawItem {
	out := item.Clone()

	if strings.TrimSpace(out.Text("id")) == "" {
		out["id"] = utils.StableID(
			out.FirstText("url", "html_url", "link"),
			out.FirstText("title", "name", "full_name"),
		)
	}

	parts := make([]string, 0, len(keywordFields)+1)
	for _, f := range keywordFields {
		if v := out.Text(f); v != "" {
			parts = append(parts, v)
		}
	}
	parts = append(parts, strings.Join(out.List("topics"), " "))
	out[skills.ExtractedSkillsKey] = skills.KeywordSkills(skills.PlainText(strings.Join(parts, "\n")))

	return out
}

func itemTitle(item skills.RawItem) string {
	return item.FirstText("title", "name", "full_name")
}

func (s *Service) toModel(itemType skills.ItemType, item skills.RawItem, hasDetailed bool) *models.Item {
	payload := make(map[string]any, len(item))
	for k, v := range item {
		if k == skills.DetailedSkillsKey || k == skills.ExtractedSkillsKey {
			continue
		}
		payload[k] = v
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("Failed to marshal item payload", zap.Error(err))
		rawPayload = []byte("{}")
	}

	rawDetailed, err := json.Marshal(item[skills.DetailedSkillsKey])
	if err != nil {
		rawDetailed = []byte("{}")
	}

	extracted, _ := item[skills.ExtractedSkillsKey].([]string)

	return &models.Item{
		ID:              item.Text("id"),
		ItemType:        string(itemType),
		Title:           itemTitle(item),
		URL:             item.FirstText("url", "html_url", "link"),
		Payload:         rawPayload,
		ExtractedSkills: extracted,
		DetailedSkills:  rawDetailed,
		HasDetailed:     hasDetailed,
		CreatedAt:       s.now(),
	}
}
