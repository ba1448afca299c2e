package skills

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

const (
	DetailedSkillsKey  = "detailed_skills"
	ExtractedSkillsKey = "extracted_skills"

	progressEvery = 10
)

// RawItem is one scraped record keyed by source field name.
type RawItem map[string]any

// Clone returns a shallow copy so annotations never touch the caller's map.
func (r RawItem) Clone() RawItem {
	out := make(RawItem, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Text returns the field as text; missing and nil fields are "".
func (r RawItem) Text(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// FirstText returns the first non-blank field among keys.
func (r RawItem) FirstText(keys ...string) string {
	for _, k := range keys {
		if s := r.Text(k); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// List returns a list field. A bare string is treated as one element.
func (r RawItem) List(key string) []string {
	out := []string{}
	switch v := r[key].(type) {
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, el := range v {
			if el == nil {
				continue
			}
			if s := fmt.Sprint(el); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
	case string:
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// Extract runs the extractor matching itemType over one raw item. It returns
// nil for an unknown type.
func (e *Extractor) Extract(ctx context.Context, itemType ItemType, item RawItem) Result {
	switch itemType {
	case ItemPaper:
		return e.ExtractPaper(ctx, PaperInput{
			Title:    item.Text("title"),
			Abstract: item.Text("abstract"),
		})
	case ItemRepo:
		return e.ExtractRepo(ctx, RepoInput{
			Name:        item.FirstText("name", "full_name"),
			Description: item.Text("description"),
			Topics:      item.List("topics"),
		})
	case ItemDiscussion:
		source := item.Text("source")
		if source == "" {
			source = defaultDiscussionSource
		}
		return e.ExtractDiscussion(ctx, DiscussionInput{
			Title:   item.Text("title"),
			Content: item.FirstText("content", "body", "selftext"),
			Source:  source,
		})
	case ItemJob:
		return e.ExtractJob(ctx, JobInput{
			Title:       item.Text("title"),
			Description: item.Text("description"),
			Company:     item.Text("company"),
		})
	}
	return nil
}

// BatchProcess annotates every item with its detailed_skills in input order.
// Items are processed one at a time. The input maps are not modified; the
// returned slice holds copies carrying the annotation. An unknown itemType
// yields an empty untyped annotation on every item.
func (e *Extractor) BatchProcess(ctx context.Context, items []RawItem, itemType ItemType) []RawItem {
	out := make([]RawItem, 0, len(items))
	if len(items) == 0 {
		return out
	}

	total := len(items)
	known := itemType.Valid()

	logger.Info("Starting batch skill extraction",
		zap.Int("total", total),
		zap.String("item_type", string(itemType)),
	)
	switch {
	case !known:
		logger.Warn("Unknown item type, annotating with empty results",
			zap.String("item_type", string(itemType)),
			zap.Int("total", total),
		)
	case e.configured:
		logger.Info("Estimated batch duration",
			zap.Duration("estimated", e.throttle.Delay()*time.Duration(total)),
		)
	default:
		logger.Warn("Language model not available, skipping detailed extraction")
	}

	for i, item := range items {
		n := i + 1
		if n == 1 || n%progressEvery == 0 {
			logger.Info("Processing item",
				zap.Int("index", n),
				zap.Int("total", total),
				zap.Int("percent", n*100/total),
			)
			if e.onProgress != nil {
				e.onProgress(itemType, n, total)
			}
		}

		enriched := item.Clone()
		if !known {
			enriched[DetailedSkillsKey] = map[string]any{}
		} else {
			enriched[DetailedSkillsKey] = e.extractSafely(ctx, itemType, item, n)
		}
		out = append(out, enriched)
		metrics.BatchItems.WithLabelValues(string(itemType)).Inc()
	}

	logger.Info("Completed batch skill extraction",
		zap.Int("total", len(out)),
		zap.String("item_type", string(itemType)),
	)
	return out
}

func (e *Extractor) extractSafely(ctx context.Context, itemType ItemType, item RawItem, index int) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Error processing item",
				zap.Int("index", index),
				zap.String("item_type", string(itemType)),
				zap.Any("panic", r),
			)
			result = EmptyResult(itemType)
		}
	}()
	return e.Extract(ctx, itemType, item)
}
