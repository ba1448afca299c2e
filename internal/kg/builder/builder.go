package builder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/kg/neo4j"
	"github.com/ml-career-pulse/backend/internal/skills"
	"github.com/ml-career-pulse/backend/pkg/logger"
)

// Sink persists an item's skill mentions.
type Sink interface {
	RecordMentions(ctx context.Context, item neo4j.ItemNode, mentions []neo4j.Mention) error
}

// categories maps the skill-bearing schema fields to graph edge categories.
// Descriptive fields (use cases, problems, solutions) stay out of the graph.
var categories = map[string]string{
	"core_frameworks":    "framework",
	"ml_techniques":      "technique",
	"application_areas":  "application_area",
	"programming_skills": "programming",
	"emerging_trends":    "emerging",

	"tech_stack":    "tech_stack",
	"ml_frameworks": "framework",
	"tools":         "tool",

	"mentioned_tools": "tool",
	"trending_topics": "topic",

	"required_skills":  "required",
	"preferred_skills": "preferred",
	"focus_areas":      "focus_area",
}

type Builder struct {
	sink Sink
}

func NewBuilder(sink Sink) *Builder {
	return &Builder{sink: sink}
}

// Mentions converts an extraction result into normalized, de-duplicated
// mentions in schema order.
func Mentions(result skills.Result) []neo4j.Mention {
	mentions := []neo4j.Mention{}
	if result == nil {
		return mentions
	}

	seen := make(map[neo4j.Mention]bool)
	for _, list := range result.Lists() {
		category, ok := categories[list.Field]
		if !ok {
			continue
		}
		for _, name := range skills.NormalizeAll(list.Values) {
			m := neo4j.Mention{Skill: name, Category: category}
			if seen[m] {
				continue
			}
			seen[m] = true
			mentions = append(mentions, m)
		}
	}
	return mentions
}

// BuildFromResult records the item and its mentions. It returns the number
// of mentions written.
func (b *Builder) BuildFromResult(ctx context.Context, item neo4j.ItemNode, result skills.Result) (int, error) {
	mentions := Mentions(result)

	if err := b.sink.RecordMentions(ctx, item, mentions); err != nil {
		return 0, fmt.Errorf("failed to build skill graph for %s: %w", item.ID, err)
	}

	logger.Debug("Skill graph updated",
		zap.String("item_id", item.ID),
		zap.String("item_type", item.Type),
		zap.Int("mentions", len(mentions)),
	)
	return len(mentions), nil
}
