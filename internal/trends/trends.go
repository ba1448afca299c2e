// Package trends aggregates extracted skills into ranked, read-time views.
// Names are canonicalized with skills.NormalizeSkillName before counting.
package trends

import (
	"fmt"
	"math"
	"sort"

	"github.com/ml-career-pulse/backend/internal/skills"
)

const (
	DefaultMarketLimit   = 15
	DefaultTrendingLimit = 20
	DefaultDetailedLimit = 10
	recommendationSize   = 3
)

type SkillStat struct {
	Skill      string `json:"skill"`
	Mentions   int    `json:"mentions"`
	Prevalence string `json:"prevalence,omitempty"`
	Rank       int    `json:"rank"`
}

type Recommendation struct {
	LearnNow     []string `json:"learn_now"`
	Watch        []string `json:"watch"`
	StableDemand []string `json:"stable_demand"`
}

type MarketReport struct {
	PapersAnalyzed            int            `json:"papers_analyzed"`
	InDemandFrameworks        []SkillStat    `json:"in_demand_frameworks"`
	TrendingTechniques        []SkillStat    `json:"trending_techniques"`
	HotApplicationAreas       []SkillStat    `json:"hot_application_areas"`
	RequiredProgrammingSkills []SkillStat    `json:"required_programming_skills"`
	EmergingTrends            []SkillStat    `json:"emerging_trends"`
	Recommendation            Recommendation `json:"recommendation"`
}

type FieldRanking struct {
	Field string      `json:"field"`
	Top   []SkillStat `json:"top"`
}

type Breakdown struct {
	ItemType         string         `json:"item_type"`
	ItemsAnalyzed    int            `json:"items_analyzed"`
	ItemsWithDetails int            `json:"items_with_detailed_extraction"`
	SuccessRate      string         `json:"extraction_success_rate"`
	Fields           []FieldRanking `json:"fields"`
}

// counter counts names and remembers first-seen order for ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(names ...string) {
	for _, n := range names {
		if _, ok := c.counts[n]; !ok {
			c.order = append(c.order, n)
		}
		c.counts[n]++
	}
}

// top returns up to limit names by count desc, first-seen order on ties.
func (c *counter) top(limit int) []string {
	names := make([]string, len(c.order))
	copy(names, c.order)

	sort.SliceStable(names, func(i, j int) bool {
		return c.counts[names[i]] > c.counts[names[j]]
	})

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

// stats ranks the counter. total > 0 adds a prevalence percentage.
func (c *counter) stats(limit, total int) []SkillStat {
	out := []SkillStat{}
	for i, name := range c.top(limit) {
		s := SkillStat{Skill: name, Mentions: c.counts[name], Rank: i + 1}
		if total > 0 {
			s.Prevalence = percent(c.counts[name], total)
		}
		out = append(out, s)
	}
	return out
}

func percent(n, total int) string {
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

// MarketReady ranks the normalized paper skills per category and derives a
// learning recommendation from the top entries.
func MarketReady(papers []skills.PaperSkills, limit int) MarketReport {
	if limit <= 0 {
		limit = DefaultMarketLimit
	}

	frameworks, techniques, areas := newCounter(), newCounter(), newCounter()
	programming, emerging := newCounter(), newCounter()

	for _, p := range papers {
		frameworks.add(skills.NormalizeAll(p.CoreFrameworks)...)
		techniques.add(skills.NormalizeAll(p.MLTechniques)...)
		areas.add(skills.NormalizeAll(p.ApplicationAreas)...)
		programming.add(skills.NormalizeAll(p.ProgrammingSkills)...)
		emerging.add(skills.NormalizeAll(p.EmergingTrends)...)
	}

	total := len(papers)
	return MarketReport{
		PapersAnalyzed:            total,
		InDemandFrameworks:        frameworks.stats(limit, total),
		TrendingTechniques:        techniques.stats(limit, total),
		HotApplicationAreas:       areas.stats(limit, total),
		RequiredProgrammingSkills: programming.stats(limit, total),
		EmergingTrends:            emerging.stats(limit, total),
		Recommendation: Recommendation{
			LearnNow:     frameworks.top(recommendationSize),
			Watch:        emerging.top(recommendationSize),
			StableDemand: techniques.top(recommendationSize),
		},
	}
}

// Trending ranks keyword skills across items. Keyword names are already
// canonical so they are counted as-is.
func Trending(skillLists [][]string, limit int) []SkillStat {
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}

	c := newCounter()
	for _, list := range skillLists {
		c.add(list...)
	}
	return c.stats(limit, 0)
}

// DetailedBreakdown ranks every list field of the results. Nil results
// count as items without detail.
func DetailedBreakdown(itemType skills.ItemType, results []skills.Result, limit int) Breakdown {
	if limit <= 0 {
		limit = DefaultDetailedLimit
	}

	b := Breakdown{
		ItemType:      string(itemType),
		ItemsAnalyzed: len(results),
		SuccessRate:   "0%",
		Fields:        []FieldRanking{},
	}

	var fields []string
	counters := make(map[string]*counter)

	for _, r := range results {
		if r == nil {
			continue
		}
		if !r.IsEmpty() {
			b.ItemsWithDetails++
		}
		for _, list := range r.Lists() {
			c, ok := counters[list.Field]
			if !ok {
				c = newCounter()
				counters[list.Field] = c
				fields = append(fields, list.Field)
			}
			c.add(skills.NormalizeAll(list.Values)...)
		}
	}

	if b.ItemsAnalyzed > 0 {
		b.SuccessRate = percent(b.ItemsWithDetails, b.ItemsAnalyzed)
	}
	for _, f := range fields {
		b.Fields = append(b.Fields, FieldRanking{Field: f, Top: counters[f].stats(limit, 0)})
	}
	return b
}

var sourceWeights = []struct {
	source string
	weight float64
}{
	{"papers", 0.3},
	{"github", 0.25},
	{"jobs", 0.35},
	{"reddit", 0.1},
}

// TrendScore weights per-source mention counts and rounds to two decimals.
// Sources without a weight contribute nothing.
func TrendScore(mentions map[string]int) float64 {
	score := 0.0
	for _, w := range sourceWeights {
		score += float64(mentions[w.source]) * w.weight
	}
	return math.Round(score*100) / 100
}
