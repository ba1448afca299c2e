package skills

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ItemType tags the source an item came from and selects its schema.
type ItemType string

const (
	ItemPaper      ItemType = "paper"
	ItemRepo       ItemType = "repo"
	ItemDiscussion ItemType = "discussion"
	ItemJob        ItemType = "job"
)

var ItemTypes = []ItemType{ItemPaper, ItemRepo, ItemDiscussion, ItemJob}

func (t ItemType) Valid() bool {
	switch t {
	case ItemPaper, ItemRepo, ItemDiscussion, ItemJob:
		return true
	}
	return false
}

// Result is implemented by the four extraction schemas.
type Result interface {
	ItemType() ItemType
	// IsEmpty reports whether no list field carries a value.
	IsEmpty() bool
	// SkillNames flattens the skill-bearing list fields in schema order.
	SkillNames() []string
	// Lists returns every list field in schema order.
	Lists() []FieldValues
}

// FieldValues is one list field of a schema, keyed by its JSON name.
type FieldValues struct {
	Field  string
	Values []string
}

type PaperSkills struct {
	CoreFrameworks    []string `json:"core_frameworks"`
	MLTechniques      []string `json:"ml_techniques"`
	ApplicationAreas  []string `json:"application_areas"`
	ProgrammingSkills []string `json:"programming_skills"`
	EmergingTrends    []string `json:"emerging_trends"`
}

type RepoSkills struct {
	TechStack      []string `json:"tech_stack"`
	MLFrameworks   []string `json:"ml_frameworks"`
	Tools          []string `json:"tools"`
	UseCases       []string `json:"use_cases"`
	TargetAudience []string `json:"target_audience"`
	KeyFeatures    []string `json:"key_features"`
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment accepts the four enum values case-insensitively and falls
// back to neutral for anything else.
func ParseSentiment(s string) Sentiment {
	switch v := Sentiment(strings.ToLower(strings.TrimSpace(s))); v {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return v
	}
	return SentimentNeutral
}

type DiscussionSkills struct {
	MentionedTools     []string  `json:"mentioned_tools"`
	ProblemsDiscussed  []string  `json:"problems_discussed"`
	SolutionsSuggested []string  `json:"solutions_suggested"`
	TrendingTopics     []string  `json:"trending_topics"`
	Sentiment          Sentiment `json:"sentiment"`
}

const unknownScalar = "Unknown"

type JobSkills struct {
	RequiredSkills  []string `json:"required_skills"`
	PreferredSkills []string `json:"preferred_skills"`
	Tools           []string `json:"tools"`
	RoleType        string   `json:"role_type"`
	Seniority       string   `json:"seniority"`
	FocusAreas      []string `json:"focus_areas"`
}

func EmptyPaperSkills() PaperSkills {
	return PaperSkills{
		CoreFrameworks:    []string{},
		MLTechniques:      []string{},
		ApplicationAreas:  []string{},
		ProgrammingSkills: []string{},
		EmergingTrends:    []string{},
	}
}

func EmptyRepoSkills() RepoSkills {
	return RepoSkills{
		TechStack:      []string{},
		MLFrameworks:   []string{},
		Tools:          []string{},
		UseCases:       []string{},
		TargetAudience: []string{},
		KeyFeatures:    []string{},
	}
}

func EmptyDiscussionSkills() DiscussionSkills {
	return DiscussionSkills{
		MentionedTools:     []string{},
		ProblemsDiscussed:  []string{},
		SolutionsSuggested: []string{},
		TrendingTopics:     []string{},
		Sentiment:          SentimentNeutral,
	}
}

func EmptyJobSkills() JobSkills {
	return JobSkills{
		RequiredSkills:  []string{},
		PreferredSkills: []string{},
		Tools:           []string{},
		RoleType:        unknownScalar,
		Seniority:       unknownScalar,
		FocusAreas:      []string{},
	}
}

// EmptyResult returns the empty schema for t, or nil for an unknown type.
func EmptyResult(t ItemType) Result {
	switch t {
	case ItemPaper:
		return EmptyPaperSkills()
	case ItemRepo:
		return EmptyRepoSkills()
	case ItemDiscussion:
		return EmptyDiscussionSkills()
	case ItemJob:
		return EmptyJobSkills()
	}
	return nil
}

func (PaperSkills) ItemType() ItemType      { return ItemPaper }
func (RepoSkills) ItemType() ItemType       { return ItemRepo }
func (DiscussionSkills) ItemType() ItemType { return ItemDiscussion }
func (JobSkills) ItemType() ItemType        { return ItemJob }

func (p PaperSkills) IsEmpty() bool { return len(p.SkillNames()) == 0 }
func (r RepoSkills) IsEmpty() bool  { return len(r.SkillNames()) == 0 }

func (d DiscussionSkills) IsEmpty() bool {
	return allEmpty(d.MentionedTools, d.ProblemsDiscussed, d.SolutionsSuggested, d.TrendingTopics)
}

func (j JobSkills) IsEmpty() bool { return len(j.SkillNames()) == 0 }

func (p PaperSkills) SkillNames() []string {
	return concat(p.CoreFrameworks, p.MLTechniques, p.ApplicationAreas, p.ProgrammingSkills, p.EmergingTrends)
}

func (r RepoSkills) SkillNames() []string {
	return concat(r.TechStack, r.MLFrameworks, r.Tools)
}

func (d DiscussionSkills) SkillNames() []string {
	return concat(d.MentionedTools, d.TrendingTopics)
}

func (j JobSkills) SkillNames() []string {
	return concat(j.RequiredSkills, j.PreferredSkills, j.Tools, j.FocusAreas)
}

func (p PaperSkills) Lists() []FieldValues {
	return []FieldValues{
		{"core_frameworks", p.CoreFrameworks},
		{"ml_techniques", p.MLTechniques},
		{"application_areas", p.ApplicationAreas},
		{"programming_skills", p.ProgrammingSkills},
		{"emerging_trends", p.EmergingTrends},
	}
}

func (r RepoSkills) Lists() []FieldValues {
	return []FieldValues{
		{"tech_stack", r.TechStack},
		{"ml_frameworks", r.MLFrameworks},
		{"tools", r.Tools},
		{"use_cases", r.UseCases},
		{"target_audience", r.TargetAudience},
		{"key_features", r.KeyFeatures},
	}
}

func (d DiscussionSkills) Lists() []FieldValues {
	return []FieldValues{
		{"mentioned_tools", d.MentionedTools},
		{"problems_discussed", d.ProblemsDiscussed},
		{"solutions_suggested", d.SolutionsSuggested},
		{"trending_topics", d.TrendingTopics},
	}
}

func (j JobSkills) Lists() []FieldValues {
	return []FieldValues{
		{"required_skills", j.RequiredSkills},
		{"preferred_skills", j.PreferredSkills},
		{"tools", j.Tools},
		{"focus_areas", j.FocusAreas},
	}
}

// DecodeResult parses a stored detailed_skills document for itemType with
// the same coercion rules as model output. Unknown types and unparseable
// documents yield nil.
func DecodeResult(itemType ItemType, raw []byte) Result {
	obj, err := parseObject(string(raw))
	if err != nil {
		return nil
	}
	switch itemType {
	case ItemPaper:
		return paperFromJSON(obj)
	case ItemRepo:
		return repoFromJSON(obj)
	case ItemDiscussion:
		return discussionFromJSON(obj)
	case ItemJob:
		return jobFromJSON(obj)
	}
	return nil
}

func concat(lists ...[]string) []string {
	out := []string{}
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

func allEmpty(lists ...[]string) bool {
	for _, l := range lists {
		if len(l) > 0 {
			return false
		}
	}
	return true
}

// parseObject is the parse boundary: sanitized text must be a JSON object.
func parseObject(text string) (gjson.Result, error) {
	if !gjson.Valid(text) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	obj := gjson.Parse(text)
	if !obj.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: response is not an object", ErrMalformed)
	}
	return obj, nil
}

// stringList coerces a field to a list of trimmed, non-empty strings. A bare
// scalar becomes a one-element list; null, false and missing become empty.
func stringList(obj gjson.Result, field string) []string {
	out := []string{}
	v := obj.Get(field)
	if !v.Exists() {
		return out
	}

	values := []gjson.Result{v}
	if v.IsArray() {
		values = v.Array()
	}
	for _, el := range values {
		if s := elementString(el); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scalar coerces a field to one string, taking the first element of a list.
func scalar(obj gjson.Result, field, fallback string) string {
	list := stringList(obj, field)
	if len(list) == 0 {
		return fallback
	}
	return list[0]
}

func elementString(el gjson.Result) string {
	switch el.Type {
	case gjson.Null, gjson.False:
		return ""
	case gjson.JSON:
		return strings.TrimSpace(el.Raw)
	}
	return strings.TrimSpace(el.String())
}

func paperFromJSON(obj gjson.Result) PaperSkills {
	return PaperSkills{
		CoreFrameworks:    stringList(obj, "core_frameworks"),
		MLTechniques:      stringList(obj, "ml_techniques"),
		ApplicationAreas:  stringList(obj, "application_areas"),
		ProgrammingSkills: stringList(obj, "programming_skills"),
		EmergingTrends:    stringList(obj, "emerging_trends"),
	}
}

func repoFromJSON(obj gjson.Result) RepoSkills {
	return RepoSkills{
		TechStack:      stringList(obj, "tech_stack"),
		MLFrameworks:   stringList(obj, "ml_frameworks"),
		Tools:          stringList(obj, "tools"),
		UseCases:       stringList(obj, "use_cases"),
		TargetAudience: stringList(obj, "target_audience"),
		KeyFeatures:    stringList(obj, "key_features"),
	}
}

func discussionFromJSON(obj gjson.Result) DiscussionSkills {
	return DiscussionSkills{
		MentionedTools:     stringList(obj, "mentioned_tools"),
		ProblemsDiscussed:  stringList(obj, "problems_discussed"),
		SolutionsSuggested: stringList(obj, "solutions_suggested"),
		TrendingTopics:     stringList(obj, "trending_topics"),
		Sentiment:          ParseSentiment(scalar(obj, "sentiment", string(SentimentNeutral))),
	}
}

func jobFromJSON(obj gjson.Result) JobSkills {
	return JobSkills{
		RequiredSkills:  stringList(obj, "required_skills"),
		PreferredSkills: stringList(obj, "preferred_skills"),
		Tools:           stringList(obj, "tools"),
		RoleType:        scalar(obj, "role_type", unknownScalar),
		Seniority:       scalar(obj, "seniority", unknownScalar),
		FocusAreas:      stringList(obj, "focus_areas"),
	}
}
