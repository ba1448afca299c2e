package skills

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// canonicalNames maps lower-cased variants to their display form.
var canonicalNames = map[string]string{
	"natural language processing":       "NLP",
	"natural language processing (nlp)": "NLP",
	"nlp":                               "NLP",

	"large language models":        "Large Language Models",
	"large language models (llms)": "Large Language Models",
	"llms":                         "Large Language Models",

	"computer vision": "Computer Vision",
	"cv":              "Computer Vision",

	"reinforcement learning": "Reinforcement Learning",
	"rl":                     "Reinforcement Learning",

	"machine learning": "Machine Learning",
	"ml":               "Machine Learning",

	"deep learning": "Deep Learning",
	"dl":            "Deep Learning",

	"transformer architecture": "Transformer Architecture",
	"transformers":             "Transformer Architecture",
}

// genericSuffixes are dropped from names that have no canonical entry.
var genericSuffixes = []string{
	" models",
	" (nlp)",
	" (llms)",
	" (cv)",
	" (rl)",
	" (ml)",
}

// NormalizeSkillName maps a free-text skill name to its canonical display
// form. It is pure and idempotent; empty input yields "".
func NormalizeSkillName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if canonical, ok := canonicalNames[strings.ToLower(name)]; ok {
		if canonical == "" {
			return name
		}
		return canonical
	}

	for _, suffix := range genericSuffixes {
		if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
			// The remainder goes through the same rules so a second pass
			// lands on the same value. Acronyms are title-cased as a result.
			return NormalizeSkillName(name[:len(name)-len(suffix)])
		}
	}

	// Caser is stateful, so one per call.
	return cases.Title(language.Und).String(name)
}

// NormalizeAll normalizes every name and drops those that end up empty.
func NormalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if norm := NormalizeSkillName(n); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}
