package skills

import (
	"regexp"
	"strings"
)

var trailingComma = regexp.MustCompile(`,(\s*[}\]])`)

// Sanitize cleans raw model output into text that should parse as a JSON
// object: code fences and a leading "json" tag are dropped, surrounding prose
// is cut at the outermost braces, and trailing commas before a closing brace
// or bracket are removed. The result is not guaranteed to be valid.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
			lines = lines[:n-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	if strings.HasPrefix(text, "json") {
		text = strings.TrimSpace(text[len("json"):])
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return trailingComma.ReplaceAllString(text, "$1")
}

// Parseable reports whether raw model output sanitizes into a JSON object.
func Parseable(text string) bool {
	_, err := parseObject(Sanitize(text))
	return err == nil
}
