package skills

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFencedTrailingComma(t *testing.T) {
	cleaned := Sanitize("```json\n{\"a\": [1,2,]}\n```")

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(cleaned), &got))
	assert.Equal(t, map[string]any{"a": []any{1.0, 2.0}}, got)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "fence without language tag",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "bare json tag",
			in:   "json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "surrounding prose",
			in:   "Here is the result:\n{\"a\": {\"b\": 2}}\nHope this helps!",
			want: `{"a": {"b": 2}}`,
		},
		{
			name: "trailing comma before brace",
			in:   "{\"a\": 1,\n}",
			want: "{\"a\": 1\n}",
		},
		{
			name: "nested trailing commas",
			in:   `{"a": ["x", "y", ], "b": {"c": 1, }, }`,
			want: `{"a": ["x", "y" ], "b": {"c": 1 } }`,
		},
		{
			name: "no braces left alone",
			in:   "  sorry, I cannot help  ",
			want: "sorry, I cannot help",
		},
		{
			name: "unclosed fence",
			in:   "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
