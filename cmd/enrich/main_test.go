package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-career-pulse/backend/internal/skills"
)

func TestParseItemsYAMLList(t *testing.T) {
	items, err := parseItems([]byte(`
- title: Attention Is All You Need
  abstract: We propose the Transformer.
- title: LoRA
  topics: [fine-tuning, llm]
`))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Attention Is All You Need", items[0].Text("title"))
	assert.Equal(t, []string{"fine-tuning", "llm"}, items[1].List("topics"))
}

func TestParseItemsJSONDocument(t *testing.T) {
	items, err := parseItems([]byte(`{"items": [{"name": "vllm", "stars": 1200}]}`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "vllm", items[0].Text("name"))
}

func TestParseItemsInvalid(t *testing.T) {
	_, err := parseItems([]byte("items: [unterminated"))
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	err := writeOutput(path, output{
		Summary: map[string]int{"total": 1},
		Items:   []skills.RawItem{{"title": "x", skills.ExtractedSkillsKey: []string{}}},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(1), decoded["summary"].(map[string]any)["total"])
	assert.Len(t, decoded["items"], 1)
}
