package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ml-career-pulse/backend/internal/kg/neo4j"
	"github.com/ml-career-pulse/backend/internal/skills"
)

type fakeSink struct {
	item     neo4j.ItemNode
	mentions []neo4j.Mention
	err      error
}

func (f *fakeSink) RecordMentions(ctx context.Context, item neo4j.ItemNode, mentions []neo4j.Mention) error {
	f.item = item
	f.mentions = mentions
	return f.err
}

func TestMentionsNormalizeAndDeduplicate(t *testing.T) {
	result := skills.PaperSkills{
		CoreFrameworks:    []string{"PyTorch", "pytorch"},
		MLTechniques:      []string{"RL", "Reinforcement Learning"},
		ApplicationAreas:  []string{"nlp"},
		ProgrammingSkills: []string{},
		EmergingTrends:    []string{"Diffusion Models"},
	}

	assert.Equal(t, []neo4j.Mention{
		{Skill: "Pytorch", Category: "framework"},
		{Skill: "Reinforcement Learning", Category: "technique"},
		{Skill: "NLP", Category: "application_area"},
		{Skill: "Diffusion", Category: "emerging"},
	}, Mentions(result))
}

func TestMentionsSkipDescriptiveFields(t *testing.T) {
	result := skills.RepoSkills{
		TechStack:      []string{"Python"},
		MLFrameworks:   []string{},
		Tools:          []string{"Docker"},
		UseCases:       []string{"text generation"},
		TargetAudience: []string{"researchers"},
		KeyFeatures:    []string{"fast"},
	}

	assert.Equal(t, []neo4j.Mention{
		{Skill: "Python", Category: "tech_stack"},
		{Skill: "Docker", Category: "tool"},
	}, Mentions(result))
	assert.Empty(t, Mentions(nil))
}

func TestBuildFromResult(t *testing.T) {
	sink := &fakeSink{}
	b := NewBuilder(sink)
	item := neo4j.ItemNode{ID: "j1", Type: "job", Title: "ML Engineer"}

	n, err := b.BuildFromResult(context.Background(), item, skills.JobSkills{
		RequiredSkills:  []string{"Python"},
		PreferredSkills: []string{"AWS"},
		Tools:           []string{},
		RoleType:        "ML Engineer",
		Seniority:       "Senior",
		FocusAreas:      []string{"MLOps"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, item, sink.item)

	sink.err = errors.New("neo4j down")
	_, err = b.BuildFromResult(context.Background(), item, skills.EmptyJobSkills())
	assert.ErrorContains(t, err, "neo4j down")
}
