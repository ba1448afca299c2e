package skills

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfiguredModelReturnsEmptySchemas(t *testing.T) {
	ctx := context.Background()

	models := map[string]*stubModel{
		"nil model":       nil,
		"missing api key": {unconfigured: true},
	}

	for name, stub := range models {
		t.Run(name, func(t *testing.T) {
			sleeper := &recordingSleeper{}
			var model Model
			if stub != nil {
				model = stub
			}
			e := newTestExtractor(model, sleeper)

			assert.False(t, e.Configured())
			assert.Zero(t, e.RequestDelay())
			assert.Equal(t, EmptyPaperSkills(), e.ExtractPaper(ctx, PaperInput{Title: "t", Abstract: "a"}))
			assert.Equal(t, EmptyRepoSkills(), e.ExtractRepo(ctx, RepoInput{Name: "n"}))
			assert.Equal(t, EmptyDiscussionSkills(), e.ExtractDiscussion(ctx, DiscussionInput{Title: "t"}))
			assert.Equal(t, EmptyJobSkills(), e.ExtractJob(ctx, JobInput{Title: "t"}))

			if stub != nil {
				assert.Equal(t, 0, stub.calls())
			}
			assert.Empty(t, sleeper.waits)
		})
	}
}

func TestExtractPaperEndToEnd(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: replyWith("```json\n" +
		`{"core_frameworks": ["PyTorch"], "ml_techniques": ["Transformer Architecture"],}` +
		"\n```")}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractPaper(context.Background(), PaperInput{
		Title:    "Attention Is All You Need",
		Abstract: "The dominant sequence transduction models are based on complex recurrent networks.",
	})

	assert.Equal(t, PaperSkills{
		CoreFrameworks:    []string{"PyTorch"},
		MLTechniques:      []string{"Transformer Architecture"},
		ApplicationAreas:  []string{},
		ProgrammingSkills: []string{},
		EmergingTrends:    []string{},
	}, got)
	assert.Equal(t, 1, stub.calls())
	assert.Contains(t, stub.prompts[0], "Title: Attention Is All You Need")
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.waits)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	for _, key := range []string{"core_frameworks", "ml_techniques", "application_areas", "programming_skills", "emerging_trends"} {
		assert.Contains(t, string(raw), `"`+key+`":[`)
	}
}

func TestRateLimitExhaustsRetryBudget(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: func(int, string) (string, error) {
		return "", errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota).")
	}}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractRepo(context.Background(), RepoInput{Name: "karpathy/nanoGPT"})

	assert.Equal(t, EmptyRepoSkills(), got)
	assert.Equal(t, 3, stub.calls())
	assert.Equal(t, []time.Duration{
		4 * time.Second, 60 * time.Second,
		4 * time.Second, 60 * time.Second,
		4 * time.Second,
	}, sleeper.waits)
	assert.GreaterOrEqual(t, sleeper.total()-3*e.RequestDelay(), 2*time.Minute)
}

func TestMalformedResponseRetriesWithShortBackoff(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: func(call int, _ string) (string, error) {
		if call == 1 {
			return "I could not find any skills in this text.", nil
		}
		return `{"mentioned_tools": ["LangChain", "Ollama"], "sentiment": "Positive"}`, nil
	}}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractDiscussion(context.Background(), DiscussionInput{Title: "Local LLM setups"})

	assert.Equal(t, []string{"LangChain", "Ollama"}, got.MentionedTools)
	assert.Equal(t, SentimentPositive, got.Sentiment)
	assert.Equal(t, []string{}, got.ProblemsDiscussed)
	assert.Equal(t, 2, stub.calls())
	assert.Equal(t, []time.Duration{4 * time.Second, 2 * time.Second, 4 * time.Second}, sleeper.waits)
}

func TestNonObjectResponseIsMalformed(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: replyWith(`["PyTorch", "JAX"]`)}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractPaper(context.Background(), PaperInput{Title: "t"})

	assert.Equal(t, EmptyPaperSkills(), got)
	assert.Equal(t, 3, stub.calls())
	assert.Equal(t, []time.Duration{
		4 * time.Second, 2 * time.Second,
		4 * time.Second, 2 * time.Second,
		4 * time.Second,
	}, sleeper.waits)
}

func TestTransientErrorThenSuccess(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: func(call int, _ string) (string, error) {
		if call < 3 {
			return "", errors.New("connection reset by peer")
		}
		return `{"required_skills": ["Python"]}`, nil
	}}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractJob(context.Background(), JobInput{Title: "ML Engineer"})

	assert.Equal(t, []string{"Python"}, got.RequiredSkills)
	assert.Equal(t, "Unknown", got.RoleType)
	assert.Equal(t, 3, stub.calls())
	assert.Equal(t, []time.Duration{
		4 * time.Second, 2 * time.Second,
		4 * time.Second, 2 * time.Second,
		4 * time.Second,
	}, sleeper.waits)
}

func TestUnconfiguredErrorIsNotRetried(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: func(int, string) (string, error) {
		return "", ErrUnconfigured
	}}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractPaper(context.Background(), PaperInput{Title: "t"})

	assert.Equal(t, EmptyPaperSkills(), got)
	assert.Equal(t, 1, stub.calls())
}

func TestCancelledContextSkipsModel(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{}
	e := newTestExtractor(stub, sleeper)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, EmptyJobSkills(), e.ExtractJob(ctx, JobInput{Title: "t"}))
	assert.Equal(t, 0, stub.calls())
}

func TestModelPanicDegradesToEmpty(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: func(int, string) (string, error) {
		panic("client exploded")
	}}
	e := newTestExtractor(stub, sleeper)

	assert.Equal(t, EmptyDiscussionSkills(), e.ExtractDiscussion(context.Background(), DiscussionInput{Title: "t"}))
}

func TestResponseCoercion(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: replyWith(`{
		"required_skills": ["Python", null, "", "  PyTorch  ", 5],
		"preferred_skills": null,
		"tools": "Docker",
		"role_type": ["ML Engineer", "Data Scientist"],
		"seniority": false,
		"salary": "$200k"
	}`)}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractJob(context.Background(), JobInput{Title: "ML Engineer"})

	assert.Equal(t, JobSkills{
		RequiredSkills:  []string{"Python", "PyTorch", "5"},
		PreferredSkills: []string{},
		Tools:           []string{"Docker"},
		RoleType:        "ML Engineer",
		Seniority:       "Unknown",
		FocusAreas:      []string{},
	}, got)
}

func TestUnknownSentimentFallsBackToNeutral(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{reply: replyWith(`{"sentiment": "ecstatic"}`)}
	e := newTestExtractor(stub, sleeper)

	got := e.ExtractDiscussion(context.Background(), DiscussionInput{Title: "t"})
	assert.Equal(t, SentimentNeutral, got.Sentiment)
	assert.True(t, got.IsEmpty())
}

func TestPromptTruncation(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{}
	e := newTestExtractor(stub, sleeper)
	ctx := context.Background()

	e.ExtractJob(ctx, JobInput{Title: "t", Description: strings.Repeat("é", 2000)})
	e.ExtractDiscussion(ctx, DiscussionInput{Title: "t", Content: strings.Repeat("ß", 1200)})

	require.Equal(t, 2, stub.calls())
	assert.Equal(t, 1500, strings.Count(stub.prompts[0], "é"))
	assert.Equal(t, 1000, strings.Count(stub.prompts[1], "ß"))
}

func TestPromptDetails(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &stubModel{}
	e := newTestExtractor(stub, sleeper)
	ctx := context.Background()

	e.ExtractRepo(ctx, RepoInput{Name: "vllm", Description: "fast inference"})
	e.ExtractRepo(ctx, RepoInput{Name: "vllm", Topics: []string{"llm", "inference"}})
	e.ExtractDiscussion(ctx, DiscussionInput{Title: "t", Content: "<p>Using <b>LangChain</b> daily</p>"})
	e.ExtractJob(ctx, JobInput{Title: "Research Scientist", Company: "Acme"})

	require.Equal(t, 4, stub.calls())
	assert.Contains(t, stub.prompts[0], "Topics: None")
	assert.Contains(t, stub.prompts[1], "Topics: llm, inference")
	assert.Contains(t, stub.prompts[2], "Analyze this reddit discussion")
	assert.Contains(t, stub.prompts[2], "Content: Using LangChain daily")
	assert.Contains(t, stub.prompts[3], "Company: Acme")
}

func TestRequestsPerMinuteOverride(t *testing.T) {
	sleeper := &recordingSleeper{}
	e := NewExtractor(&stubModel{}, Options{
		ModelName:         "gemini-2.0-flash",
		RequestsPerMinute: 30,
		Sleep:             sleeper.sleep,
	})

	assert.Equal(t, 2*time.Second, e.RequestDelay())
}

type cachingStub struct {
	stubModel
	cached map[string]string
}

func (c *cachingStub) Lookup(ctx context.Context, prompt string) (string, bool) {
	text, ok := c.cached[prompt]
	return text, ok
}

func TestCacheHitSkipsThrottle(t *testing.T) {
	sleeper := &recordingSleeper{}
	stub := &cachingStub{
		stubModel: stubModel{reply: replyWith(`{"tools": ["Docker"]}`)},
		cached:    map[string]string{},
	}
	e := newTestExtractor(stub, sleeper)
	in := RepoInput{Name: "compose", Description: "container tooling"}

	first := e.ExtractRepo(context.Background(), in)
	assert.Equal(t, []string{"Docker"}, first.Tools)
	require.Equal(t, 1, stub.calls())
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.waits)

	stub.cached[stub.prompts[0]] = `{"tools": ["Docker", "Podman"]}`

	second := e.ExtractRepo(context.Background(), in)
	assert.Equal(t, []string{"Docker", "Podman"}, second.Tools)
	assert.Equal(t, 1, stub.calls())
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeper.waits)
}

func TestDecodeResultReadsSchemaFields(t *testing.T) {
	job := DecodeResult(ItemJob, []byte(`{
		"required_skills": ["Python", " ", null],
		"tools": "Docker",
		"role_type": ["ML Engineer", "Researcher"],
		"focus_areas": false
	}`))
	require.NotNil(t, job)
	assert.Equal(t, JobSkills{
		RequiredSkills:  []string{"Python"},
		PreferredSkills: []string{},
		Tools:           []string{"Docker"},
		RoleType:        "ML Engineer",
		Seniority:       unknownScalar,
		FocusAreas:      []string{},
	}, job)

	paper := DecodeResult(ItemPaper, []byte(`{"core_frameworks": ["JAX"], "emerging_trends": ["MoE"]}`))
	require.NotNil(t, paper)
	assert.Equal(t, []string{"JAX", "MoE"}, paper.SkillNames())

	assert.Nil(t, DecodeResult(ItemPaper, []byte(`not json`)))
	assert.Nil(t, DecodeResult(ItemType("podcast"), []byte(`{}`)))
}
