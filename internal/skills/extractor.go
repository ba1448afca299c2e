package skills

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/pkg/logger"
	"github.com/ml-career-pulse/backend/pkg/retry"
)

const (
	DefaultModelName    = "gemini-2.5-flash"
	DefaultMaxAttempts  = 3
	DefaultShortBackoff = 2 * time.Second
	DefaultLongBackoff  = 60 * time.Second

	defaultDiscussionSource = "reddit"
)

// ProgressFunc observes batch progress; done is 1-based.
type ProgressFunc func(itemType ItemType, done, total int)

type Options struct {
	ModelName string
	// RequestsPerMinute overrides the tier derived from ModelName when > 0.
	RequestsPerMinute int
	MaxAttempts       int
	ShortBackoff      time.Duration
	LongBackoff       time.Duration
	// Sleep replaces the timer-based wait used for throttling and backoff.
	Sleep      retry.SleepFunc
	OnProgress ProgressFunc
}

type PaperInput struct {
	Title    string
	Abstract string
}

type RepoInput struct {
	Name        string
	Description string
	Topics      []string
}

type DiscussionInput struct {
	Title   string
	Content string
	Source  string
}

type JobInput struct {
	Title       string
	Description string
	Company     string
}

// Extractor runs the four taxonomy extractions against one model. It holds
// no mutable state after construction and must be used from one goroutine
// at a time for the throttle to hold.
type Extractor struct {
	model        Model
	modelName    string
	configured   bool
	throttle     *Throttle
	maxAttempts  int
	shortBackoff time.Duration
	longBackoff  time.Duration
	sleep        retry.SleepFunc
	onProgress   ProgressFunc
}

func NewExtractor(model Model, opts Options) *Extractor {
	if opts.ModelName == "" {
		opts.ModelName = DefaultModelName
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.ShortBackoff <= 0 {
		opts.ShortBackoff = DefaultShortBackoff
	}
	if opts.LongBackoff <= 0 {
		opts.LongBackoff = DefaultLongBackoff
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Sleep
	}

	e := &Extractor{
		model:        model,
		modelName:    opts.ModelName,
		configured:   isConfigured(model),
		maxAttempts:  opts.MaxAttempts,
		shortBackoff: opts.ShortBackoff,
		longBackoff:  opts.LongBackoff,
		sleep:        opts.Sleep,
		onProgress:   opts.OnProgress,
	}

	if !e.configured {
		e.throttle = NewThrottle(0, opts.Sleep)
		logger.Warn("Language model not configured, detailed skill extraction disabled",
			zap.String("model", opts.ModelName),
		)
		return e
	}

	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = RequestsPerMinuteFor(opts.ModelName)
	}
	e.throttle = NewThrottle(rpm, opts.Sleep)

	logger.Info("Skill extractor initialized",
		zap.String("model", opts.ModelName),
		zap.Int("requests_per_minute", rpm),
		zap.Duration("request_delay", e.throttle.Delay()),
		zap.Int("max_attempts", opts.MaxAttempts),
	)
	return e
}

func (e *Extractor) Configured() bool {
	return e.configured
}

func (e *Extractor) ModelName() string {
	return e.modelName
}

func (e *Extractor) RequestDelay() time.Duration {
	return e.throttle.Delay()
}

func (e *Extractor) ExtractPaper(ctx context.Context, in PaperInput) PaperSkills {
	return extract(ctx, e, EmptyPaperSkills(), in.Title,
		func() string { return paperPrompt(in) }, paperFromJSON)
}

func (e *Extractor) ExtractRepo(ctx context.Context, in RepoInput) RepoSkills {
	return extract(ctx, e, EmptyRepoSkills(), in.Name,
		func() string { return repoPrompt(in) }, repoFromJSON)
}

func (e *Extractor) ExtractDiscussion(ctx context.Context, in DiscussionInput) DiscussionSkills {
	return extract(ctx, e, EmptyDiscussionSkills(), in.Title,
		func() string { return discussionPrompt(in) }, discussionFromJSON)
}

func (e *Extractor) ExtractJob(ctx context.Context, in JobInput) JobSkills {
	return extract(ctx, e, EmptyJobSkills(), in.Title,
		func() string { return jobPrompt(in) }, jobFromJSON)
}

// backoff picks the wait before the next attempt from the failure kind.
func (e *Extractor) backoff(itemType ItemType) retry.DelayFunc {
	return func(err error, attempt int) time.Duration {
		kind := Classify(err)
		wait := e.shortBackoff
		if kind == KindRateLimited {
			wait = e.longBackoff
			logger.Warn("Rate limit hit, backing off",
				zap.String("item_type", string(itemType)),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
			)
		}
		metrics.BackoffSeconds.WithLabelValues(kind.String()).Add(wait.Seconds())
		return wait
	}
}

// extract runs one extraction through cache, throttle, model, sanitizer and parser
// under the retry budget. Every failure path returns empty.
func extract[T Result](
	ctx context.Context,
	e *Extractor,
	empty T,
	label string,
	prompt func() string,
	parse func(gjson.Result) T,
) (result T) {
	itemType := empty.ItemType()
	typeLabel := string(itemType)

	if !e.configured {
		metrics.ExtractionOutcomes.WithLabelValues(typeLabel, "unconfigured").Inc()
		return empty
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Skill extraction panicked",
				zap.String("item_type", typeLabel),
				zap.String("item", preview(label)),
				zap.Any("panic", r),
			)
			metrics.ExtractionOutcomes.WithLabelValues(typeLabel, "panic").Inc()
			result = empty
		}
	}()

	payload := prompt()

	cfg := retry.Config{
		MaxAttempts: e.maxAttempts,
		RetryIf: func(err error) bool {
			return ctx.Err() == nil && Classify(err) != KindUnconfigured
		},
		Delay:  e.backoff(itemType),
		Sleep:  e.sleep,
		Logger: logger.GetLogger(),
	}

	parsed, err := retry.DoWithResult(ctx, cfg, func() (T, error) {
		text, err := e.generate(ctx, typeLabel, payload)
		if err != nil {
			return empty, err
		}

		obj, err := parseObject(Sanitize(text))
		if err != nil {
			metrics.ExtractionErrors.WithLabelValues(typeLabel, KindMalformed.String()).Inc()
			return empty, err
		}
		return parse(obj), nil
	})
	if err != nil {
		logger.Error("Skill extraction failed, using empty result",
			zap.String("item_type", typeLabel),
			zap.String("item", preview(label)),
			zap.String("kind", Classify(err).String()),
			zap.Error(err),
		)
		metrics.ExtractionOutcomes.WithLabelValues(typeLabel, "exhausted").Inc()
		return empty
	}

	logger.Debug("Skill extraction succeeded",
		zap.String("item_type", typeLabel),
		zap.String("item", preview(label)),
	)
	metrics.ExtractionOutcomes.WithLabelValues(typeLabel, "success").Inc()
	return parsed
}

// generate answers from the model's own cache when it has one. A hit skips
// the throttle and does not count as an attempt.
func (e *Extractor) generate(ctx context.Context, typeLabel, payload string) (string, error) {
	if m, ok := e.model.(lookuper); ok {
		if text, hit := m.Lookup(ctx, payload); hit {
			return text, nil
		}
	}

	if err := e.throttle.Wait(ctx); err != nil {
		return "", err
	}

	metrics.ExtractionAttempts.WithLabelValues(typeLabel).Inc()
	text, err := e.model.Generate(ctx, payload)
	if err != nil {
		metrics.ExtractionErrors.WithLabelValues(typeLabel, Classify(err).String()).Inc()
		return "", err
	}
	return text, nil
}

func preview(s string) string {
	const n = 50
	if short := truncateRunes(s, n); short != s {
		return fmt.Sprintf("%s...", short)
	}
	return s
}
