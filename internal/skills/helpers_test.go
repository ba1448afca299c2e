package skills

import (
	"context"
	"sync"
	"time"
)

type stubModel struct {
	mu           sync.Mutex
	unconfigured bool
	reply        func(call int, prompt string) (string, error)
	prompts      []string
}

func (s *stubModel) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	call := len(s.prompts)
	s.mu.Unlock()

	if s.reply == nil {
		return "{}", nil
	}
	return s.reply(call, prompt)
}

func (s *stubModel) Configured() bool {
	return !s.unconfigured
}

func (s *stubModel) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func replyWith(text string) func(int, string) (string, error) {
	return func(int, string) (string, error) { return text, nil }
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.waits = append(r.waits, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, w := range r.waits {
		sum += w
	}
	return sum
}

func newTestExtractor(model Model, sleeper *recordingSleeper) *Extractor {
	return NewExtractor(model, Options{
		ModelName: "gemini-2.5-flash",
		Sleep:     sleeper.sleep,
	})
}
