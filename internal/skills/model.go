// Package skills turns unstructured text about ML papers, repositories,
// discussions and job postings into structured skill taxonomies using an
// external language model, and canonicalizes skill names for aggregation.
//
// Extraction is strictly sequential and paced by a fixed inter-request delay.
// Every failure degrades to the item type's empty schema; nothing in this
// package returns an error from a public extraction call.
package skills

import (
	"context"
	"errors"
	"strings"
)

// Model is the external language model: one unary call taking a single
// instruction payload and returning unstructured text.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// configurable is implemented by models that can report missing credentials.
type configurable interface {
	Configured() bool
}

// lookuper is implemented by models that can answer a prompt from a cache
// without a network call.
type lookuper interface {
	Lookup(ctx context.Context, prompt string) (string, bool)
}

func isConfigured(m Model) bool {
	if m == nil {
		return false
	}
	if c, ok := m.(configurable); ok {
		return c.Configured()
	}
	return true
}

var (
	ErrUnconfigured = errors.New("model not configured")
	ErrRateLimited  = errors.New("model rate limit exceeded")
	ErrMalformed    = errors.New("malformed model response")
)

// ErrorKind is the closed set of failure classes the retry controller
// dispatches on.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindRateLimited
	KindMalformed
	KindUnconfigured
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	case KindUnconfigured:
		return "unconfigured"
	default:
		return "unknown"
	}
}

var rateLimitMarkers = []string{
	"429",
	"quota",
	"rate limit",
	"ratelimit",
	"too many requests",
	"resource_exhausted",
	"resource exhausted",
}

// Classify maps an error from a model call or parse step to its kind.
// Sentinel errors win; otherwise the message is checked for rate-limit and
// quota markers, and everything else is transient.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindTransient
	case errors.Is(err, ErrUnconfigured):
		return KindUnconfigured
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return KindRateLimited
		}
	}
	return KindTransient
}
