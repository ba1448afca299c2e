package skills

import (
	"context"
	"strings"
	"time"

	"github.com/ml-career-pulse/backend/internal/metrics"
	"github.com/ml-career-pulse/backend/pkg/retry"
)

const (
	highTierRPM = 15
	lowTierRPM  = 10
)

// RequestsPerMinuteFor returns the quota tier for a model name: 2.5 flash
// models get the higher tier, everything else the lower one.
func RequestsPerMinuteFor(modelName string) int {
	name := strings.ToLower(modelName)
	if strings.Contains(name, "flash") && strings.Contains(name, "2.5") {
		return highTierRPM
	}
	return lowTierRPM
}

// Throttle suspends the caller for a fixed delay before every model call.
// The delay is derived once from the requests-per-minute quota and never
// changes. A zero quota makes the throttle inert.
type Throttle struct {
	rpm   int
	delay time.Duration
	sleep retry.SleepFunc
}

func NewThrottle(requestsPerMinute int, sleep retry.SleepFunc) *Throttle {
	if sleep == nil {
		sleep = retry.Sleep
	}

	t := &Throttle{sleep: sleep}
	if requestsPerMinute > 0 {
		t.rpm = requestsPerMinute
		t.delay = time.Minute / time.Duration(requestsPerMinute)
	}
	return t
}

func (t *Throttle) RequestsPerMinute() int {
	return t.rpm
}

func (t *Throttle) Delay() time.Duration {
	return t.delay
}

func (t *Throttle) Wait(ctx context.Context) error {
	if t.delay <= 0 {
		return ctx.Err()
	}
	metrics.ThrottleSeconds.Add(t.delay.Seconds())
	return t.sleep(ctx, t.delay)
}
