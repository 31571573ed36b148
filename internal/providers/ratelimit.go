package providers

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a per-provider token-bucket guard in front of Chat/ChatStream
// calls. It adapts its budget the way a shared rate-limited API client
// should: halve on a provider-reported retryable throttle, creep back up on
// sustained success, never exceeding the configured ceiling.
type Limiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentRPM float64
	minRPM     float64
	maxRPM     float64
	step       float64
}

// NewLimiter builds a Limiter budgeted in requests per minute. initialRPM <= 0
// means unbounded (the limiter is a no-op pass-through); maxRPM <= 0 or below
// initialRPM is raised to initialRPM.
func NewLimiter(initialRPM, maxRPM float64) *Limiter {
	if initialRPM <= 0 {
		return &Limiter{}
	}
	if maxRPM <= 0 || maxRPM < initialRPM {
		maxRPM = initialRPM
	}
	minRPM := initialRPM * 0.1
	if minRPM < 1 {
		minRPM = 1
	}
	step := initialRPM * 0.1
	if step < 1 {
		step = 1
	}
	return &Limiter{
		limiter:    rate.NewLimiter(rate.Limit(initialRPM/60.0), int(initialRPM)+1),
		currentRPM: initialRPM,
		minRPM:     minRPM,
		maxRPM:     maxRPM,
		step:       step,
	}
}

// Wait blocks until the limiter has capacity for one call, or ctx is done.
// A nil-budget Limiter (unbounded) always returns immediately.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Observe adjusts the budget in response to the outcome of a call: a
// retryable throttling error halves the rate (down to minRPM), success
// nudges it back up toward maxRPM.
func (l *Limiter) Observe(err error) {
	if l == nil || l.limiter == nil {
		return
	}
	if err != nil && ClassifyError(err) == CategoryRetryable {
		l.backoff()
		return
	}
	if err == nil {
		l.probe()
	}
}

func (l *Limiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.currentRPM * 0.5
	if next < l.minRPM {
		next = l.minRPM
	}
	l.setRPM(next)
}

func (l *Limiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := l.currentRPM + l.step
	if next > l.maxRPM {
		next = l.maxRPM
	}
	l.setRPM(next)
}

// setRPM must be called with l.mu held.
func (l *Limiter) setRPM(rpm float64) {
	if rpm == l.currentRPM {
		return
	}
	l.currentRPM = rpm
	l.limiter.SetLimit(rate.Limit(rpm / 60.0))
	l.limiter.SetBurst(int(rpm) + 1)
}

// ChannelLimiter gates outbound-message rate per channel/session key
// (the tool-dispatch side: one rate guard per chat session rather than
// per provider), keyed lazily on first use.
type ChannelLimiter struct {
	mu       sync.Mutex
	perKey   map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewChannelLimiter creates a limiter keyed per channel/session, each
// bucket independently allowing rps events per second up to burst.
func NewChannelLimiter(rps float64, burst int) *ChannelLimiter {
	return &ChannelLimiter{perKey: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

// Allow reports whether an event for the given key may proceed now,
// consuming a token if so.
func (c *ChannelLimiter) Allow(key string) bool {
	if c.rps <= 0 {
		return true
	}
	c.mu.Lock()
	lim, ok := c.perKey[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.perKey[key] = lim
	}
	c.mu.Unlock()
	return lim.Allow()
}
