package resilience

import (
	"strings"
	"time"
)

// Upstream names match the prefix of executor operation names ("ollama.generate" -> "ollama").
const (
	UpstreamLLM    = "ollama"
	UpstreamVector = "qdrant"
	UpstreamObject = "s3"
	UpstreamEvents = "nats"
)

type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32

	// Upstreams overrides the base policy per upstream. Zero fields inherit from the base.
	Upstreams map[string]Config
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// DefaultUpstreams tunes each dependency. Generation calls are slow and expensive, so the LLM
// retries less and waits longer; object storage tolerates more attempts on short backoffs.
func DefaultUpstreams() map[string]Config {
	return map[string]Config{
		UpstreamLLM: {
			RetryMaxAttempts:    2,
			RetryInitialBackoff: 500 * time.Millisecond,
			RetryMaxBackoff:     2 * time.Second,
			BreakerMinRequests:  5,
			BreakerOpenTimeout:  60 * time.Second,
		},
		UpstreamVector: {
			RetryMaxAttempts: 3,
		},
		UpstreamObject: {
			RetryMaxAttempts: 4,
			RetryMaxBackoff:  time.Second,
		},
		UpstreamEvents: {
			RetryMaxAttempts:   2,
			BreakerMinRequests: 5,
		},
	}
}

// policyFor resolves the normalized policy of an operation from its upstream prefix.
func (c Config) policyFor(operation string) Config {
	upstream, _, _ := strings.Cut(operation, ".")
	override, ok := c.Upstreams[upstream]
	if !ok {
		return c
	}
	return override.inherit(c).normalize()
}

func (c Config) inherit(base Config) Config {
	out := c
	out.BreakerEnabled = base.BreakerEnabled
	out.Upstreams = nil
	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = base.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = base.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = base.RetryMaxBackoff
	}
	if out.RetryMultiplier <= 0 {
		out.RetryMultiplier = base.RetryMultiplier
	}
	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = base.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 {
		out.BreakerFailureRatio = base.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = base.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = base.BreakerHalfOpenMaxCalls
	}
	return out
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
