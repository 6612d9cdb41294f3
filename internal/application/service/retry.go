package service

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy controls re-delivery after a failed send.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     int // Re-deliveries after the first attempt; 0 disables retries
}

// DefaultRetryPolicy retries five times, starting at 30s and capped at 10m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 30 * time.Second,
		MaxInterval:     10 * time.Minute,
		MaxAttempts:     5,
	}
}

func (p RetryPolicy) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0 // Bounded by attempts, not wall time
	b.Reset()

	attempts := p.MaxAttempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithMaxRetries(b, uint64(attempts))
}

// retryState tracks the backoff of every task with a failed delivery.
type retryState struct {
	policy   RetryPolicy
	mu       sync.Mutex
	backoffs map[string]backoff.BackOff
}

func newRetryState(policy RetryPolicy) *retryState {
	return &retryState{policy: policy, backoffs: make(map[string]backoff.BackOff)}
}

// next returns the delay before the next attempt for key, or false once attempts are exhausted.
func (r *retryState) next(key string) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.backoffs[key]
	if !ok {
		b = r.policy.newBackOff()
		r.backoffs[key] = b
	}
	d := b.NextBackOff()
	if d == backoff.Stop {
		delete(r.backoffs, key)
		return 0, false
	}
	return d, true
}

func (r *retryState) clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backoffs, key)
}
