package model

import (
	"context"
	"time"
)

// timeoutProvider bounds every Complete call with a deadline. An
// exceeded deadline surfaces as the underlying call's context error,
// which each node already converts into its own fallback result.
type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps p so every Complete call is cancelled after timeout.
// A non-positive timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &timeoutProvider{inner: p, timeout: timeout}
}

func (t *timeoutProvider) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Complete(ctx, req)
}

func (t *timeoutProvider) Name() string {
	return t.inner.Name()
}
