package utils

import (
	"context"
	"time"
)

// DefaultUpstreamTimeout is the default timeout for ERP calls
const DefaultUpstreamTimeout = 10 * time.Second

// FastUpstreamTimeout is for small lookups that should be fast
const FastUpstreamTimeout = 5 * time.Second

// SlowUpstreamTimeout is for document-bearing calls that may take longer
const SlowUpstreamTimeout = 20 * time.Second

// GetUpstreamContext returns a context with timeout for ERP calls
// If parent context is provided, it uses that; otherwise creates a background context
func GetUpstreamContext(parentCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	return context.WithTimeout(parentCtx, timeout)
}

// GetDefaultUpstreamContext returns a context with the default timeout
func GetDefaultUpstreamContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetUpstreamContext(parentCtx, DefaultUpstreamTimeout)
}

// GetFastUpstreamContext returns a context with the fast timeout
func GetFastUpstreamContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return GetUpstreamContext(parentCtx, FastUpstreamTimeout)
}
