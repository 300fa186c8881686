package utils

import (
	"time"
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys set by handlers and read by flows
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Cache TTL constants, chosen per key volatility
const (
	// LinktreeCacheTTL is the time-to-live for single-entity lookups (by id / short id)
	LinktreeCacheTTL = 3 * time.Minute

	// LinktreeWithLinksCacheTTL is the time-to-live for the page payload (entity + links)
	LinktreeWithLinksCacheTTL = 2 * time.Minute

	// LinktreeListCacheTTL is the time-to-live for list views; short because lists churn
	LinktreeListCacheTTL = 30 * time.Second

	// AnalyticsCacheTTL is the time-to-live for per-linktree analytics summaries
	AnalyticsCacheTTL = 2 * time.Minute

	// AnalyticsTotalsCacheTTL is the time-to-live for the global dashboard totals
	AnalyticsTotalsCacheTTL = 2 * time.Minute
)

// Event pipeline constants
const (
	// EventQueueCapacity bounds the in-process intake queue; Record drops beyond it
	EventQueueCapacity = 65536

	// FlushBatchSize is the number of event rows per bulk insert statement
	FlushBatchSize = 100
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
