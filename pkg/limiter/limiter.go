// Package limiter provides token bucket rate limiting keyed by request
// attributes.
package limiter

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face is the limiter abstraction consumed by the rate limiting middleware.
type Face interface {
	// Key derives the bucket key from the request
	Key(c *gin.Context) string
	// GetBucket returns the token bucket for a key
	GetBucket(key string) (*ratelimit.Bucket, bool)
	// AddBuckets registers bucket rules
	AddBuckets(rules ...BucketRule) Face
}

// Limiter holds the registered token buckets.
type Limiter struct {
	limiterBuckets map[string]*ratelimit.Bucket
}

// BucketRule defines one token bucket.
type BucketRule struct {
	// Key bucket key, a URI for MethodLimiter
	Key string
	// FillInterval token fill interval
	FillInterval time.Duration
	// Capacity bucket capacity
	Capacity int64
	// Quantum tokens added per fill interval
	Quantum int64
}
