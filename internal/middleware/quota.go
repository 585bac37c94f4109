package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yuno-ai/yuno-api/internal/metrics"
	"github.com/yuno-ai/yuno-api/internal/quota"
)

// QuotaEnforcer runs the quota half of the access pipeline: check before
// the handler, increment after it succeeds. A request that fails auth
// (aborted earlier in the chain) or whose handler errors never counts
// against the quota. Must be registered after RequireSession.
func QuotaEnforcer(guard *quota.Guard, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID := c.GetString(CtxSiteID)
		plan := c.GetString(CtxPlanType)
		if siteID == "" {
			// No authenticated session; nothing to meter.
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decision := guard.Check(ctx, siteID, plan)

		if decision.Outcome == quota.OutcomeIndeterminate && m != nil {
			m.StoreFailures.Inc()
		}

		if !decision.Allowed() {
			if m != nil {
				m.QuotaDenials.WithLabelValues(string(decision.Window)).Inc()
			}

			retryAfter := int(decision.RetryAfter.Seconds())
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     fmt.Sprintf("Rate limit exceeded for %s window", decision.Window),
				"window":      decision.Window,
				"limit":       decision.Limit,
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", guard.Limits(plan).PerMinute))

		c.Next()

		// Only a completed, successful request consumes quota.
		if c.IsAborted() || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		// The response is already written by now, so the snapshot feeds
		// logs and tests rather than headers; clients read live numbers
		// from GET /widget/usage.
		guard.Increment(ctx, siteID, plan)
	}
}
