package quota

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yuno-ai/yuno-api/internal/storage"
)

// Window is one of the three concurrent quota windows every request is
// counted against.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Windows lists the windows in checking order, shortest first so the most
// common denial (minute burst) is reported.
var Windows = [3]Window{WindowMinute, WindowHour, WindowDay}

func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// Outcome is the tri-state result of a quota check. Indeterminate means
// the counter store could not answer; the middleware collapses it to
// allowed (fail open) but tests and logs can tell the cases apart.
type Outcome int

const (
	OutcomeAllowed Outcome = iota
	OutcomeDenied
	OutcomeIndeterminate
)

// Decision is the full result of Check.
type Decision struct {
	Outcome Outcome

	// Populated when Outcome == OutcomeDenied.
	Window     Window
	Limit      int
	Current    int64
	RetryAfter time.Duration
}

// Allowed collapses the tri-state to the outward contract: deny only on a
// definitive over-limit answer from the store.
func (d Decision) Allowed() bool {
	return d.Outcome != OutcomeDenied
}

// WindowUsage is the per-window snapshot returned by Increment and Usage.
type WindowUsage struct {
	Current    int64   `json:"current"`
	Limit      int     `json:"limit"`
	Remaining  int64   `json:"remaining"`
	Percentage float64 `json:"percentage,omitempty"`
}

// Usage maps window name to its snapshot.
type Usage map[Window]WindowUsage

// storeTimeout bounds every counter-store round trip. A slow store is
// treated the same as an unreachable one.
const storeTimeout = 250 * time.Millisecond

const keyPrefix = "rate_limit"

// Guard enforces multi-window request quotas per site and plan tier. All
// counter state lives in Redis; the guard itself is stateless and safe for
// concurrent use.
type Guard struct {
	redis *storage.RedisClient
	plans PlanTable
}

func NewGuard(redis *storage.RedisClient, plans PlanTable) *Guard {
	if plans == nil {
		plans = DefaultPlanTable()
	}
	return &Guard{redis: redis, plans: plans}
}

// Limits exposes the plan table row for a tier, for auth responses and
// usage headers.
func (g *Guard) Limits(plan string) Limits {
	return g.plans.Limits(plan)
}

// key builds the counter key for a site and window at time now. The
// window index is the unix timestamp truncated to the window duration, so
// counters roll over at hard bucket edges rather than sliding.
func key(siteID string, w Window, now time.Time) string {
	index := now.Unix() / int64(w.Duration().Seconds())
	return fmt.Sprintf("%s:%s:%s:%d", keyPrefix, siteID, w, index)
}

// Check reads all three window counters and compares them against the
// site's plan limits. Any window at or over its limit denies the request.
// A store failure or timeout yields Indeterminate, never an error: quota
// checking must not turn a store outage into an outage of the API.
func (g *Guard) Check(ctx context.Context, siteID, plan string) Decision {
	limits := g.plans.Limits(plan)
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	for _, w := range Windows {
		limit := limits.forWindow(w)

		val, err := g.redis.Get(ctx, key(siteID, w, now))
		if err != nil {
			if isMiss(err) {
				continue
			}
			log.Printf("quota: counter store unavailable, allowing request for site %s: %v", siteID, err)
			return Decision{Outcome: OutcomeIndeterminate}
		}

		current, _ := strconv.ParseInt(val, 10, 64)
		if current >= int64(limit) {
			return Decision{
				Outcome:    OutcomeDenied,
				Window:     w,
				Limit:      limit,
				Current:    current,
				RetryAfter: untilNextWindow(w, now),
			}
		}
	}

	return Decision{Outcome: OutcomeAllowed}
}

// Increment bumps all three window counters and returns the resulting
// usage snapshot. Each counter's INCR and EXPIRE run in one pipeline so a
// counter can never be created without its TTL. On store failure the
// increment is dropped and logged; undercounting is the safe direction.
func (g *Guard) Increment(ctx context.Context, siteID, plan string) Usage {
	limits := g.plans.Limits(plan)
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	usage := make(Usage, len(Windows))

	pipe := g.redis.Pipeline()
	incrs := make(map[Window]*redis.IntCmd, len(Windows))
	for _, w := range Windows {
		k := key(siteID, w, now)
		incrs[w] = pipe.Incr(ctx, k)
		pipe.Expire(ctx, k, w.Duration())
	}

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("quota: failed to increment usage for site %s: %v", siteID, err)
		return usage
	}

	for _, w := range Windows {
		current := incrs[w].Val()
		limit := limits.forWindow(w)
		usage[w] = WindowUsage{
			Current:   current,
			Limit:     limit,
			Remaining: clampRemaining(limit, current),
		}
	}

	return usage
}

// Usage returns the current per-window stats without counting the call.
func (g *Guard) Usage(ctx context.Context, siteID, plan string) (Usage, error) {
	limits := g.plans.Limits(plan)
	now := time.Now()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	usage := make(Usage, len(Windows))

	for _, w := range Windows {
		var current int64

		val, err := g.redis.Get(ctx, key(siteID, w, now))
		if err != nil && !isMiss(err) {
			return nil, fmt.Errorf("failed to read %s counter: %w", w, err)
		}
		if err == nil {
			current, _ = strconv.ParseInt(val, 10, 64)
		}

		limit := limits.forWindow(w)
		stat := WindowUsage{
			Current:   current,
			Limit:     limit,
			Remaining: clampRemaining(limit, current),
		}
		if limit > 0 {
			stat.Percentage = float64(current) / float64(limit) * 100
		}
		usage[w] = stat
	}

	return usage, nil
}

// ResetAll deletes every counter belonging to a site across all windows.
// Idempotent; resetting a site with no counters is a no-op.
func (g *Guard) ResetAll(ctx context.Context, siteID string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	pattern := fmt.Sprintf("%s:%s:*", keyPrefix, siteID)
	keys, err := g.redis.ScanKeys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to scan counters for site %s: %w", siteID, err)
	}

	if len(keys) == 0 {
		return nil
	}

	if err := g.redis.Del(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete counters for site %s: %w", siteID, err)
	}

	log.Printf("quota: reset counters for site %s (%d keys)", siteID, len(keys))
	return nil
}

func untilNextWindow(w Window, now time.Time) time.Duration {
	secs := int64(w.Duration().Seconds())
	next := (now.Unix()/secs + 1) * secs
	return time.Duration(next-now.Unix()) * time.Second
}

func isMiss(err error) bool {
	return err == redis.Nil
}

func clampRemaining(limit int, current int64) int64 {
	remaining := int64(limit) - current
	if remaining < 0 {
		return 0
	}
	return remaining
}
