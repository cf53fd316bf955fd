// Package ratelimit paces outbound venue calls. The venue publishes a
// request-weight ceiling per minute; the pacer keeps the process under it by
// allowing exactly one in-flight request at a time and spacing consecutive
// requests by a minimum interval derived from the ceiling with a safety
// margin. Every component that talks to the venue funnels through one Pacer,
// which makes it the sole point of serialization and backpressure.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// ceilingPollInterval is how often Acquire re-checks a saturated shared
// ceiling.
const ceilingPollInterval = 50 * time.Millisecond

// Pacer implements domain.RateLimiter for a single process.
type Pacer struct {
	slot        chan struct{} // capacity 1: the single in-flight permit
	minInterval time.Duration
	lastRelease time.Time

	// Optional venue-wide ceiling shared across processes.
	ceiling      domain.CeilingLimiter
	ceilingKey   string
	ceilingLimit int
	window       time.Duration

	logger *slog.Logger
}

// NewPacer creates a Pacer for the given published requests-per-minute limit.
// safetyMargin is the fraction of the published limit actually used, e.g.
// 0.8 keeps 20% headroom.
func NewPacer(requestsPerMinute int, safetyMargin float64, logger *slog.Logger) *Pacer {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1200
	}
	if safetyMargin <= 0 || safetyMargin > 1 {
		safetyMargin = 0.8
	}

	effective := float64(requestsPerMinute) * safetyMargin
	interval := time.Duration(float64(time.Minute) / effective)

	p := &Pacer{
		slot:        make(chan struct{}, 1),
		minInterval: interval,
		logger:      logger.With(slog.String("component", "ratelimit")),
	}
	p.slot <- struct{}{}
	return p
}

// SetCeiling attaches a shared sliding-window ceiling (typically Redis
// backed) consulted on every Acquire in addition to the local pacing.
func (p *Pacer) SetCeiling(c domain.CeilingLimiter, key string, limit int, window time.Duration) {
	p.ceiling = c
	p.ceilingKey = key
	p.ceilingLimit = limit
	p.window = window
}

// MinInterval returns the enforced spacing between consecutive requests.
func (p *Pacer) MinInterval() time.Duration {
	return p.minInterval
}

// Acquire blocks until the caller may issue exactly one venue request. The
// returned release func must be called when the request completes; until
// then no other caller proceeds.
func (p *Pacer) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ratelimit: acquire: %w", ctx.Err())
	case <-p.slot:
	}

	// Enforce minimum spacing from the previous release.
	if wait := p.minInterval - time.Since(p.lastRelease); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.slot <- struct{}{}
			return nil, fmt.Errorf("ratelimit: spacing wait: %w", ctx.Err())
		case <-timer.C:
		}
	}

	// Consult the shared ceiling when configured.
	if p.ceiling != nil {
		for {
			allowed, err := p.ceiling.Allow(ctx, p.ceilingKey, p.ceilingLimit, p.window)
			if err != nil {
				// A broken ceiling backend must not halt trading; local
				// pacing still applies.
				p.logger.Warn("ceiling check failed, proceeding on local pacing",
					slog.String("error", err.Error()),
				)
				break
			}
			if allowed {
				break
			}
			timer := time.NewTimer(ceilingPollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				p.slot <- struct{}{}
				return nil, fmt.Errorf("ratelimit: ceiling wait: %w", ctx.Err())
			case <-timer.C:
			}
		}
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		p.lastRelease = time.Now()
		p.slot <- struct{}{}
	}
	return release, nil
}

// Compile-time interface check.
var _ domain.RateLimiter = (*Pacer)(nil)
