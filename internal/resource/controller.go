package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrent store writes.
	// If 0, writes are not bounded.
	MaxInFlight int64

	// IOLimitBytesPerSec is the maximum write throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int
}

// Controller enforces Config. A nil *Controller imposes no limits.
type Controller struct {
	inFlight  *semaphore.Weighted // nil if unbounded
	ioLimiter *rate.Limiter       // nil if unlimited
	burst     int
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{}

	if cfg.MaxInFlight > 0 {
		c.inFlight = semaphore.NewWeighted(cfg.MaxInFlight)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.burst = cfg.IOLimitBytesPerSec
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), c.burst)
	}

	return c
}

// Acquire reserves a write slot, blocking until one is free or ctx is canceled.
func (c *Controller) Acquire(ctx context.Context) error {
	if c == nil || c.inFlight == nil {
		return ctx.Err()
	}
	return c.inFlight.Acquire(ctx, 1)
}

// TryAcquire reserves a write slot without blocking.
func (c *Controller) TryAcquire() bool {
	if c == nil || c.inFlight == nil {
		return true
	}
	return c.inFlight.TryAcquire(1)
}

// Release frees a slot obtained with Acquire or TryAcquire.
func (c *Controller) Release() {
	if c == nil || c.inFlight == nil {
		return
	}
	c.inFlight.Release(1)
}

// AcquireIO waits until the IO limit allows the specified number of bytes.
// Requests larger than one second of budget are split, since the limiter
// rejects a single WaitN above its burst.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}
	for bytes > 0 {
		n := min(bytes, c.burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
