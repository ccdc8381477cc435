package push

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces out posts. A nil Throttle never waits.
type Throttle struct {
	lim *rate.Limiter
}

func NewThrottle(maxPerMinute int) *Throttle {
	if maxPerMinute <= 0 {
		return nil
	}
	return &Throttle{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxPerMinute)), maxPerMinute)}
}

func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.lim == nil {
		return nil
	}
	return t.lim.Wait(ctx)
}
