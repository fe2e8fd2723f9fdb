package timing

import "time"

// TickerLimiter paces frames off a time.Ticker. It drifts more than
// AdaptiveLimiter (the tick period is rounded to the timer resolution and
// missed ticks are dropped) but has no busy-waiting, which makes it the
// cheaper choice on battery.
type TickerLimiter struct {
	ticker *time.Ticker
}

func NewTickerLimiter() *TickerLimiter {
	return &TickerLimiter{
		ticker: time.NewTicker(FrameDuration()),
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(FrameDuration())
}

// Stop releases the underlying ticker. The limiter must not be used after.
func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
