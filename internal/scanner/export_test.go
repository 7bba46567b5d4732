package scanner

import (
	"context"
	"time"
)

// SetSleep sustituye la espera entre intentos.
func (r *Retrier) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	r.sleep = sleep
}
