package motion

import (
	"context"
	"time"
)

// Pacer blocks until the next control cycle is due.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Ticker paces cycles against the wall clock.
type Ticker struct {
	t *time.Ticker
}

func NewTicker(period time.Duration) *Ticker {
	return &Ticker{t: time.NewTicker(period)}
}

func (p *Ticker) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.t.C:
		return nil
	}
}

func (p *Ticker) Stop() { p.t.Stop() }
