package client

import (
	"context"
	"slices"
	"time"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

const (
	DefaultPollInterval = 10 * time.Second
	MinPollInterval     = time.Second
)

// BarSource is what a Poller reads; *Client implements it.
type BarSource interface {
	ListBars(ctx context.Context) ([]entity.Bar, error)
}

// Snapshot is one poll result. When Err is set, Bars and FetchedAt still
// describe the last successful poll, so time.Since(FetchedAt) is the
// current staleness.
type Snapshot struct {
	Bars      []entity.Bar
	FetchedAt time.Time
	Err       error
}

// Stale reports whether the snapshot is older than maxAge at now.
func (s Snapshot) Stale(now time.Time, maxAge time.Duration) bool {
	return s.FetchedAt.IsZero() || now.Sub(s.FetchedAt) > maxAge
}

// Poller re-reads the bar list on a fixed interval. There is no push
// channel; readers are at most one interval behind.
type Poller struct {
	Source   BarSource
	Interval time.Duration

	now func() time.Time
}

// NewPoller clamps interval: zero means DefaultPollInterval and anything
// below MinPollInterval is raised to it.
func NewPoller(src BarSource, interval time.Duration) *Poller {
	switch {
	case interval == 0:
		interval = DefaultPollInterval
	case interval < MinPollInterval:
		interval = MinPollInterval
	}
	return &Poller{Source: src, Interval: interval, now: time.Now}
}

// Run polls immediately and then every Interval until ctx is cancelled.
// The returned channel is closed when Run stops.
func (p *Poller) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	now := p.now
	if now == nil {
		now = time.Now
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last Snapshot
		for {
			bars, err := p.Source.ListBars(ctx)
			if ctx.Err() != nil {
				return
			}
			snap := Snapshot{Bars: slices.Clone(last.Bars), FetchedAt: last.FetchedAt, Err: err}
			if err == nil {
				snap = Snapshot{Bars: bars, FetchedAt: now()}
				last = snap
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
