package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/bar-occupancy/internal/domain/entity"
)

// scriptedSource returns its results in order, repeating the last one.
type scriptedSource struct {
	mu      sync.Mutex
	results []scripted
	calls   int
}

type scripted struct {
	bars []entity.Bar
	err  error
}

func (s *scriptedSource) ListBars(context.Context) ([]entity.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i].bars, s.results[i].err
}

func receive(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case s, ok := <-ch:
		require.True(t, ok, "channel closed early")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot")
		return Snapshot{}
	}
}

func TestNewPollerClampsInterval(t *testing.T) {
	assert.Equal(t, DefaultPollInterval, NewPoller(nil, 0).Interval)
	assert.Equal(t, MinPollInterval, NewPoller(nil, 10*time.Millisecond).Interval)
	assert.Equal(t, 5*time.Second, NewPoller(nil, 5*time.Second).Interval)
}

func TestPollerKeepsLastGoodSnapshotOnError(t *testing.T) {
	first := []entity.Bar{{ID: 1, Name: "A", CurrentCount: 3, Capacity: 10}}
	second := []entity.Bar{{ID: 1, Name: "A", CurrentCount: 7, Capacity: 10}}
	boom := errors.New("connection refused")
	src := &scriptedSource{results: []scripted{{bars: first}, {err: boom}, {bars: second}}}

	p := &Poller{Source: src, Interval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := p.Run(ctx)

	s1 := receive(t, ch)
	require.NoError(t, s1.Err)
	assert.Equal(t, first, s1.Bars)
	assert.False(t, s1.FetchedAt.IsZero())

	s2 := receive(t, ch)
	assert.ErrorIs(t, s2.Err, boom)
	assert.Equal(t, first, s2.Bars)
	assert.Equal(t, s1.FetchedAt, s2.FetchedAt)
	s2.Bars[0].CurrentCount = 99
	assert.Equal(t, 3, s1.Bars[0].CurrentCount)

	s3 := receive(t, ch)
	require.NoError(t, s3.Err)
	assert.Equal(t, second, s3.Bars)
	assert.False(t, s3.FetchedAt.Before(s1.FetchedAt))
}

func TestPollerStopsOnCancel(t *testing.T) {
	src := &scriptedSource{results: []scripted{{bars: []entity.Bar{}}}}
	p := &Poller{Source: src, Interval: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Run(ctx)
	receive(t, ch)
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("poller did not stop")
		}
	}
}

func TestSnapshotStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 22, 0, 10, 0, time.UTC)
	s := Snapshot{FetchedAt: now.Add(-10 * time.Second)}
	assert.False(t, s.Stale(now, 10*time.Second))
	assert.True(t, s.Stale(now.Add(time.Second), 10*time.Second))
	assert.True(t, Snapshot{}.Stale(now, time.Hour))
}
