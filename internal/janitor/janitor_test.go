package janitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/metrics"
)

type fakePurger struct {
	before time.Time
	n      int
	err    error
}

func (f *fakePurger) Purge(_ context.Context, before time.Time) (int, error) {
	f.before = before
	return f.n, f.err
}

type fakeExpirer struct {
	ttl   time.Duration
	calls int
}

func (f *fakeExpirer) ExpireIdle(ttl time.Duration) int {
	f.ttl = ttl
	f.calls++
	return 1
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	purger := &fakePurger{n: 3}
	expirer := &fakeExpirer{}
	m := metrics.New()

	j := New(Config{MediaRetention: 24 * time.Hour, SessionTTL: 30 * time.Minute}, purger, expirer, m)
	j.now = func() time.Time { return now }
	j.Sweep(context.Background())

	assert.Equal(t, now.Add(-24*time.Hour), purger.before)
	assert.Equal(t, 30*time.Minute, expirer.ttl)
	assert.Equal(t, 3.0, counterValue(t, m, "mindmate_media_purged_total"))
}

func TestSweepKeepsGoingAfterPurgeError(t *testing.T) {
	expirer := &fakeExpirer{}
	j := New(Config{MediaRetention: time.Hour, SessionTTL: time.Minute}, &fakePurger{err: errors.New("disk")}, expirer, nil)
	j.Sweep(context.Background())
	assert.Equal(t, 1, expirer.calls)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	j := New(Config{Schedule: "every now and then"}, nil, nil, nil)
	require.Error(t, j.Run(context.Background()))
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{Schedule: "@every 1h"}, nil, nil, nil).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
