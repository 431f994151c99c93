// Package janitor periodically drops expired media and idle sessions.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mindchain/mindmate/backend/internal/logger"
	"github.com/mindchain/mindmate/backend/internal/metrics"
)

// MediaPurger deletes media created before a cutoff.
type MediaPurger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// SessionExpirer closes sessions idle for longer than ttl.
type SessionExpirer interface {
	ExpireIdle(ttl time.Duration) int
}

type Config struct {
	Schedule       string
	MediaRetention time.Duration
	SessionTTL     time.Duration
}

type Janitor struct {
	cfg      Config
	media    MediaPurger
	sessions SessionExpirer
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a janitor. media or sessions may be nil to skip that sweep.
func New(cfg Config, media MediaPurger, sessions SessionExpirer, m *metrics.Metrics) *Janitor {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 10m"
	}
	return &Janitor{cfg: cfg, media: media, sessions: sessions, metrics: m, now: time.Now}
}

func (j *Janitor) Name() string { return "janitor" }

// Run sweeps on the configured schedule until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(j.cfg.Schedule, func() { j.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", j.cfg.Schedule, err)
	}

	c.Start()
	slog.Info("[janitor] started", "schedule", j.cfg.Schedule)

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	slog.Info("[janitor] stopped")
	return nil
}

// Sweep runs every cleanup once.
func (j *Janitor) Sweep(ctx context.Context) {
	if j.media != nil && j.cfg.MediaRetention > 0 {
		n, err := j.media.Purge(ctx, j.now().Add(-j.cfg.MediaRetention))
		if err != nil {
			slog.Error("[janitor] media purge failed", logger.Err(err))
		} else if n > 0 {
			j.metrics.MediaPurged(n)
			slog.Info("[janitor] purged media", "count", n)
		}
	}

	if j.sessions != nil && j.cfg.SessionTTL > 0 {
		if n := j.sessions.ExpireIdle(j.cfg.SessionTTL); n > 0 {
			slog.Info("[janitor] expired idle sessions", "count", n)
		}
	}
}
