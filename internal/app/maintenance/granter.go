// Package maintenance runs background jobs on a cron schedule.
package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chaptershq/chapters/internal/services"
	"github.com/chaptershq/chapters/pkg/logger"
)

const defaultGrantSpec = "@hourly"

// Granter periodically sweeps all accounts and applies the daily Open Pages
// grant. The sweep is a safety net for accounts that stay idle past the day
// boundary; interactive reads grant lazily on their own.
type Granter struct {
	quota    *services.QuotaService
	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger
}

// Option customises the Granter.
type Option func(*Granter)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(g *Granter) {
		if c != nil {
			g.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling.
func WithNow(now func() time.Time) Option {
	return func(g *Granter) {
		if now != nil {
			g.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the grant sweep.
func WithSchedule(spec string) Option {
	return func(g *Granter) {
		if spec != "" {
			g.schedule = spec
		}
	}
}

// NewGranter constructs a Granter with an hourly default schedule.
func NewGranter(quota *services.QuotaService, opts ...Option) *Granter {
	granter := &Granter{
		quota:    quota,
		schedule: defaultGrantSpec,
		now:      time.Now,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(granter)
	}

	if granter.cron == nil {
		granter.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return granter
}

// Start registers the grant job and launches the scheduler.
func (g *Granter) Start() error {
	if g.quota == nil {
		return nil
	}

	if _, err := g.cron.AddFunc(g.schedule, g.RunOnce); err != nil {
		return err
	}

	g.cron.Start()
	return nil
}

// RunOnce executes a single sweep. Exposed for tests and manual triggering.
func (g *Granter) RunOnce() {
	started := g.now()
	granted, err := g.quota.GrantAll(context.Background())
	if err != nil {
		g.log.Warn("open pages sweep finished with errors",
			zap.Int("granted", granted),
			zap.Error(err),
		)
		return
	}
	g.log.Info("open pages sweep complete",
		zap.Int("granted", granted),
		zap.Duration("took", g.now().Sub(started)),
	)
}

// Stop halts the scheduler and waits for running jobs to finish.
func (g *Granter) Stop() {
	if g.cron == nil {
		return
	}
	ctx := g.cron.Stop()
	<-ctx.Done()
}
