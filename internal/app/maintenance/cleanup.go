package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/goout-id/goout/internal/verification"
	"github.com/goout-id/goout/pkg/logger"
)

const (
	defaultVerificationSpec = "@hourly"
	defaultCacheSpec        = "@every 15m"
)

// VerificationPurger deletes expired verification sessions and tokens.
type VerificationPurger interface {
	Purge(ctx context.Context) (verification.PurgeStats, error)
}

// CachePurger deletes expired cache rows. Only the database cache needs it;
// Redis expires keys itself.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner runs background cleanup jobs on a cron schedule.
type Cleaner struct {
	verification VerificationPurger
	cache        CachePurger
	cron         *cron.Cron
	log          *zap.Logger

	verificationSchedule string
	cacheSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithVerificationSchedule overrides the cron specification for verification cleanup.
func WithVerificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.verificationSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache cleanup.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithCachePurger enables the cache cleanup job.
func WithCachePurger(p CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = p
	}
}

// NewCleaner constructs a Cleaner. A nil purger skips the corresponding job.
func NewCleaner(purger VerificationPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		verification:         purger,
		verificationSchedule: defaultVerificationSpec,
		cacheSchedule:        defaultCacheSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if c.verification == nil && c.cache == nil {
		return nil
	}

	if c.verification != nil {
		if _, err := c.cron.AddFunc(c.verificationSchedule, func() {
			_ = c.purgeVerification(context.Background())
		}); err != nil {
			return err
		}
	}

	if c.cache != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			_ = c.purgeCache(context.Background())
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Used during
// graceful shutdown and in tests.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.verification != nil {
		errs = multierr.Append(errs, c.purgeVerification(ctx))
	}
	if c.cache != nil {
		errs = multierr.Append(errs, c.purgeCache(ctx))
	}
	return errs
}

func (c *Cleaner) purgeVerification(ctx context.Context) error {
	stats, err := c.verification.Purge(ctx)
	if err != nil {
		c.log.Warn("verification cleanup failed", zap.Error(err))
		return err
	}
	if stats.Sessions > 0 || stats.Tokens > 0 {
		c.log.Info("purged expired verification records",
			zap.Int64("sessions", stats.Sessions),
			zap.Int64("tokens", stats.Tokens),
		)
	}
	return nil
}

func (c *Cleaner) purgeCache(ctx context.Context) error {
	removed, err := c.cache.PurgeExpired(ctx)
	if err != nil {
		c.log.Warn("cache cleanup failed", zap.Error(err))
		return err
	}
	if removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("entries", removed))
	}
	return nil
}
