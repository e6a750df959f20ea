// Package jobs runs the in-process housekeeping tasks on a cron schedule.
package jobs

import (
	"context"
	"time"

	"daloamarket-backend/internal/domain"
	"daloamarket-backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	JobBoostExpiry  = "boost_expiry"
	JobPendingSweep = "pending_sweep"
	JobLimiterGC    = "limiter_cleanup"

	limiterMaxIdle = 30 * time.Minute
)

// Cleaner drops per-key state idle for longer than maxIdle and reports how many keys went.
type Cleaner interface {
	Cleanup(maxIdle time.Duration) int
}

type Scheduler struct {
	DB         *gorm.DB
	Limiter    Cleaner
	PendingTTL time.Duration

	cron *cron.Cron
	now  func() time.Time
}

func New(db *gorm.DB, limiter Cleaner, pendingTTL time.Duration) *Scheduler {
	return &Scheduler{DB: db, Limiter: limiter, PendingTTL: pendingTTL, now: time.Now}
}

// Start registers the jobs and starts the cron loop in its own goroutine.
func (s *Scheduler) Start() error {
	s.cron = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	specs := []struct {
		spec string
		name string
		run  func(context.Context) (int64, error)
	}{
		{"@every 1h", JobBoostExpiry, s.ExpireBoosts},
		{"@daily", JobPendingSweep, s.SweepStalePending},
		{"@every 10m", JobLimiterGC, func(context.Context) (int64, error) { return int64(s.CleanupLimiters()), nil }},
	}
	for _, j := range specs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.run(j.name, j.run) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	log.Info().Int("jobs", len(specs)).Msg("cron scheduler started")
	return nil
}

// Stop stops scheduling and waits for running jobs, up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(name string, fn func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()
	n, err := fn(ctx)
	metrics.RecordJob(name, err)
	if err != nil {
		log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	log.Info().Str("job", name).Int64("affected", n).Dur("took", time.Since(start)).Msg("job done")
}

func (s *Scheduler) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// ExpireBoosts clears boosted_until values already in the past.
func (s *Scheduler) ExpireBoosts(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("boosted_until IS NOT NULL AND boosted_until < ?", s.clock()).
		Update("boosted_until", nil)
	return res.RowsAffected, res.Error
}

// SweepStalePending disables pending listings older than PendingTTL whose owner never sent a payment proof.
func (s *Scheduler) SweepStalePending(ctx context.Context) (int64, error) {
	if s.PendingTTL <= 0 {
		return 0, nil
	}
	cutoff := s.clock().Add(-s.PendingTTL)
	awaiting := s.DB.Model(&domain.Transaction{}).Select("listing_id").
		Where("listing_id IS NOT NULL AND type = ? AND status = ?", domain.TxListingPayment, domain.TxPending)
	res := s.DB.WithContext(ctx).Model(&domain.Listing{}).
		Where("status = ? AND created_at < ?", domain.ListingPending, cutoff).
		Where("id NOT IN (?)", awaiting).
		Update("status", domain.ListingDisabled)
	return res.RowsAffected, res.Error
}

func (s *Scheduler) CleanupLimiters() int {
	if s.Limiter == nil {
		return 0
	}
	return s.Limiter.Cleanup(limiterMaxIdle)
}
