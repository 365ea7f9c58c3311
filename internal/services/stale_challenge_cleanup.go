package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cleanupLockKey = "jobs:stale-challenge-cleanup"

// StaleChallengeCleanup periodically deletes pending challenges nobody
// answered within the configured TTL.
type StaleChallengeCleanup struct {
	challenges *ChallengeService
	ttl        time.Duration
	schedule   string
	cron       *cron.Cron
}

// NewStaleChallengeCleanup creates the job. A ttl of zero disables it and an
// empty schedule means hourly.
func NewStaleChallengeCleanup(challenges *ChallengeService, ttl time.Duration, schedule string) *StaleChallengeCleanup {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &StaleChallengeCleanup{
		challenges: challenges,
		ttl:        ttl,
		schedule:   schedule,
	}
}

// Start registers the job with cron. It is a no-op when the TTL is zero.
func (s *StaleChallengeCleanup) Start() error {
	logger := s.challenges.Logger
	if s.ttl <= 0 {
		logger.Info("stale challenge cleanup disabled")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, s.runCleanupPass); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("stale challenge cleanup started",
		zap.String("schedule", s.schedule),
		zap.Duration("ttl", s.ttl),
	)
	return nil
}

// Stop waits for a running pass to finish.
func (s *StaleChallengeCleanup) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.challenges.Logger.Info("stale challenge cleanup stopped")
}

func (s *StaleChallengeCleanup) runCleanupPass() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.challenges.Logger.Error("stale challenge cleanup failed", zap.Error(err))
	}
}

// RunOnce deletes every expired pending challenge. The pass holds a job
// lock so that instances sharing a Redis locker do not run it twice at once.
func (s *StaleChallengeCleanup) RunOnce(ctx context.Context) (int, error) {
	unlock, err := s.challenges.Locker.Lock(ctx, cleanupLockKey)
	if err != nil {
		return 0, err
	}
	defer unlock()

	cutoff := s.challenges.Clock.Now().Add(-s.ttl)
	removed, err := s.challenges.ExpirePending(ctx, cutoff)
	if removed > 0 {
		s.challenges.Logger.Info("stale challenges removed", zap.Int("count", removed))
	}
	return removed, err
}
