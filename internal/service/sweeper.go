package service

import (
	"context"
	"log"
	"time"
)

// SweepSessions force-closes sessions whose wall-clock deadline passed
// while still marked active. Idempotent at the record level; returns
// how many it closed.
func (s *Service) SweepSessions(ctx context.Context) (int, error) {
	closed, err := s.store.SweepExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		s.metrics.SweptRecords.WithLabelValues("session").Add(float64(closed))
		log.Printf("INFO: sweep closed %d expired sessions", closed)
	}
	return closed, nil
}

// SweepRecommendations marks expired non-terminal generation requests
// EXPIRED, including any GENERATING rows orphaned by a crash mid-call.
func (s *Service) SweepRecommendations(ctx context.Context) (int, error) {
	expired, err := s.store.SweepExpiredParams(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.metrics.SweptRecords.WithLabelValues("recommendation").Add(float64(expired))
		log.Printf("INFO: sweep expired %d recommendation requests", expired)
	}
	return expired, nil
}

// PurgeRecommendations deletes expired or EXPIRED-marked requests.
func (s *Service) PurgeRecommendations(ctx context.Context) (int, error) {
	purged, err := s.store.PurgeExpiredParams(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.metrics.SweptRecords.WithLabelValues("recommendation_purged").Add(float64(purged))
		log.Printf("INFO: purged %d recommendation requests", purged)
	}
	return purged, nil
}

// StartSweeper runs the sweeps on a ticker until ctx is cancelled.
// Overlap with in-flight request traffic is safe: each sweep is a
// single guarded statement at the store.
func (s *Service) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.Printf("INFO: sweeper started, interval %s", interval)
		for {
			select {
			case <-ctx.Done():
				log.Printf("INFO: sweeper shutting down: %v", ctx.Err())
				return
			case <-ticker.C:
				if _, err := s.SweepSessions(ctx); err != nil {
					log.Printf("ERROR: session sweep failed: %v", err)
				}
				if _, err := s.SweepRecommendations(ctx); err != nil {
					log.Printf("ERROR: recommendation sweep failed: %v", err)
				}
				if _, err := s.PurgeRecommendations(ctx); err != nil {
					log.Printf("ERROR: recommendation purge failed: %v", err)
				}
			}
		}
	}()
}
