// Package jobs runs the backend's background maintenance: per-node daily
// summary rollups and retention purging of old readings.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/rtorralba/floodwatch/internal/store"
)

type Scheduler struct {
	store     *store.Store
	loc       *time.Location
	retention time.Duration
}

// NewScheduler builds the background job runner. retention bounds how long
// raw readings are kept; zero disables purging.
func NewScheduler(store *store.Store, loc *time.Location, retention time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		loc:       loc,
		retention: retention,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.runDailyJobsIfNeeded()

	dailyTicker := time.NewTicker(1 * time.Hour)
	purgeTicker := time.NewTicker(6 * time.Hour)
	defer dailyTicker.Stop()
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: shutting down")
			return
		case <-dailyTicker.C:
			s.runDailyJobsIfNeeded()
		case <-purgeTicker.C:
			s.purgeOldReadings()
		}
	}
}

// runDailyJobsIfNeeded rolls up yesterday's summaries during the local
// early-morning window. The hourly tick plus the window guard means each
// day's rollup runs once even across restarts, since the upsert is
// idempotent.
func (s *Scheduler) runDailyJobsIfNeeded() {
	localNow := time.Now().In(s.loc)
	if localNow.Hour() >= 1 && localNow.Hour() < 2 {
		yesterday := localNow.AddDate(0, 0, -1)
		if err := s.ComputeDailySummaries(yesterday); err != nil {
			log.Printf("jobs: daily summaries: %v", err)
		}
	}
}

// ComputeDailySummaries rolls every active node's readings for the given
// local day into its summary row.
func (s *Scheduler) ComputeDailySummaries(forDate time.Time) error {
	nodes, err := s.store.GetActiveNodes()
	if err != nil {
		return err
	}

	computed := 0
	for _, node := range nodes {
		summary, err := s.store.ComputeNodeDailySummary(node.NodeID, forDate)
		if err != nil {
			log.Printf("jobs: compute summary %s: %v", node.NodeID, err)
			continue
		}
		if summary.ReadingCount == 0 {
			continue
		}
		if err := s.store.UpsertNodeDailySummary(*summary); err != nil {
			log.Printf("jobs: upsert summary %s: %v", node.NodeID, err)
			continue
		}
		computed++
	}
	log.Printf("jobs: computed %d daily summaries for %s", computed, forDate.Format("2006-01-02"))
	return nil
}

func (s *Scheduler) purgeOldReadings() {
	if s.retention <= 0 {
		return
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.store.DeleteReadingsBefore(cutoff)
	if err != nil {
		log.Printf("jobs: purge readings: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("jobs: purged %d readings older than %s", deleted, cutoff.Format("2006-01-02"))
	}
}

// Backfill recomputes daily summaries for the trailing n days, oldest first.
func (s *Scheduler) Backfill(days int) error {
	localNow := time.Now().In(s.loc)
	for i := days; i >= 1; i-- {
		if err := s.ComputeDailySummaries(localNow.AddDate(0, 0, -i)); err != nil {
			return err
		}
	}
	return nil
}
