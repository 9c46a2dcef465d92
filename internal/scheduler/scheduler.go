// Package scheduler drives the recurring fleet work: a daily full
// collection, a lightweight metrics pass on a short interval, and alert
// evaluation after each metrics pass.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/spacefleet/spacefleet/internal/alert"
	"github.com/spacefleet/spacefleet/internal/collector"
	"github.com/spacefleet/spacefleet/internal/config"
	"github.com/spacefleet/spacefleet/internal/logger"
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Scheduler owns the two recurring loops. Start launches them; Stop waits
// for in-flight work to finish.
type Scheduler struct {
	collector *collector.Collector
	evaluator *alert.Evaluator
	cfg       *config.Config
	log       logger.Logger
	clock     Clock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(c *collector.Collector, e *alert.Evaluator, cfg *config.Config, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{collector: c, evaluator: e, cfg: cfg, log: log, clock: realClock{}}
}

// Start launches the daily and metrics loops. Returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.dailyLoop(ctx)
	go s.metricsLoop(ctx)
}

// Stop cancels the loops and blocks until both have exited. In-flight host
// collections run to their own deadlines.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) dailyLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		wait := untilNext(s.clock.Now(), s.cfg.Collection.Hour, s.cfg.Collection.Minute)
		s.log.Debug("next full collection in %s", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(wait):
		}

		s.log.Info("starting scheduled full collection")
		statuses, err := s.collector.CollectFleet(ctx)
		if err != nil {
			s.log.Error("scheduled collection: %v", err)
			continue
		}
		ok := 0
		for _, st := range statuses {
			if st.Success {
				ok++
			} else {
				s.log.Error("collection failed for %s: %s", st.Name, st.Error)
			}
		}
		s.log.Info("scheduled collection done: %d/%d hosts", ok, len(statuses))
	}
}

func (s *Scheduler) metricsLoop(ctx context.Context) {
	defer s.wg.Done()
	interval := s.cfg.Collection.MetricsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		}

		if _, err := s.collector.CollectFleetMetrics(ctx); err != nil {
			s.log.Error("metrics pass: %v", err)
			continue
		}
		if _, err := s.evaluator.Evaluate(ctx); err != nil {
			s.log.Error("alert evaluation: %v", err)
		}
	}
}

// untilNext computes how long to sleep before the next hh:mm occurrence,
// rolling to tomorrow when today's slot already passed.
func untilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
