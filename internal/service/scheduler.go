package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is a task run once a day at a wall clock time
type Job struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// DailyScheduler runs jobs once a day in a fixed location
type DailyScheduler struct {
	jobs     []Job
	location *time.Location
	log      zerolog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDailyScheduler creates a new scheduler
func NewDailyScheduler(location *time.Location, log zerolog.Logger, jobs ...Job) *DailyScheduler {
	if location == nil {
		location = time.Local
	}
	return &DailyScheduler{
		jobs:     jobs,
		location: location,
		log:      log,
		now:      time.Now,
	}
}

// Start starts one loop per job
func (s *DailyScheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
		s.log.Info().
			Str("job", job.Name).
			Str("at", fmt.Sprintf("%02d:%02d", job.Hour, job.Minute)).
			Str("tz", s.location.String()).
			Msg("job scheduled")
	}
}

// Stop stops all loops and waits for a running job to return
func (s *DailyScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *DailyScheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	for {
		next := NextDaily(s.now().In(s.location), job.Hour, job.Minute)
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.log.Info().Str("job", job.Name).Msg("job started")
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.log.Error().Err(err).Str("job", job.Name).Msg("job failed")
		} else {
			s.log.Info().Str("job", job.Name).Dur("took", time.Since(start)).Msg("job finished")
		}
	}
}

// NextDaily returns the first hour:minute strictly after now, in now's location
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ParseHHMM parses "HH:MM"; malformed or out of range values yield def
func ParseHHMM(s, def string) (hour, minute int) {
	if h, m, ok := parseHHMM(s); ok {
		return h, m
	}
	h, m, _ := parseHHMM(def)
	return h, m
}

func parseHHMM(s string) (int, int, bool) {
	hs, ms, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(hs)
	m, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
