package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of scheduled work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobStats is the bookkeeping of one scheduled job
type JobStats struct {
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs jobs on cron schedules (six fields, seconds first). It is a Worker.
type Scheduler struct {
	name    string
	timeout time.Duration
	cron    *cron.Cron
	logger  *zap.Logger

	mu    sync.RWMutex
	ctx   context.Context
	stats map[string]*JobStats
}

// NewScheduler creates a scheduler; every run gets at most timeout (0 = none)
func NewScheduler(name string, timeout time.Duration, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		name:    name,
		timeout: timeout,
		logger:  logger,
		ctx:     context.Background(),
		stats:   make(map[string]*JobStats),
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// AddJob schedules job on spec, e.g. "0 */5 * * * *" or "@every 1h"
func (s *Scheduler) AddJob(spec string, job Job) error {
	if _, err := s.cron.AddFunc(spec, func() { s.RunNow(job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
	}
	s.mu.Lock()
	s.stats[job.Name()] = &JobStats{}
	s.mu.Unlock()
	s.logger.Info("Job scheduled", zap.String("job", job.Name()), zap.String("spec", spec))
	return nil
}

// RunNow runs job once in the caller's goroutine and records the outcome
func (s *Scheduler) RunNow(job Job) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := job.Run(ctx)

	s.mu.Lock()
	st, ok := s.stats[job.Name()]
	if !ok {
		st = &JobStats{}
		s.stats[job.Name()] = st
	}
	st.Runs++
	st.LastRun = time.Now()
	st.LastError = ""
	if err != nil {
		st.Failures++
		st.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name()), zap.Error(err))
	}
}

// Start begins firing schedules; jobs see ctx until Stop
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	return nil
}

// Stop stops the schedules and waits for running jobs
func (s *Scheduler) Stop() error {
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) Name() string {
	return s.name
}

// Stats returns a copy of the per-job bookkeeping
func (s *Scheduler) Stats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]JobStats, len(s.stats))
	for name, st := range s.stats {
		out[name] = *st
	}
	return out
}

// cronLogger routes cron's own logging into zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
