package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

const lockPrefix = "lock:pix-lifecycle:sync:"

// ErrUnknownJob is returned by RunNow for a name no job was registered under.
var ErrUnknownJob = errors.New("unknown sync job")

// ErrLockLost is the cancellation cause of a pass whose lock expired.
var ErrLockLost = errors.New("sync lock lost")

// Job is one reconciliation pass.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
}

// RunResult reports what a locked run did.
type RunResult struct {
	Job      string        `json:"job"`
	Skipped  bool          `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Scheduler runs sync jobs on cron schedules. Every run, scheduled or
// manual, holds a redis mutex for its job so replicas never overlap. The
// mutex is extended while the pass runs, so lockExpiry only bounds how long
// a crashed replica keeps the job blocked.
type Scheduler struct {
	cron       *cron.Cron
	rs         *redsync.Redsync
	jobs       map[string]Job
	specs      map[string]string
	lockExpiry time.Duration
}

func New(client *redis.Client, lockExpiry time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		rs:         redsync.New(goredis.NewPool(client)),
		jobs:       make(map[string]Job),
		specs:      make(map[string]string),
		lockExpiry: lockExpiry,
	}
}

// Register schedules job under spec. An empty spec registers the job for
// manual runs only.
func (s *Scheduler) Register(spec string, job Job) error {
	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("sync job %s registered twice", job.Name())
	}

	if spec != "" {
		_, err := s.cron.AddFunc(spec, func() {
			if _, err := s.RunNow(context.Background(), job.Name()); err != nil {
				telemetry.Logger.Error("Sync job failed", zap.String("job", job.Name()), zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", spec, job.Name(), err)
		}
	}

	s.jobs[job.Name()] = job
	s.specs[job.Name()] = spec
	return nil
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Spec returns the cron schedule of a job, empty for manual-only jobs.
func (s *Scheduler) Spec(name string) string {
	return s.specs[name]
}

func (s *Scheduler) Start() {
	s.cron.Start()
	telemetry.Logger.Info("Scheduler started", zap.Strings("jobs", s.Jobs()))
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunNow executes one pass of the named job if its lock is free.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*RunResult, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	mutex := s.rs.NewMutex(lockPrefix+name,
		redsync.WithExpiry(s.lockExpiry),
		redsync.WithTries(1),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if lockTaken(err) {
			telemetry.Logger.Debug("Sync job already running elsewhere", zap.String("job", name))
			return &RunResult{Job: name, Skipped: true}, nil
		}
		return nil, fmt.Errorf("failed to lock sync job %s: %w", name, err)
	}
	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			telemetry.Logger.Warn("Failed to release sync lock", zap.String("job", name), zap.Error(err))
		}
	}()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stopExtending := s.keepLocked(runCtx, name, mutex, cancel)

	start := time.Now()
	err := job.Execute(runCtx)
	duration := time.Since(start)
	stopExtending()

	if err != nil {
		return nil, fmt.Errorf("sync job %s: %w", name, err)
	}

	telemetry.Logger.Info("Sync job finished", zap.String("job", name), zap.Duration("duration", duration))
	return &RunResult{Job: name, Duration: duration}, nil
}

// keepLocked extends mutex every half expiry until the returned func is
// called. A pass whose lock cannot be extended is cancelled, since another
// replica may already hold it.
func (s *Scheduler) keepLocked(ctx context.Context, name string, mutex *redsync.Mutex, cancel context.CancelCauseFunc) func() {
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(max(s.lockExpiry/2, time.Millisecond))
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ok, err := mutex.ExtendContext(ctx); !ok || err != nil {
					telemetry.Logger.Warn("Lost sync lock, cancelling pass", zap.String("job", name), zap.Error(err))
					cancel(fmt.Errorf("%w: %s", ErrLockLost, name))
					return
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
	}
}

func lockTaken(err error) bool {
	return errors.Is(err, redsync.ErrFailed) ||
		strings.Contains(err.Error(), "lock already taken") ||
		strings.Contains(err.Error(), "failed to acquire lock")
}
