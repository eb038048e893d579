package tasks

import (
	"fmt"
	"sync"

	"marketplace/internal/config"
	"marketplace/internal/utils/logger"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// Periodic is one recurring task.
type Periodic struct {
	Spec    string
	Type    string
	Payload []byte
	Opts    []asynq.Option
}

// Scheduler enqueues periodic maintenance tasks.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *logger.Logger
	periodic  []Periodic

	mu      sync.Mutex
	entries map[string]string // task type -> entry id
	running bool
}

// NewScheduler builds the scheduler with the maintenance table derived from cfg.
func NewScheduler(redis config.RedisConfig, worker config.WorkerConfig, logger *logger.Logger) *Scheduler {
	return newScheduler(asynq.NewScheduler(RedisOpt(redis), &asynq.SchedulerOpts{}), maintenance(worker), logger)
}

func newScheduler(s *asynq.Scheduler, periodic []Periodic, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		scheduler: s,
		logger:    logger,
		periodic:  periodic,
		entries:   make(map[string]string),
	}
}

func maintenance(worker config.WorkerConfig) []Periodic {
	spec := worker.CleanupSchedule
	if spec == "" {
		spec = DefaultCleanupSpec
	}
	return []Periodic{{
		Spec: spec,
		Type: TypeCleanupPasswordResets,
		Opts: []asynq.Option{asynq.Queue(QueueLow), asynq.MaxRetry(RetryMin), asynq.Timeout(TimeoutMedium)},
	}}
}

// Start registers the periodic tasks and blocks until Stop.
func (s *Scheduler) Start() error {
	for _, p := range s.periodic {
		if err := s.RegisterCustomTask(p.Spec, p.Type, p.Payload, p.Opts...); err != nil {
			return fmt.Errorf("failed to register tasks: %w", err)
		}
	}
	s.logger.Info("starting task scheduler with %d periodic tasks", len(s.periodic))

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return s.scheduler.Run()
}

// Stop shuts the scheduler down. It is a no-op when Start never ran.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running {
		return
	}
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// Entries returns the registered entry id per task type.
func (s *Scheduler) Entries() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// RegisterCustomTask registers a periodic task. A task type registered twice
// replaces its earlier entry.
func (s *Scheduler) RegisterCustomTask(spec string, taskType string, payload []byte, opts ...asynq.Option) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, taskType, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[taskType]; ok {
		if err := s.scheduler.Unregister(prev); err != nil {
			return fmt.Errorf("failed to replace %s: %w", taskType, err)
		}
	}

	entryID, err := s.scheduler.Register(spec, asynq.NewTask(taskType, payload, opts...))
	if err != nil {
		return fmt.Errorf("failed to register custom task: %w", err)
	}
	s.entries[taskType] = entryID

	s.logger.Info("registered periodic task %s (%s) as %s", taskType, spec, entryID)
	return nil
}
