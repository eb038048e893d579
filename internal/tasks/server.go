package tasks

import (
	"context"
	"fmt"

	"marketplace/internal/config"
	"marketplace/internal/utils/logger"

	"github.com/hibiken/asynq"
)

var queues = map[string]int{
	QueueCritical: 6, // High priority
	QueueDefault:  3, // Medium priority
	QueueLow:      1, // Low priority
}

// Server handles task processing
type Server struct {
	server      *asynq.Server
	handler     *TaskHandler
	logger      *logger.Logger
	concurrency int
}

// NewServer creates a new task processing server
func NewServer(redis config.RedisConfig, worker config.WorkerConfig, handler *TaskHandler, logger *logger.Logger) *Server {
	concurrency := worker.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	server := asynq.NewServer(
		RedisOpt(redis),
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			// Enable strict priority, meaning higher priority queues are processed first
			StrictPriority: true,
		},
	)

	return &Server{
		server:      server,
		handler:     handler,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Mux returns the routing of task types to handlers.
func (s *Server) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	s.handler.Register(mux)
	return mux
}

// Start starts the task processing server. It returns once the workers run.
func (s *Server) Start(_ context.Context) error {
	s.logger.Info("starting task processing server concurrency %d queues %v", s.concurrency, queues)

	if err := s.server.Start(s.Mux()); err != nil {
		return fmt.Errorf("failed to start task server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the task processing server
func (s *Server) Shutdown() {
	s.logger.Info("shutting down task processing server")
	s.server.Shutdown()
}
