package task

import (
	"context"
	"os"

	"karaokebox/config"

	"go.uber.org/zap"
)

// JobRunner is the processing pipeline a worker executes for one task.
type JobRunner interface {
	Run(ctx context.Context, videoPath, taskID, originalName string) (message string, err error)
}

type job struct {
	id           string
	videoPath    string
	originalName string
}

// Manager schedules uploaded videos onto a bounded worker pool. Each job is
// an atomic unit of work: extraction plus the blocking separator run plus
// the file copies, holding its worker slot for the whole duration.
type Manager struct {
	cfg            *config.Config
	log            *zap.Logger
	registry       *Registry
	runner         JobRunner
	queue          chan job
	concurrencySem chan struct{}
}

func NewManager(cfg *config.Config, log *zap.Logger, registry *Registry, runner JobRunner) *Manager {
	return &Manager{
		cfg:            cfg,
		log:            log,
		registry:       registry,
		runner:         runner,
		queue:          make(chan job, 100),
		concurrencySem: make(chan struct{}, cfg.MaxConcurrency),
	}
}

func (m *Manager) Start(ctx context.Context) {
	m.log.Info("task manager started", zap.Int("concurrency", m.cfg.MaxConcurrency))
	go m.workerLoop(ctx)
}

// workerLoop pulls jobs from the queue and processes them.
func (m *Manager) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.log.Info("worker loop shutting down")
			return
		case j := <-m.queue:
			// Wait for a free processing slot.
			m.concurrencySem <- struct{}{}
			go func(j job) {
				defer func() { <-m.concurrencySem }() // release slot
				m.process(ctx, j)
			}(j)
		}
	}
}

// Submit registers a processing task for an already-persisted upload and
// enqueues it. It returns without waiting for processing; the id comes from
// the caller because the scratch upload is named after it.
func (m *Manager) Submit(id, videoPath, originalName string) {
	m.registry.Create(id, originalName)
	m.queue <- job{id: id, videoPath: videoPath, originalName: originalName}
	m.log.Info("task submitted", zap.String("task_id", id), zap.String("file", originalName))
}

// process runs one job to its terminal state and removes the scratch
// upload afterwards, success or failure.
func (m *Manager) process(parentCtx context.Context, j job) {
	taskCtx, cancel := context.WithTimeout(parentCtx, m.cfg.TaskTimeout)
	defer cancel()

	m.log.Info("processing task", zap.String("task_id", j.id))

	message, err := m.runner.Run(taskCtx, j.videoPath, j.id, j.originalName)
	if err != nil {
		m.log.Error("task failed", zap.String("task_id", j.id), zap.Error(err))
		m.registry.Update(j.id, StatusFailed, err.Error())
	} else {
		m.log.Info("task completed", zap.String("task_id", j.id), zap.String("message", message))
		m.registry.Update(j.id, StatusCompleted, message)
	}

	// The uploads area must not grow unbounded.
	if err := os.Remove(j.videoPath); err != nil && !os.IsNotExist(err) {
		m.log.Warn("could not remove scratch upload", zap.String("path", j.videoPath), zap.Error(err))
	}
}
