package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsefit/pulsefit-api/internal/models"
	"github.com/pulsefit/pulsefit-api/pkg/config"
	"github.com/pulsefit/pulsefit-api/pkg/jobs"
)

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService records booking and schedule mutations asynchronously so a
// slow audit write never sits on the request path.
type AuditService struct {
	repo    auditWriter
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewAuditService constructs the audit trail writer with its worker queue.
func NewAuditService(repo auditWriter, cfg config.AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue("audit", s.persist, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AuditService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record enqueues an audit entry. Failures are logged, never surfaced to the
// request that produced the entry.
func (s *AuditService) Record(entry *models.AuditLog) {
	if !s.enabled || entry == nil {
		return
	}
	task := jobs.Task{ID: uuid.NewString(), Type: entry.Action, Payload: entry}
	if err := s.queue.Enqueue(task); err != nil {
		s.logger.Warn("audit enqueue failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func (s *AuditService) persist(ctx context.Context, task jobs.Task) error {
	entry, ok := task.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", task.Payload)
	}
	return s.repo.Create(ctx, entry)
}
