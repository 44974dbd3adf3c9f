package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
)

// JobTypeAuditLog identifies audit persistence jobs.
const JobTypeAuditLog = "audit_log"

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AuditService records audit trail entries off the request path. Without a
// queue it writes synchronously.
type AuditService struct {
	writer  auditWriter
	queue   jobEnqueuer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(writer auditWriter, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{writer: writer, metrics: metrics, logger: logger}
}

// UseQueue routes records through the given queue.
func (s *AuditService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Record persists the entry. Failures are logged and counted, never returned.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) {
	if s == nil || log == nil {
		return
	}
	if s.queue != nil {
		job := jobs.Job{ID: log.Action + ":" + derefString(log.ResourceID), Type: JobTypeAuditLog, Payload: log}
		if err := s.queue.Enqueue(job); err != nil {
			s.metrics.RecordAuditDropped()
			s.logger.Warn("failed to enqueue audit log", zap.String("action", log.Action), zap.Error(err))
		}
		return
	}
	if s.writer == nil {
		return
	}
	if err := s.writer.CreateAuditLog(ctx, log); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("failed to persist audit log", zap.String("action", log.Action), zap.Error(err))
	}
}

// Handle is the queue handler persisting queued audit logs.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok || log == nil {
		return fmt.Errorf("unexpected audit payload %T", job.Payload)
	}
	if s.writer == nil {
		return nil
	}
	return s.writer.CreateAuditLog(ctx, log)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
