package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-api/internal/models"
	"github.com/noah-isme/tutoring-api/pkg/jobs"
)

type auditWriterStub struct {
	logs chan *models.AuditLog
	err  error
}

func (s *auditWriterStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if s.err != nil {
		return s.err
	}
	s.logs <- log
	return nil
}

type enqueuerStub struct {
	err  error
	jobs []jobs.Job
}

func (s *enqueuerStub) Enqueue(job jobs.Job) error {
	if s.err != nil {
		return s.err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

func TestAuditServiceWritesSynchronously(t *testing.T) {
	writer := &auditWriterStub{logs: make(chan *models.AuditLog, 1)}
	svc := NewAuditService(writer, nil, zap.NewNop())

	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionTutoringCreate})
	require.Len(t, writer.logs, 1)
}

func TestAuditServiceQueueRoundTrip(t *testing.T) {
	writer := &auditWriterStub{logs: make(chan *models.AuditLog, 1)}
	svc := NewAuditService(writer, nil, zap.NewNop())
	queue := jobs.NewQueue("audit", svc.Handle, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	svc.UseQueue(queue)

	id := "t-1"
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionTutoringComplete, ResourceID: &id})

	select {
	case log := <-writer.logs:
		assert.Equal(t, models.AuditActionTutoringComplete, log.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("audit log was not persisted")
	}
}

func TestAuditServiceCountsDrops(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewAuditService(nil, metrics, zap.NewNop())
	svc.UseQueue(&enqueuerStub{err: jobs.ErrQueueFull})

	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionFeedbackSubmit})
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.auditDropped))

	writerErr := NewAuditService(&auditWriterStub{err: errors.New("db down")}, metrics, zap.NewNop())
	writerErr.Record(context.Background(), &models.AuditLog{Action: models.AuditActionFeedbackSubmit})
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.auditDropped))
}

func TestAuditServiceHandleRejectsForeignPayload(t *testing.T) {
	svc := NewAuditService(nil, nil, nil)
	err := svc.Handle(context.Background(), jobs.Job{Type: JobTypeAuditLog, Payload: "oops"})
	assert.Error(t, err)
}

func TestMetricsRecordTransition(t *testing.T) {
	metrics := NewMetricsService()
	w := newTutoringWorld()
	svc := newAssignmentService(w, WithMetrics(metrics))

	_, err := svc.CreateTutoring(context.Background(), "req-1", "tutee-2", "")
	require.Error(t, err)
	_, err = svc.CreateTutoring(context.Background(), "req-1", "tutor-1", "")
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.transitions.WithLabelValues("create", "INVALID_ROLE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.transitions.WithLabelValues("create", "ok")))
}
