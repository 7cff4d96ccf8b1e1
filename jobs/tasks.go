package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/medvault/medvault/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditAppend is the task type for persisting one audit record.
	TaskTypeAuditAppend = "audit:append"
)

// NewAuditAppendTask constructs an Asynq task carrying one audit record.
func NewAuditAppendTask(rec audit.Record) (*asynq.Task, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditAppend, data), nil
}

// AuditAppendJob writes queued audit records to the durable sink.
type AuditAppendJob struct {
	Audit  *audit.Service
	Logger *slog.Logger
}

// NewAuditAppendJob initialises the audit append handler.
func NewAuditAppendJob(auditSvc *audit.Service, logger *slog.Logger) *AuditAppendJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditAppendJob{Audit: auditSvc, Logger: logger}
}

// Handle processes TaskTypeAuditAppend tasks. Persistence errors are returned
// so the queue retries the write.
func (j *AuditAppendJob) Handle(ctx context.Context, t *asynq.Task) error {
	var rec audit.Record
	if err := json.Unmarshal(t.Payload(), &rec); err != nil {
		return asynq.SkipRetry
	}
	if err := j.Audit.Append(ctx, rec); err != nil {
		j.Logger.Warn("audit append deferred",
			slog.String("record_id", rec.ID), slog.Any("error", err))
		return err
	}
	return nil
}
