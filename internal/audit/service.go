package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Enqueuer hands a record to the background queue for durable delivery.
type Enqueuer interface {
	EnqueueAudit(ctx context.Context, rec Record) error
}

// Service appends audit records and answers filtered queries. Writes are
// best-effort: a failed write is logged and counted, never surfaced to the
// operation being documented.
type Service struct {
	sink    Sink
	queue   Enqueuer
	logger  *slog.Logger
	dropped prometheus.Counter
	now     func() time.Time
}

// NewService constructs a Service. queue may be nil, in which case records
// are appended synchronously. dropped may be nil when metrics are disabled.
func NewService(sink Sink, queue Enqueuer, logger *slog.Logger, dropped prometheus.Counter) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sink:    sink,
		queue:   queue,
		logger:  logger,
		dropped: dropped,
		now:     time.Now,
	}
}

// WithClock overrides the time source. Tests only.
func (s *Service) WithClock(fn func() time.Time) *Service {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Record appends one entry. The record is assigned a fresh id and the current
// timestamp. Failures never propagate; silent loss is still a compliance risk
// in this domain, so every drop is logged and counted.
func (s *Service) Record(ctx context.Context, rec Record) {
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now().UTC()

	if s.queue != nil {
		err := s.queue.EnqueueAudit(ctx, rec)
		if err == nil {
			return
		}
		s.logger.Warn("audit enqueue failed, falling back to direct append",
			slog.String("action", rec.Action), slog.Any("error", err))
	}
	if err := s.sink.Append(ctx, rec); err != nil {
		s.logger.Error("audit write dropped",
			slog.String("action", rec.Action),
			slog.String("actor_id", rec.ActorID),
			slog.Any("error", err))
		if s.dropped != nil {
			s.dropped.Inc()
		}
	}
}

// Append writes one record directly to the sink. Used by the queue worker;
// unlike Record it propagates the error so the queue can retry.
func (s *Service) Append(ctx context.Context, rec Record) error {
	return s.sink.Append(ctx, rec)
}

// ByActor returns the actor's records newest-first. Zero from/to bounds are
// open. Store failures degrade to an empty result.
func (s *Service) ByActor(ctx context.Context, actorID string, from, to time.Time) []Record {
	recs, err := s.sink.ListByActor(ctx, actorID, from, to)
	if err != nil {
		s.logger.Error("audit query by actor failed", slog.String("actor_id", actorID), slog.Any("error", err))
		return nil
	}
	return recs
}

// ByEntity returns records touching one entity, newest-first.
func (s *Service) ByEntity(ctx context.Context, entityType, entityID string) []Record {
	recs, err := s.sink.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		s.logger.Error("audit query by entity failed",
			slog.String("entity_type", entityType), slog.String("entity_id", entityID), slog.Any("error", err))
		return nil
	}
	return recs
}

// System returns all records in the window, newest-first.
func (s *Service) System(ctx context.Context, from, to time.Time) []Record {
	recs, err := s.sink.ListSystem(ctx, from, to)
	if err != nil {
		s.logger.Error("audit system query failed", slog.Any("error", err))
		return nil
	}
	return recs
}
