package audit

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	records   []Record
	appendErr error
	listErr   error
}

func (m *memorySink) Append(ctx context.Context, rec Record) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memorySink) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Record
	for _, rec := range m.records {
		if rec.ActorID != actorID {
			continue
		}
		if !from.IsZero() && rec.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && rec.CreatedAt.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return newestFirst(out), nil
}

func (m *memorySink) ListByEntity(ctx context.Context, entityType, entityID string) ([]Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Record
	for _, rec := range m.records {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	return newestFirst(out), nil
}

func (m *memorySink) ListSystem(ctx context.Context, from, to time.Time) ([]Record, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return newestFirst(append([]Record(nil), m.records...)), nil
}

func newestFirst(recs []Record) []Record {
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs
}

type stubEnqueuer struct {
	enqueued []Record
	err      error
}

func (s *stubEnqueuer) EnqueueAudit(ctx context.Context, rec Record) error {
	if s.err != nil {
		return s.err
	}
	s.enqueued = append(s.enqueued, rec)
	return nil
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	sink := &memorySink{}
	svc := NewService(sink, nil, nil, nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return fixed })

	svc.Record(context.Background(), Record{ActorID: "acct-1", Action: ActionLogin, EntityType: "User", EntityID: "acct-1"})

	require.Len(t, sink.records, 1)
	require.NotEmpty(t, sink.records[0].ID)
	require.Equal(t, fixed, sink.records[0].CreatedAt)
}

func TestRecordPrefersQueue(t *testing.T) {
	sink := &memorySink{}
	queue := &stubEnqueuer{}
	svc := NewService(sink, queue, nil, nil)

	svc.Record(context.Background(), Record{ActorID: "acct-1", Action: ActionLogout})

	require.Len(t, queue.enqueued, 1)
	require.Empty(t, sink.records)
}

func TestRecordFallsBackWhenQueueFails(t *testing.T) {
	sink := &memorySink{}
	queue := &stubEnqueuer{err: errors.New("redis down")}
	svc := NewService(sink, queue, nil, nil)

	svc.Record(context.Background(), Record{ActorID: "acct-1", Action: ActionLogin})

	require.Len(t, sink.records, 1)
}

func TestRecordSwallowsSinkFailure(t *testing.T) {
	sink := &memorySink{appendErr: errors.New("store unavailable")}
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_audit_dropped_total"})
	svc := NewService(sink, nil, nil, dropped)

	// Must not panic or propagate.
	svc.Record(context.Background(), Record{ActorID: "acct-1", Action: ActionLogin})

	require.Equal(t, 1.0, testutil.ToFloat64(dropped))
}

func TestQueriesNewestFirst(t *testing.T) {
	sink := &memorySink{}
	svc := NewService(sink, nil, nil, nil)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		svc.WithClock(func() time.Time { return base.Add(time.Duration(i) * time.Hour) })
		svc.Record(context.Background(), Record{ActorID: "acct-1", Action: ActionLogin, EntityType: "User", EntityID: "acct-1"})
	}

	recs := svc.ByActor(context.Background(), "acct-1", time.Time{}, time.Time{})
	require.Len(t, recs, 3)
	require.True(t, recs[0].CreatedAt.After(recs[1].CreatedAt))
	require.True(t, recs[1].CreatedAt.After(recs[2].CreatedAt))

	recs = svc.ByActor(context.Background(), "acct-1", base.Add(30*time.Minute), time.Time{})
	require.Len(t, recs, 2)

	recs = svc.ByEntity(context.Background(), "User", "acct-1")
	require.Len(t, recs, 3)

	recs = svc.System(context.Background(), time.Time{}, time.Time{})
	require.Len(t, recs, 3)
}

func TestQueriesDegradeToEmptyOnStoreFailure(t *testing.T) {
	sink := &memorySink{listErr: errors.New("store unavailable")}
	svc := NewService(sink, nil, nil, nil)

	require.Empty(t, svc.ByActor(context.Background(), "acct-1", time.Time{}, time.Time{}))
	require.Empty(t, svc.ByEntity(context.Background(), "User", "acct-1"))
	require.Empty(t, svc.System(context.Background(), time.Time{}, time.Time{}))
}
