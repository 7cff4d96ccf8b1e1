package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink persists audit records and answers filtered queries. Queries return
// newest entries first.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]Record, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]Record, error)
	ListSystem(ctx context.Context, from, to time.Time) ([]Record, error)
}

// PGSink implements Sink on PostgreSQL.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink constructs a PostgreSQL sink.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

const recordColumns = `id, actor_id, action, entity_type, entity_id, description, ip_address, user_agent, created_at`

// Append inserts one record. Records are never updated or deleted.
func (s *PGSink) Append(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_logs (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ActorID, rec.Action, rec.EntityType, rec.EntityID,
		rec.Description, rec.IPAddress, rec.UserAgent,
		pgtype.Timestamptz{Time: rec.CreatedAt, Valid: true})
	return err
}

// ListByActor returns records written for one actor inside the window.
// Zero-valued bounds leave that side of the window open.
func (s *PGSink) ListByActor(ctx context.Context, actorID string, from, to time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM audit_logs
		 WHERE actor_id = $1
		   AND ($2::timestamptz IS NULL OR created_at >= $2)
		   AND ($3::timestamptz IS NULL OR created_at <= $3)
		 ORDER BY created_at DESC`,
		actorID, optionalTime(from), optionalTime(to))
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// ListByEntity returns records touching one entity, newest first.
func (s *PGSink) ListByEntity(ctx context.Context, entityType, entityID string) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM audit_logs
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY created_at DESC`,
		entityType, entityID)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// ListSystem returns all records inside the window, newest first.
func (s *PGSink) ListSystem(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM audit_logs
		 WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		   AND ($2::timestamptz IS NULL OR created_at <= $2)
		 ORDER BY created_at DESC`,
		optionalTime(from), optionalTime(to))
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt pgtype.Timestamptz
		if err := rows.Scan(&rec.ID, &rec.ActorID, &rec.Action, &rec.EntityType, &rec.EntityID,
			&rec.Description, &rec.IPAddress, &rec.UserAgent, &createdAt); err != nil {
			return nil, err
		}
		if createdAt.Valid {
			rec.CreatedAt = createdAt.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func optionalTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

var _ Sink = (*PGSink)(nil)
