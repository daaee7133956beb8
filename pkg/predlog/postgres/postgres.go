// Package postgres stores prediction records in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	kpool "github.com/YounessBoumeshouli/MLOps/pkg/conn/db/postgres/pool"
	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/predlog"
)

// Open connects to the database at dsn and ensures the schema.
// Close the returned pool when done with it.
func Open(ctx context.Context, dsn string) (kpool.Pool, error) {
	p, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	pool := kpool.Wrap(p)
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// EnsureSchema creates the prediction_log table when it is missing.
func EnsureSchema(ctx context.Context, pool kpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx,
		`
		create table if not exists "prediction_log" (
			"id" uuid primary key,
			"recorded_at" timestamp with time zone not null,
			"model_version" text not null,
			"features" jsonb not null,
			"prediction" double precision not null,
			"scores" jsonb,
			"latency_ms" double precision not null,
			"outcome" text not null
		);
		`,
	); err != nil {
		return xe.Wrap(err)
	}

	if _, err := conn.Exec(
		ctx,
		`
		create index if not exists "prediction_log_recorded_at"
			on "prediction_log" ("recorded_at");
		`,
	); err != nil {
		return xe.Wrap(err)
	}

	return nil
}

type pgStore struct {
	pool kpool.Pool
}

// New builds a Store writing to the prediction_log table.
func New(pool kpool.Pool) predlog.Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) Append(ctx context.Context, r predlog.Record) error {
	features, err := json.Marshal(r.Features)
	if err != nil {
		return xe.Wrap(err)
	}

	// nil stays NULL in the scores column.
	var scores []byte
	if r.Scores != nil {
		scores, err = json.Marshal(r.Scores)
		if err != nil {
			return xe.Wrap(err)
		}
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return xe.Wrap(err)
	}
	defer conn.Release()

	if _, err := conn.Exec(
		ctx,
		`
		insert into "prediction_log" (
			"id", "recorded_at", "model_version", "features",
			"prediction", "scores", "latency_ms", "outcome"
		) values ($1, $2, $3, $4, $5, $6, $7, $8);
		`,
		r.ID.String(), r.RecordedAt, r.ModelVersion, features,
		r.Prediction, scores, r.LatencyMS, r.Outcome,
	); err != nil {
		return xe.Wrap(err)
	}

	return nil
}
