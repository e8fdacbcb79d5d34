// Package pgsink implements a pgx-backed Postgres sink agent: every derived
// record in a write is appended to a configured table as a JSONB row.
// Grounded on the teacher's internal/adapter/repo/postgres package for pool
// construction, parameterized SQL, and OTEL span conventions.
package pgsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// ClassName is the registry key this agent is built under.
const ClassName = "builtin.pgsink"

// Agent writes every record it receives into a Postgres table as a single
// JSONB column, keyed by an autoincrement id.
type Agent struct {
	pool     *pgxpool.Pool
	table    string
	onCommit domain.CommitCallback
}

type config struct {
	DSN   string `json:"dsn"`
	Table string `json:"table"`
}

// New constructs an un-initialized Agent; Init opens the pool. Matches the
// registry.Constructor signature so it can be registered directly.
func New(context.Context, map[string]any) (domain.Agent, error) {
	return &Agent{}, nil
}

// Capabilities reports this agent fills only the sink role.
func (a *Agent) Capabilities() domain.Capability { return domain.CapWrite }

// Init parses cfg and opens a connection pool.
func (a *Agent) Init(ctx context.Context, cfg map[string]any) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("pgsink: marshal configuration: %w", err)
	}
	var c config
	if err := json.Unmarshal(raw, &c); err != nil {
		return fmt.Errorf("pgsink: parse configuration: %w", err)
	}
	if c.DSN == "" {
		return fmt.Errorf("pgsink: configuration.dsn is required")
	}
	if c.Table == "" {
		c.Table = "pod_sink_records"
	}

	poolCfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return fmt.Errorf("pgsink: parse dsn: %w", err)
	}
	poolCfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("pgsink: open pool: %w", err)
	}
	a.pool = pool
	a.table = c.Table
	return nil
}

// Close releases the connection pool.
func (a *Agent) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// SetCommitCallback stores cb. A committed insert transaction means every
// record in the batch is durable, so Write invokes cb itself right after
// the transaction commits.
func (a *Agent) SetCommitCallback(cb domain.CommitCallback) { a.onCommit = cb }

// Write inserts every record in batch as a row, in a single transaction so
// the batch either lands entirely or not at all, matching the batch-
// granularity retry contract the Sink Writer assumes (spec.md §4.5).
func (a *Agent) Write(ctx context.Context, batch domain.Batch) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgsink: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(`INSERT INTO %s (payload) VALUES ($1)`, a.table)
	for _, rec := range batch {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("pgsink: marshal payload: %w", err)
		}
		if _, err := tx.Exec(ctx, q, payload); err != nil {
			return fmt.Errorf("pgsink: insert row: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgsink: commit tx: %w", err)
	}

	if a.onCommit != nil {
		return a.onCommit(ctx, batch)
	}
	return nil
}
