package flowsource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"scriptforge/internal/flow"
)

type cachedFlow struct {
	steps []flow.RecordedStep
	meta  flow.Meta
}

// PostgresSource stores ingested flows one row per step. Payloads are the
// canonical step encoding, so rows are normalized once at ingest.
type PostgresSource struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, cachedFlow]
}

// NewPostgres opens and pings the step store.
func NewPostgres(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s, err := NewPostgresFromDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresFromDB wraps an already opened database.
func NewPostgresFromDB(db *sql.DB) (*PostgresSource, error) {
	if db == nil {
		return nil, errors.New("flowsource: db is nil")
	}
	cache, err := lru.New[string, cachedFlow](256)
	if err != nil {
		return nil, err
	}
	return &PostgresSource{db: db, cache: cache}, nil
}

func (s *PostgresSource) Close() error { return s.db.Close() }

func (s *PostgresSource) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS recorded_steps (
    flow_slug TEXT NOT NULL,
    flow_name TEXT NOT NULL,
    original_url TEXT NOT NULL DEFAULT '',
    step_index INTEGER NOT NULL,
    payload JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    PRIMARY KEY (flow_slug, step_index)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresSource) Steps(ctx context.Context, ref string) ([]flow.RecordedStep, flow.Meta, error) {
	slug := Slugify(ref)
	if hit, ok := s.cache.Get(slug); ok {
		return append([]flow.RecordedStep(nil), hit.steps...), hit.meta, nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, flow.Meta{}, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT flow_name, original_url, step_index, payload
FROM recorded_steps
WHERE flow_slug = $1
ORDER BY step_index`, slug)
	if err != nil {
		return nil, flow.Meta{}, err
	}
	defer rows.Close()

	meta := flow.Meta{Slug: slug}
	var steps []flow.RecordedStep
	for rows.Next() {
		var (
			index   int
			payload []byte
		)
		if err := rows.Scan(&meta.Name, &meta.OriginalURL, &index, &payload); err != nil {
			return nil, flow.Meta{}, err
		}
		step, err := decodeRow(index, payload)
		if err != nil {
			return nil, flow.Meta{}, fmt.Errorf("flow %s step %d: %w", slug, index, err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, flow.Meta{}, err
	}
	if len(steps) == 0 {
		return nil, flow.Meta{}, nil
	}
	steps = flow.Canonicalize(steps)
	s.cache.Add(slug, cachedFlow{steps: steps, meta: meta})
	return append([]flow.RecordedStep(nil), steps...), meta, nil
}

// Ingest replaces the stored flow with doc and returns the number of steps
// written.
func (s *PostgresSource) Ingest(ctx context.Context, doc flow.Document) (int, error) {
	slug := Slugify(firstNonEmpty(doc.Meta.Slug, doc.Meta.Name))
	if len(doc.Steps) == 0 {
		return 0, fmt.Errorf("flow %s has no steps", slug)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recorded_steps WHERE flow_slug = $1`, slug); err != nil {
		return 0, err
	}
	steps := flow.Canonicalize(doc.Steps)
	for _, step := range steps {
		step.Flow = slug
		payload, err := json.Marshal(step)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO recorded_steps (flow_slug, flow_name, original_url, step_index, payload)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (flow_slug, step_index)
DO UPDATE SET payload=EXCLUDED.payload, flow_name=EXCLUDED.flow_name, original_url=EXCLUDED.original_url, updated_at=NOW()
`, slug, firstNonEmpty(doc.Meta.Name, slug), doc.Meta.OriginalURL, step.Ordinal, payload); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.cache.Remove(slug)
	return len(steps), nil
}

// decodeRow restores a stored step. The row's step_index is authoritative.
func decodeRow(index int, payload []byte) (flow.RecordedStep, error) {
	var step flow.RecordedStep
	if err := json.Unmarshal(payload, &step); err != nil {
		return flow.RecordedStep{}, err
	}
	step.Ordinal = index
	return step, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
