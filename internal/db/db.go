// Package db provides PostgreSQL storage for digest settings, runs and results.
package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonathan/news-digest/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DefaultListLimit is used when RunFilters.Limit is zero.
const DefaultListLimit = 50

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates any missing tables.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// FrequencyWeeks returns the newsletter frequency setting, or 0 when unset.
func (db *DB) FrequencyWeeks(ctx context.Context) (int, error) {
	var value string
	err := db.pool.QueryRow(ctx,
		`SELECT value FROM digest_settings WHERE key = $1`, SettingFrequencyWeeks,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read frequency setting: %w", err)
	}

	weeks, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid frequency setting %q: %w", value, err)
	}
	return weeks, nil
}

// SetFrequencyWeeks stores the newsletter frequency setting.
func (db *DB) SetFrequencyWeeks(ctx context.Context, weeks int) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO digest_settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		SettingFrequencyWeeks, strconv.Itoa(weeks),
	)
	if err != nil {
		return fmt.Errorf("failed to save frequency setting: %w", err)
	}
	return nil
}

// BlacklistedDomains returns the origins excluded from search results.
func (db *DB) BlacklistedDomains(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT origin FROM blacklisted_domains ORDER BY origin`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklisted domains: %w", err)
	}
	defer rows.Close()

	origins, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan blacklisted domain: %w", err)
	}
	return origins, nil
}

// AddBlacklistedDomain excludes origin from future search results.
func (db *DB) AddBlacklistedDomain(ctx context.Context, origin string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO blacklisted_domains (origin) VALUES ($1) ON CONFLICT DO NOTHING`,
		strings.TrimSpace(origin),
	)
	if err != nil {
		return fmt.Errorf("failed to blacklist %s: %w", origin, err)
	}
	return nil
}

// CreateRun creates a new pipeline run record and returns its ID
func (db *DB) CreateRun(ctx context.Context, topic string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO digest_runs (id, topic, status) VALUES ($1, $2, $3)`,
		id, topic, RunStatusRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun records the final status of a run. message is stored as the run
// error when non-empty.
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status, message string) error {
	var errText *string
	if message != "" {
		errText = &message
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE digest_runs SET status = $1, error = $2, completed_at = NOW() WHERE id = $3`,
		status, errText, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveArtifact stores a JSON artifact for one stage of a run
func (db *DB) SaveArtifact(ctx context.Context, runID uuid.UUID, step string, content any) error {
	jsonBytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal artifact: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_artifacts (run_id, step, content)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, step) DO UPDATE SET content = $3, created_at = NOW()`,
		runID, step, jsonBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to save artifact %s: %w", step, err)
	}
	return nil
}

// GetArtifact retrieves a JSON artifact by run ID and step
func (db *DB) GetArtifact(ctx context.Context, runID uuid.UUID, step string) ([]byte, error) {
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT content FROM run_artifacts WHERE run_id = $1 AND step = $2`,
		runID, step,
	).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artifact %s: %w", step, err)
	}
	return content, nil
}

// SaveDigest stores the final digest of a run.
func (db *DB) SaveDigest(ctx context.Context, runID uuid.UUID, digest *types.DigestResult) error {
	content, err := json.Marshal(digest.Categories)
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO digests (run_id, summary, content, article_count)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (run_id) DO UPDATE SET summary = $2, content = $3, article_count = $4, created_at = NOW()`,
		runID, digest.Summary, content, len(digest.Flatten()),
	)
	if err != nil {
		return fmt.Errorf("failed to save digest: %w", err)
	}
	return nil
}

// GetDigest retrieves the digest of a run, or nil when the run has none.
func (db *DB) GetDigest(ctx context.Context, runID uuid.UUID) (*types.DigestResult, error) {
	var digest types.DigestResult
	var content []byte
	err := db.pool.QueryRow(ctx,
		`SELECT summary, content FROM digests WHERE run_id = $1`, runID,
	).Scan(&digest.Summary, &content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get digest: %w", err)
	}
	if err := json.Unmarshal(content, &digest.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode digest: %w", err)
	}
	return &digest, nil
}

// GetRun retrieves a pipeline run by ID
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, topic, status, error, created_at, completed_at FROM digest_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Topic, &run.Status, &run.Error, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves runs with optional filters, newest first
func (db *DB) ListRuns(ctx context.Context, filters RunFilters) ([]Run, error) {
	query, args, err := listRunsQuery(filters).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build run query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Topic, &run.Status, &run.Error, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func listRunsQuery(filters RunFilters) sq.SelectBuilder {
	if filters.Limit <= 0 {
		filters.Limit = DefaultListLimit
	}

	q := psql.Select("id", "topic", "status", "error", "created_at", "completed_at").
		From("digest_runs")
	if filters.Topic != "" {
		q = q.Where(sq.ILike{"topic": "%" + filters.Topic + "%"})
	}
	if filters.Status != "" {
		q = q.Where(sq.Eq{"status": filters.Status})
	}
	if !filters.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"created_at": filters.Since})
	}
	return q.OrderBy("created_at DESC").Limit(uint64(filters.Limit))
}

// DeleteRun deletes a pipeline run and its artifacts (via cascade)
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM digest_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
