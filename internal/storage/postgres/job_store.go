// Package postgres provides the pgx-backed job posting store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/jobs"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	AcquireTimeout  time.Duration
}

// pool is the narrow pgxpool surface the store needs; pgxmock satisfies it.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// JobStore persists canonical job postings in Postgres.
type JobStore struct {
	pool   pool
	logger *zap.Logger
}

// NewJobStore creates a pooled Postgres-backed JobStore.
func NewJobStore(ctx context.Context, cfg Config, logger *zap.Logger) (*JobStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &JobStore{pool: p, logger: logger}, nil
}

// NewJobStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewJobStoreWithPool(p pool, logger *zap.Logger) (*JobStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobStore{pool: p, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id          BIGSERIAL PRIMARY KEY,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL,
	experience  TEXT NOT NULL DEFAULT 'N/A',
	location    TEXT NOT NULL DEFAULT 'N/A',
	skills      TEXT[] NOT NULL DEFAULT '{}',
	salary      TEXT NOT NULL DEFAULT 'Not specified',
	link        TEXT NOT NULL UNIQUE,
	source      TEXT NOT NULL,
	posted_date TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_jobs_title ON jobs (title);
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs (company);
CREATE INDEX IF NOT EXISTS idx_jobs_location ON jobs (location);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs (source);
`

// EnsureSchema creates the jobs relation and its indexes if absent.
func (s *JobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const insertJobSQL = `
INSERT INTO jobs (title, company, experience, location, skills, salary, link, source, posted_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (link) DO NOTHING`

// InsertBatch is the dedup gate. The batch runs in one transaction; each
// record inserts with conflict-on-link suppression and the affected-row count
// splits inserted from duplicate. An individual insert failure rolls back to
// a per-record savepoint and the batch continues; only hard transaction
// errors surface, with zero counts.
func (s *JobStore) InsertBatch(ctx context.Context, records []jobs.RawJobRecord) (jobs.PersistResult, error) {
	if len(records) == 0 {
		return jobs.PersistResult{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return jobs.PersistResult{}, fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var result jobs.PersistResult
	for i, raw := range records {
		rec := raw.Normalize()
		sp := fmt.Sprintf("rec_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return jobs.PersistResult{}, fmt.Errorf("savepoint: %w", err)
		}
		tag, err := tx.Exec(ctx, insertJobSQL,
			rec.Title,
			rec.Company,
			rec.Experience,
			rec.Location,
			rec.Skills,
			rec.Salary,
			rec.Link,
			rec.Source,
			rec.PostedDate,
		)
		if err != nil {
			s.logger.Warn("posting insert failed, skipping record",
				zap.String("link", rec.Link),
				zap.Error(err),
			)
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return jobs.PersistResult{}, fmt.Errorf("rollback to savepoint: %w", rbErr)
			}
			continue
		}
		if tag.RowsAffected() > 0 {
			result.Inserted++
		} else {
			result.Duplicates++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return jobs.PersistResult{}, fmt.Errorf("commit batch: %w", err)
	}
	return result, nil
}

const jobColumns = "id, title, company, experience, location, skills, salary, link, source, posted_date, created_at"

const filterPredicate = `
($1 = '' OR title ILIKE '%' || $1 || '%')
AND ($2 = '' OR location ILIKE '%' || $2 || '%')
AND ($3 = '' OR source ILIKE '%' || $3 || '%')`

// Find applies conjunctive case-insensitive substring filters with offset
// pagination. Ordering is posted_date descending, string-lexicographic:
// mixed date formats in that column do not sort chronologically.
func (s *JobStore) Find(ctx context.Context, filter jobs.Filter, page, pageSize int) (jobs.JobPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var total int64
	countSQL := "SELECT COUNT(*) FROM jobs WHERE " + filterPredicate
	if err := s.pool.QueryRow(ctx, countSQL, filter.Role, filter.Location, filter.Source).Scan(&total); err != nil {
		return jobs.JobPage{}, fmt.Errorf("count jobs: %w", err)
	}

	querySQL := "SELECT " + jobColumns + " FROM jobs WHERE " + filterPredicate +
		" ORDER BY posted_date DESC, id DESC LIMIT $4 OFFSET $5"
	rows, err := s.pool.Query(ctx, querySQL,
		filter.Role, filter.Location, filter.Source, pageSize, (page-1)*pageSize)
	if err != nil {
		return jobs.JobPage{}, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	items, err := scanPostings(rows)
	if err != nil {
		return jobs.JobPage{}, err
	}

	pageCount := int((total + int64(pageSize) - 1) / int64(pageSize))
	return jobs.JobPage{
		Items:     items,
		Total:     total,
		Page:      page,
		PageCount: pageCount,
	}, nil
}

// RecentMatching returns up to limit postings matching the filter whose
// posted_date compares at or after the cutoff. The comparison is string
// based and inherits the mixed-format ordering caveat.
func (s *JobStore) RecentMatching(ctx context.Context, filter jobs.Filter, cutoff time.Time, limit int) ([]jobs.JobPosting, error) {
	if limit < 1 {
		limit = 10
	}
	querySQL := "SELECT " + jobColumns + " FROM jobs WHERE " + filterPredicate +
		" AND posted_date >= $4 ORDER BY posted_date DESC LIMIT $5"
	rows, err := s.pool.Query(ctx, querySQL,
		filter.Role, filter.Location, filter.Source, cutoff.UTC().Format("2006-01-02"), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent jobs: %w", err)
	}
	defer rows.Close()
	return scanPostings(rows)
}

// CountAll reports the total number of stored postings.
func (s *JobStore) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count all jobs: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes postings created before the cutoff and reports how
// many rows it swept.
func (s *JobStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM jobs WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

const tableExistsSQL = `
SELECT EXISTS (
	SELECT 1 FROM information_schema.tables
	WHERE table_name = 'jobs'
)`

const uniqueConstraintSQL = `
SELECT EXISTS (
	SELECT 1
	FROM information_schema.table_constraints tc
	JOIN information_schema.constraint_column_usage ccu
	  ON tc.constraint_name = ccu.constraint_name
	WHERE tc.table_name = 'jobs'
	  AND tc.constraint_type = 'UNIQUE'
	  AND ccu.column_name = 'link'
)`

// Verify inspects connectivity, the jobs relation, and its link constraint.
// Probe failures degrade the report instead of erroring.
func (s *JobStore) Verify(ctx context.Context) jobs.VerifyReport {
	var report jobs.VerifyReport

	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Warn("db ping failed", zap.Error(err))
		return report
	}
	report.Connected = true

	if err := s.pool.QueryRow(ctx, tableExistsSQL).Scan(&report.TableExists); err != nil {
		s.logger.Warn("table probe failed", zap.Error(err))
		return report
	}
	if !report.TableExists {
		return report
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs").Scan(&report.JobCount); err != nil {
		s.logger.Warn("job count probe failed", zap.Error(err))
	}
	if err := s.pool.QueryRow(ctx, uniqueConstraintSQL).Scan(&report.HasUniqueConstraint); err != nil {
		s.logger.Warn("constraint probe failed", zap.Error(err))
	}
	return report
}

func scanPostings(rows pgx.Rows) ([]jobs.JobPosting, error) {
	var items []jobs.JobPosting
	for rows.Next() {
		var p jobs.JobPosting
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Company,
			&p.Experience,
			&p.Location,
			&p.Skills,
			&p.Salary,
			&p.Link,
			&p.Source,
			&p.PostedDate,
			&p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}
	return items, nil
}
