// Package pipeline drives the crawl-normalize-deduplicate flow shared by all
// source strategies.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/browser"
	"github.com/jobscout/jobscout/internal/extractor"
	"github.com/jobscout/jobscout/internal/jobs"
	"github.com/jobscout/jobscout/internal/metrics"
)

// ErrUnknownSource indicates a crawl request named an unsupported source.
var ErrUnknownSource = errors.New("unknown source")

// CrawlError wraps a whole-crawl failure with the source it came from.
// Partial pages gathered before the failure are discarded.
type CrawlError struct {
	Source jobs.Source
	Cause  error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %v", e.Source, e.Cause)
}

func (e *CrawlError) Unwrap() error { return e.Cause }

// Config controls shared pipeline scaffolding.
type Config struct {
	// PageCeiling bounds pagination rounds per crawl.
	PageCeiling int
	// LinkedInCeiling overrides the ceiling for LinkedIn, whose stop signal
	// is a rate-limit toast.
	LinkedInCeiling int
}

// Result is the outcome of one crawl invocation.
type Result struct {
	Source   jobs.Source
	Jobs     []jobs.RawJobRecord
	Persist  jobs.PersistResult
	Pages    int
	Duration time.Duration
}

// Sessions manages browser lifecycles for the pipeline.
type Sessions interface {
	Acquire(ctx context.Context) (extractor.Page, error)
	Release(extractor.Page)
}

// ManagerSessions adapts browser.Manager to the Sessions interface.
type ManagerSessions struct {
	Manager *browser.Manager
}

// Acquire launches a browser session.
func (m ManagerSessions) Acquire(ctx context.Context) (extractor.Page, error) {
	session, err := m.Manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Release tears the session down.
func (m ManagerSessions) Release(pg extractor.Page) {
	if session, ok := pg.(*browser.Session); ok {
		m.Manager.Release(session)
	}
}

// Pipeline owns the session lifecycle, the page-ceiling loop, and the
// hand-off to the dedup gate.
type Pipeline struct {
	sessions     Sessions
	store        jobs.Store
	clock        jobs.Clock
	cfg          Config
	logger       *zap.Logger
	newExtractor func(jobs.Source, extractor.Options) (extractor.Extractor, error)
}

// New constructs a Pipeline.
func New(sessions Sessions, store jobs.Store, clock jobs.Clock, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.PageCeiling <= 0 {
		cfg.PageCeiling = 5
	}
	if cfg.LinkedInCeiling <= 0 {
		cfg.LinkedInCeiling = cfg.PageCeiling
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		sessions:     sessions,
		store:        store,
		clock:        clock,
		cfg:          cfg,
		logger:       logger,
		newExtractor: extractor.New,
	}
}

// Crawl runs one full crawl for the query: acquire a browser, walk result
// pages up to the ceiling, then persist the batch through the dedup gate.
// The browser session is released on every exit path.
func (p *Pipeline) Crawl(ctx context.Context, q jobs.Query) (Result, error) {
	start := p.clock.Now()

	ex, err := p.newExtractor(q.Source, extractor.Options{
		ScrollTarget: p.ceiling(q.Source) * 20,
	})
	if err != nil {
		metrics.ObserveCrawl(string(q.Source), "rejected")
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownSource, q.Source)
	}

	records, pages, err := p.scrape(ctx, ex, q)
	if err != nil {
		metrics.ObserveCrawl(string(q.Source), "failed")
		return Result{}, &CrawlError{Source: q.Source, Cause: err}
	}

	persist := p.persist(ctx, q.Source, records)
	metrics.ObserveCrawl(string(q.Source), "succeeded")
	metrics.ObservePersist(string(q.Source), persist.Inserted, persist.Duplicates)

	return Result{
		Source:   q.Source,
		Jobs:     records,
		Persist:  persist,
		Pages:    pages,
		Duration: p.clock.Now().Sub(start),
	}, nil
}

func (p *Pipeline) scrape(ctx context.Context, ex extractor.Extractor, q jobs.Query) ([]jobs.RawJobRecord, int, error) {
	session, err := p.sessions.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire browser: %w", err)
	}
	defer p.sessions.Release(session)

	if err := ex.Navigate(ctx, session, q); err != nil {
		return nil, 0, err
	}

	ceiling := p.ceiling(q.Source)
	seen := make(map[string]struct{})
	var records []jobs.RawJobRecord
	pages := 0

	for page := 1; page <= ceiling; page++ {
		batch, err := ex.ExtractPage(ctx, session, p.clock.Now())
		if err != nil {
			return nil, 0, err
		}
		pages++
		metrics.ObservePage(string(q.Source))

		fresh := 0
		for _, rec := range batch {
			if _, dup := seen[rec.Link]; dup {
				continue
			}
			seen[rec.Link] = struct{}{}
			records = append(records, rec)
			fresh++
		}
		p.logger.Debug("page extracted",
			zap.String("source", string(q.Source)),
			zap.Int("page", page),
			zap.Int("cards", len(batch)),
			zap.Int("fresh", fresh),
		)

		// A zero-result page means the source ran dry or rendered an
		// error shell; either way there is nothing further to walk.
		if len(batch) == 0 {
			break
		}
		if page == ceiling {
			break
		}

		more, err := ex.Paginate(ctx, session, page+1, q)
		if err != nil {
			return nil, 0, err
		}
		if !more {
			break
		}
	}

	return records, pages, nil
}

// persist runs the dedup gate. A hard storage failure is logged and reported
// as zero inserted / zero duplicates, never surfaced to the route layer.
func (p *Pipeline) persist(ctx context.Context, source jobs.Source, records []jobs.RawJobRecord) jobs.PersistResult {
	result, err := p.store.InsertBatch(ctx, records)
	if err != nil {
		p.logger.Error("batch persist failed",
			zap.String("source", string(source)),
			zap.Int("records", len(records)),
			zap.Error(err),
		)
		return jobs.PersistResult{}
	}
	return result
}

func (p *Pipeline) ceiling(source jobs.Source) int {
	if source == jobs.SourceLinkedIn {
		return p.cfg.LinkedInCeiling
	}
	return p.cfg.PageCeiling
}
