package jobs

import (
	"context"
	"time"
)

// Store is the persistence contract the pipeline, query service, and alert
// dispatcher share.
type Store interface {
	// InsertBatch writes a batch through the dedup gate and reports how it
	// split between fresh inserts and duplicates.
	InsertBatch(ctx context.Context, records []RawJobRecord) (PersistResult, error)

	// Find returns one page of postings matching the filter.
	Find(ctx context.Context, filter Filter, page, pageSize int) (JobPage, error)

	// RecentMatching returns up to limit postings matching the filter whose
	// posted date is at or after the cutoff.
	RecentMatching(ctx context.Context, filter Filter, cutoff time.Time, limit int) ([]JobPosting, error)

	// CountAll reports the total number of stored postings.
	CountAll(ctx context.Context) (int64, error)

	// DeleteOlderThan sweeps postings created before the cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Verify probes storage health. Probe failures degrade the report
	// rather than erroring.
	Verify(ctx context.Context) VerifyReport
}

// Mailer delivers one HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Clock abstracts wall time for testability.
type Clock interface {
	Now() time.Time
}
