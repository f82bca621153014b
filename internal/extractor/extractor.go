// Package extractor implements per-source scraping strategies over a shared
// navigate/extract/paginate contract.
package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobscout/jobscout/internal/jobs"
)

// Page is the subset of browser session capabilities a strategy drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string) error
	Visible(ctx context.Context, selector string) bool
	NodeCount(ctx context.Context, selector string) (int, error)
	ScrollToBottom(ctx context.Context) error
}

// Extractor is one source-specific scraping strategy. An instance is owned by
// a single crawl invocation and may carry pagination state.
type Extractor interface {
	Source() jobs.Source

	// Navigate loads the first result page for the query.
	Navigate(ctx context.Context, pg Page, q jobs.Query) error

	// ExtractPage maps the currently rendered page to raw records. Per-card
	// failures drop only the failing card.
	ExtractPage(ctx context.Context, pg Page, now time.Time) ([]jobs.RawJobRecord, error)

	// Paginate advances to result page next (1-based). Returning false stops
	// the crawl: no further pages, or a source-specific stop signal fired.
	Paginate(ctx context.Context, pg Page, next int, q jobs.Query) (bool, error)
}

// Options tune strategy behavior per crawl.
type Options struct {
	// ScrollTarget bounds scroll-loaded sources: stop once this many cards
	// are on the page.
	ScrollTarget int
}

// New builds the strategy for a source.
func New(source jobs.Source, opts Options) (Extractor, error) {
	if opts.ScrollTarget <= 0 {
		opts.ScrollTarget = 100
	}
	switch source {
	case jobs.SourceLinkedIn:
		return newLinkedIn(), nil
	case jobs.SourceNaukri:
		return newNaukri(), nil
	case jobs.SourceShine:
		return newShine(), nil
	case jobs.SourceHirist:
		return newHirist(opts.ScrollTarget), nil
	default:
		return nil, fmt.Errorf("no extractor for source %q", source)
	}
}

// base carries the shared render-then-parse half of ExtractPage.
type base struct {
	source jobs.Source
	parse  func(doc *goquery.Document, now time.Time) []jobs.RawJobRecord
}

func (b base) Source() jobs.Source { return b.source }

func (b base) ExtractPage(ctx context.Context, pg Page, now time.Time) ([]jobs.RawJobRecord, error) {
	html, err := pg.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: read page: %w", b.source, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s: parse page: %w", b.source, err)
	}
	return b.parse(doc, now), nil
}

// collectCards maps every card node through parse, dropping cards whose
// parser fails or panics so one bad node never empties the batch.
func collectCards(
	cards *goquery.Selection,
	parse func(card *goquery.Selection) (jobs.RawJobRecord, bool),
) []jobs.RawJobRecord {
	var out []jobs.RawJobRecord
	cards.Each(func(_ int, card *goquery.Selection) {
		rec, ok := parseCard(card, parse)
		if !ok {
			return
		}
		out = append(out, rec.Normalize())
	})
	return out
}

func parseCard(
	card *goquery.Selection,
	parse func(card *goquery.Selection) (jobs.RawJobRecord, bool),
) (rec jobs.RawJobRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return parse(card)
}

// slug lowercases free text and collapses whitespace runs to hyphens, the
// shape every target site expects in its search paths.
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), "-")
}

// text returns the trimmed text of the first node matching selector.
func text(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}

// attr returns the trimmed attribute of the first node matching selector.
func attr(s *goquery.Selection, selector, name string) string {
	v, _ := s.Find(selector).First().Attr(name)
	return strings.TrimSpace(v)
}

// texts returns the trimmed text of every node matching selector.
func texts(s *goquery.Selection, selector string) []string {
	var out []string
	s.Find(selector).Each(func(_ int, n *goquery.Selection) {
		if t := strings.TrimSpace(n.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}
