package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobscout/jobscout/internal/jobs"
)

// LinkedIn selectors, tracked against the public (logged-out) search results.
const (
	linkedinCardSel    = "ul.jobs-search__results-list li div.base-card"
	linkedinNextSel    = `button[aria-label="View next page"]`
	linkedinToastSel   = "div.artdeco-toast-item--error"
	linkedinAuthwall   = "div.authwall"
	linkedinSearchBase = "https://www.linkedin.com/jobs/search"
)

type linkedIn struct {
	base
}

func newLinkedIn() *linkedIn {
	l := &linkedIn{}
	l.base = base{source: jobs.SourceLinkedIn, parse: parseLinkedInPage}
	return l
}

func (l *linkedIn) Navigate(ctx context.Context, pg Page, q jobs.Query) error {
	url := fmt.Sprintf("%s?keywords=%s&location=%s", linkedinSearchBase, slug(q.Role), slug(q.Location))
	if q.Experience != "" {
		url += "&f_E=" + slug(q.Experience)
	}
	return pg.Navigate(ctx, url)
}

// Paginate clicks the next-page control. A rate-limit toast or an authwall is
// the stop signal; a missing control means the result set is exhausted.
func (l *linkedIn) Paginate(ctx context.Context, pg Page, _ int, _ jobs.Query) (bool, error) {
	if pg.Visible(ctx, linkedinToastSel) || pg.Visible(ctx, linkedinAuthwall) {
		return false, nil
	}
	if !pg.Visible(ctx, linkedinNextSel) {
		return false, nil
	}
	if err := pg.Click(ctx, linkedinNextSel); err != nil {
		return false, fmt.Errorf("linkedin next page: %w", err)
	}
	return true, nil
}

func parseLinkedInPage(doc *goquery.Document, now time.Time) []jobs.RawJobRecord {
	return collectCards(doc.Find(linkedinCardSel), func(card *goquery.Selection) (jobs.RawJobRecord, bool) {
		link := attr(card, "a.base-card__full-link", "href")
		title := text(card, "h3.base-search-card__title")
		if link == "" || title == "" {
			return jobs.RawJobRecord{}, false
		}
		posted := attr(card, "time.job-search-card__listdate", "datetime")
		if posted == "" {
			posted = NormalizePostedDate(text(card, "time"), now)
		}
		return jobs.RawJobRecord{
			Title:      title,
			Company:    text(card, "h4.base-search-card__subtitle a"),
			Location:   text(card, "span.job-search-card__location"),
			Salary:     text(card, "span.job-search-card__salary-info"),
			Link:       link,
			Source:     jobs.SourceLinkedIn,
			PostedDate: posted,
		}, true
	})
}
