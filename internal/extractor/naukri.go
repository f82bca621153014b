package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobscout/jobscout/internal/jobs"
)

const (
	naukriCardSel = "div.srp-jobtuple-wrapper"
	naukriBase    = "https://www.naukri.com"
)

type naukri struct {
	base
}

func newNaukri() *naukri {
	n := &naukri{}
	n.base = base{source: jobs.SourceNaukri, parse: parseNaukriPage}
	return n
}

func (n *naukri) Navigate(ctx context.Context, pg Page, q jobs.Query) error {
	return pg.Navigate(ctx, naukriPageURL(q, 1))
}

// Paginate follows Naukri's numbered-URL pattern: page N lives at a distinct
// path segment, so advancing is a fresh navigation.
func (n *naukri) Paginate(ctx context.Context, pg Page, next int, q jobs.Query) (bool, error) {
	if err := pg.Navigate(ctx, naukriPageURL(q, next)); err != nil {
		return false, fmt.Errorf("naukri page %d: %w", next, err)
	}
	return true, nil
}

func naukriPageURL(q jobs.Query, page int) string {
	path := fmt.Sprintf("%s/%s-jobs-in-%s", naukriBase, slug(q.Role), slug(q.Location))
	if page > 1 {
		path = fmt.Sprintf("%s-%d", path, page)
	}
	if q.Experience != "" {
		path += "?experience=" + slug(q.Experience)
	}
	return path
}

func parseNaukriPage(doc *goquery.Document, now time.Time) []jobs.RawJobRecord {
	return collectCards(doc.Find(naukriCardSel), func(card *goquery.Selection) (jobs.RawJobRecord, bool) {
		link := attr(card, "a.title", "href")
		title := text(card, "a.title")
		if link == "" || title == "" {
			return jobs.RawJobRecord{}, false
		}
		return jobs.RawJobRecord{
			Title:      title,
			Company:    text(card, "a.comp-name"),
			Experience: text(card, "span.expwdth"),
			Location:   text(card, "span.locWdth"),
			Skills:     texts(card, "ul.tags-gt li"),
			Salary:     text(card, "span.sal-wrap span"),
			Link:       link,
			Source:     jobs.SourceNaukri,
			PostedDate: NormalizePostedDate(text(card, "span.job-post-day"), now),
		}, true
	})
}
