package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobscout/jobscout/internal/jobs"
)

const (
	shineCardSel = "div.jobCard"
	shineBase    = "https://www.shine.com/job-search"
)

type shine struct {
	base
}

func newShine() *shine {
	s := &shine{}
	s.base = base{source: jobs.SourceShine, parse: parseShinePage}
	return s
}

func (s *shine) Navigate(ctx context.Context, pg Page, q jobs.Query) error {
	return pg.Navigate(ctx, shinePageURL(q, 1))
}

// Paginate follows Shine's numbered-URL pattern.
func (s *shine) Paginate(ctx context.Context, pg Page, next int, q jobs.Query) (bool, error) {
	if err := pg.Navigate(ctx, shinePageURL(q, next)); err != nil {
		return false, fmt.Errorf("shine page %d: %w", next, err)
	}
	return true, nil
}

func shinePageURL(q jobs.Query, page int) string {
	url := fmt.Sprintf("%s/%s-jobs-in-%s", shineBase, slug(q.Role), slug(q.Location))
	if page > 1 {
		url += fmt.Sprintf("?page=%d", page)
	}
	return url
}

func parseShinePage(doc *goquery.Document, now time.Time) []jobs.RawJobRecord {
	return collectCards(doc.Find(shineCardSel), func(card *goquery.Selection) (jobs.RawJobRecord, bool) {
		title := text(card, "h2 a")
		link := attr(card, "h2 a", "href")
		if link == "" || title == "" {
			return jobs.RawJobRecord{}, false
		}
		if link[0] == '/' {
			link = "https://www.shine.com" + link
		}
		return jobs.RawJobRecord{
			Title:      title,
			Company:    text(card, "div.jobCard_cName"),
			Experience: text(card, "div.jobCard_exp"),
			Location:   text(card, "div.jobCard_location"),
			Skills:     texts(card, "div.jobCard_skills span"),
			Link:       link,
			Source:     jobs.SourceShine,
			PostedDate: NormalizePostedDate(text(card, "div.jobCard_postedDate"), now),
		}, true
	})
}
