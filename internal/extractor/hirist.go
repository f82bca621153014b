package extractor

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobscout/jobscout/internal/jobs"
)

const (
	hiristCardSel = "div.job-card"
	hiristBase    = "https://www.hirist.tech/search"
)

// hirist loads results through scroll-triggered lazy loading; pagination
// state (last observed card count) lives on the instance, which is owned by
// one crawl invocation.
type hirist struct {
	base
	target    int
	lastCount int
}

func newHirist(target int) *hirist {
	h := &hirist{target: target}
	h.base = base{source: jobs.SourceHirist, parse: parseHiristPage}
	return h
}

func (h *hirist) Navigate(ctx context.Context, pg Page, q jobs.Query) error {
	url := fmt.Sprintf("%s/%s-jobs", hiristBase, slug(q.Role))
	if q.Location != "" {
		url += "?location=" + slug(q.Location)
	}
	if q.Experience != "" {
		if q.Location != "" {
			url += "&experience=" + slug(q.Experience)
		} else {
			url += "?experience=" + slug(q.Experience)
		}
	}
	if err := pg.Navigate(ctx, url); err != nil {
		return err
	}
	count, err := pg.NodeCount(ctx, hiristCardSel)
	if err == nil {
		h.lastCount = count
	}
	return nil
}

// Paginate scrolls to the bottom and waits for the lazy loader. The crawl
// stops once the card count reaches the target or stalls between scrolls.
func (h *hirist) Paginate(ctx context.Context, pg Page, _ int, _ jobs.Query) (bool, error) {
	if h.lastCount >= h.target {
		return false, nil
	}
	if err := pg.ScrollToBottom(ctx); err != nil {
		return false, fmt.Errorf("hirist scroll: %w", err)
	}
	count, err := pg.NodeCount(ctx, hiristCardSel)
	if err != nil {
		return false, fmt.Errorf("hirist card count: %w", err)
	}
	if count <= h.lastCount {
		return false, nil
	}
	h.lastCount = count
	return true, nil
}

// parseHiristPage sees the full accumulated card list on every scroll round;
// the pipeline collapses the overlap by link before persistence.
func parseHiristPage(doc *goquery.Document, now time.Time) []jobs.RawJobRecord {
	return collectCards(doc.Find(hiristCardSel), func(card *goquery.Selection) (jobs.RawJobRecord, bool) {
		title := text(card, "a.job-title")
		link := attr(card, "a.job-title", "href")
		if link == "" || title == "" {
			return jobs.RawJobRecord{}, false
		}
		if link[0] == '/' {
			link = "https://www.hirist.tech" + link
		}
		return jobs.RawJobRecord{
			Title:      title,
			Company:    text(card, "div.company-name"),
			Experience: text(card, "span.exp"),
			Location:   text(card, "span.location"),
			Skills:     texts(card, "div.tags a"),
			Link:       link,
			Source:     jobs.SourceHirist,
			PostedDate: NormalizePostedDate(text(card, "span.posted-on"), now),
		}, true
	})
}
