package extractor

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/jobs"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSlug(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "backend-engineer", slug("Backend Engineer"))
	assert.Equal(t, "data-scientist", slug("  Data   Scientist "))
	assert.Equal(t, "devops", slug("DevOps"))
	assert.Equal(t, "", slug("   "))
}

func TestCollectCardsDropsOnlyFailingCard(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div>
		<div class="card" data-title="One"></div>
		<div class="card" data-title="boom"></div>
		<div class="card" data-title="Three"></div>
	</div>`)

	recs := collectCards(doc.Find("div.card"), func(card *goquery.Selection) (jobs.RawJobRecord, bool) {
		title, _ := card.Attr("data-title")
		if title == "boom" {
			panic("selector lookup blew up")
		}
		return jobs.RawJobRecord{Title: title, Link: "https://example.com/" + title}, true
	})

	require.Len(t, recs, 2)
	assert.Equal(t, "One", recs[0].Title)
	assert.Equal(t, "Three", recs[1].Title)
}

func TestCollectCardsAppliesSentinelDefaults(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<div><div class="card"></div></div>`)

	recs := collectCards(doc.Find("div.card"), func(*goquery.Selection) (jobs.RawJobRecord, bool) {
		return jobs.RawJobRecord{Title: "Engineer", Link: "https://example.com/1"}, true
	})

	require.Len(t, recs, 1)
	assert.Equal(t, jobs.DefaultField, recs[0].Experience)
	assert.Equal(t, jobs.DefaultField, recs[0].Location)
	assert.Equal(t, jobs.DefaultSalary, recs[0].Salary)
	assert.Equal(t, []string{}, recs[0].Skills)
}

const naukriFixture = `<html><body>
<div class="srp-jobtuple-wrapper">
	<a class="title" href="https://www.naukri.com/job-listings-backend-engineer-1">Backend Engineer</a>
	<a class="comp-name">Acme Corp</a>
	<span class="expwdth">2-5 Yrs</span>
	<span class="locWdth">Bengaluru</span>
	<span class="sal-wrap"><span>12-18 Lacs PA</span></span>
	<ul class="tags-gt"><li>Go</li><li>PostgreSQL</li></ul>
	<span class="job-post-day">2 days ago</span>
</div>
<div class="srp-jobtuple-wrapper">
	<a class="comp-name">No Title Inc</a>
</div>
<div class="srp-jobtuple-wrapper">
	<a class="title" href="https://www.naukri.com/job-listings-sre-2">Site Reliability Engineer</a>
</div>
</body></html>`

func TestParseNaukriPage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	recs := parseNaukriPage(mustDoc(t, naukriFixture), now)

	require.Len(t, recs, 2, "card without title/link must be dropped")

	first := recs[0]
	assert.Equal(t, "Backend Engineer", first.Title)
	assert.Equal(t, "Acme Corp", first.Company)
	assert.Equal(t, "2-5 Yrs", first.Experience)
	assert.Equal(t, "Bengaluru", first.Location)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, first.Skills)
	assert.Equal(t, "12-18 Lacs PA", first.Salary)
	assert.Equal(t, "https://www.naukri.com/job-listings-backend-engineer-1", first.Link)
	assert.Equal(t, jobs.SourceNaukri, first.Source)
	assert.Equal(t, "2024-06-13", first.PostedDate)

	second := recs[1]
	assert.Equal(t, "Site Reliability Engineer", second.Title)
	assert.Equal(t, jobs.DefaultField, second.Experience)
	assert.Equal(t, jobs.DefaultField, second.Location)
	assert.Equal(t, jobs.DefaultSalary, second.Salary)
	assert.Equal(t, []string{}, second.Skills)
}

const linkedinFixture = `<html><body>
<ul class="jobs-search__results-list">
<li><div class="base-card">
	<a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/999"></a>
	<h3 class="base-search-card__title">Platform Engineer</h3>
	<h4 class="base-search-card__subtitle"><a>Globex</a></h4>
	<span class="job-search-card__location">Remote</span>
	<time class="job-search-card__listdate" datetime="2024-06-10">5 days ago</time>
</div></li>
<li><div class="base-card">
	<a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/1000"></a>
	<h3 class="base-search-card__title">Data Engineer</h3>
	<h4 class="base-search-card__subtitle"><a>Initech</a></h4>
	<span class="job-search-card__location">Pune</span>
	<time>3 hours ago</time>
</div></li>
</ul>
</body></html>`

func TestParseLinkedInPage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	recs := parseLinkedInPage(mustDoc(t, linkedinFixture), now)

	require.Len(t, recs, 2)
	assert.Equal(t, "Platform Engineer", recs[0].Title)
	assert.Equal(t, "Globex", recs[0].Company)
	assert.Equal(t, "Remote", recs[0].Location)
	assert.Equal(t, "2024-06-10", recs[0].PostedDate, "datetime attribute wins over relative text")
	assert.Equal(t, jobs.SourceLinkedIn, recs[0].Source)

	assert.Equal(t, "2024-06-15T09:00:00Z", recs[1].PostedDate, "relative text normalized against now")
}

const shineFixture = `<html><body>
<div class="jobCard">
	<h2><a href="/jobs/frontend-developer-77">Frontend Developer</a></h2>
	<div class="jobCard_cName">Hooli</div>
	<div class="jobCard_exp">0-2 Yrs</div>
	<div class="jobCard_location">Mumbai</div>
	<div class="jobCard_skills"><span>React</span><span>TypeScript</span></div>
	<div class="jobCard_postedDate">1 week ago</div>
</div>
</body></html>`

func TestParseShinePage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	recs := parseShinePage(mustDoc(t, shineFixture), now)

	require.Len(t, recs, 1)
	assert.Equal(t, "Frontend Developer", recs[0].Title)
	assert.Equal(t, "https://www.shine.com/jobs/frontend-developer-77", recs[0].Link, "relative links resolve against the site root")
	assert.Equal(t, []string{"React", "TypeScript"}, recs[0].Skills)
	assert.Equal(t, "2024-06-08", recs[0].PostedDate)
	assert.Equal(t, jobs.SourceShine, recs[0].Source)
}

const hiristFixture = `<html><body>
<div class="job-card">
	<a class="job-title" href="/j/senior-golang-developer-42">Senior Golang Developer</a>
	<div class="company-name">Umbrella</div>
	<span class="exp">5-8 yrs</span>
	<span class="location">Hyderabad</span>
	<div class="tags"><a>Golang</a><a>Kubernetes</a></div>
	<span class="posted-on">6 days ago</span>
</div>
</body></html>`

func TestParseHiristPage(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	recs := parseHiristPage(mustDoc(t, hiristFixture), now)

	require.Len(t, recs, 1)
	assert.Equal(t, "Senior Golang Developer", recs[0].Title)
	assert.Equal(t, "https://www.hirist.tech/j/senior-golang-developer-42", recs[0].Link)
	assert.Equal(t, []string{"Golang", "Kubernetes"}, recs[0].Skills)
	assert.Equal(t, "2024-06-09", recs[0].PostedDate)
	assert.Equal(t, jobs.SourceHirist, recs[0].Source)
}

func TestNaukriPageURL(t *testing.T) {
	t.Parallel()

	q := jobs.Query{Role: "Backend Engineer", Location: "Bengaluru", Experience: "3"}
	assert.Equal(t,
		"https://www.naukri.com/backend-engineer-jobs-in-bengaluru?experience=3",
		naukriPageURL(q, 1),
	)
	assert.Equal(t,
		"https://www.naukri.com/backend-engineer-jobs-in-bengaluru-3?experience=3",
		naukriPageURL(q, 3),
	)
}

func TestShinePageURL(t *testing.T) {
	t.Parallel()

	q := jobs.Query{Role: "Data Scientist", Location: "New Delhi"}
	assert.Equal(t, "https://www.shine.com/job-search/data-scientist-jobs-in-new-delhi", shinePageURL(q, 1))
	assert.Equal(t, "https://www.shine.com/job-search/data-scientist-jobs-in-new-delhi?page=2", shinePageURL(q, 2))
}

func TestNewRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	_, err := New(jobs.Source("Monster"), Options{})
	require.Error(t, err)
}

func TestNewBuildsEveryKnownSource(t *testing.T) {
	t.Parallel()

	for _, src := range jobs.AllSources() {
		ex, err := New(src, Options{})
		require.NoError(t, err)
		assert.Equal(t, src, ex.Source())
	}
}
