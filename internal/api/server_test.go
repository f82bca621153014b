package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/alert"
	"github.com/jobscout/jobscout/internal/browser"
	"github.com/jobscout/jobscout/internal/jobs"
	"github.com/jobscout/jobscout/internal/pipeline"
)

type fakeCrawler struct {
	gotQuery jobs.Query
	result   pipeline.Result
	err      error
}

func (f *fakeCrawler) Crawl(_ context.Context, q jobs.Query) (pipeline.Result, error) {
	f.gotQuery = q
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return f.result, nil
}

type fakeAlerts struct {
	outcome alert.Outcome
	err     error
}

func (f *fakeAlerts) Dispatch(context.Context, string, string, string, string) (alert.Outcome, error) {
	return f.outcome, f.err
}

type fakeStore struct {
	page     jobs.JobPage
	findErr  error
	count    int64
	countErr error
	report   jobs.VerifyReport
}

func (f *fakeStore) InsertBatch(context.Context, []jobs.RawJobRecord) (jobs.PersistResult, error) {
	return jobs.PersistResult{}, nil
}

func (f *fakeStore) Find(context.Context, jobs.Filter, int, int) (jobs.JobPage, error) {
	return f.page, f.findErr
}

func (f *fakeStore) RecentMatching(context.Context, jobs.Filter, time.Time, int) ([]jobs.JobPosting, error) {
	return nil, nil
}

func (f *fakeStore) CountAll(context.Context) (int64, error) { return f.count, f.countErr }

func (f *fakeStore) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeStore) Verify(context.Context) jobs.VerifyReport { return f.report }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestServer(crawler Crawler, store jobs.Store, alerts AlertSender) *Server {
	clock := fixedClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	return NewServer(crawler, store, alerts, clock, Options{}, nil)
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	return rr, payload
}

func TestCrawlEndpoint(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{
		result: pipeline.Result{
			Source: jobs.SourceNaukri,
			Jobs: []jobs.RawJobRecord{
				{Title: "Backend Engineer", Link: "https://x/1"},
				{Title: "SRE", Link: "https://x/2"},
			},
			Persist:  jobs.PersistResult{Inserted: 1, Duplicates: 1},
			Pages:    2,
			Duration: 1234 * time.Millisecond,
		},
	}
	s := newTestServer(crawler, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"backend engineer","location":"bengaluru","source":"naukri"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, payload["success"])
	assert.EqualValues(t, 2, payload["totalJobs"])
	assert.EqualValues(t, 1, payload["newJobs"])
	assert.EqualValues(t, 1, payload["duplicates"])
	assert.Equal(t, "1.234s", payload["duration"])
	assert.Equal(t, jobs.SourceNaukri, crawler.gotQuery.Source)
	assert.Equal(t, "backend engineer", crawler.gotQuery.Role)
}

func TestCrawlCapsEchoedJobs(t *testing.T) {
	t.Parallel()

	many := make([]jobs.RawJobRecord, 60)
	for i := range many {
		many[i] = jobs.RawJobRecord{
			Title: "Backend Engineer",
			Link:  fmt.Sprintf("https://x/%d", i),
		}
	}
	crawler := &fakeCrawler{result: pipeline.Result{
		Source:  jobs.SourceNaukri,
		Jobs:    many,
		Persist: jobs.PersistResult{Inserted: 60},
	}}
	s := newTestServer(crawler, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"backend engineer","location":"bengaluru"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 60, payload["totalJobs"])
	echoed, ok := payload["jobs"].([]any)
	require.True(t, ok)
	assert.Len(t, echoed, 50)
}

func TestCrawlRequiresRoleAndLocation(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl", `{"role":"golang"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "role and location are required", payload["error"])
}

func TestCrawlRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid JSON", payload["error"])
}

func TestCrawlRejectsUnknownSource(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"golang","location":"remote","source":"monster"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, payload["error"], "supported sources are")
}

func TestCrawlFailureCarriesMessage(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{err: errors.New("chrome crashed")}
	s := newTestServer(crawler, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"golang","location":"remote"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, payload["error"], "chrome crashed")
	assert.NotContains(t, payload, "stack", "stack traces are development-only")
}

func TestCrawlFailureAttachesStackInDevelopment(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{err: errors.New("chrome crashed")}
	clock := fixedClock{t: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	s := NewServer(crawler, &fakeStore{}, &fakeAlerts{}, clock, Options{Development: true}, nil)

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"golang","location":"remote"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, payload["error"], "chrome crashed")
	assert.Contains(t, payload, "stack")
}

func TestCrawlTimeoutKeepsItsMessage(t *testing.T) {
	t.Parallel()

	crawler := &fakeCrawler{
		err: &pipeline.CrawlError{Source: jobs.SourceShine, Cause: browser.ErrNavigationTimeout},
	}
	s := newTestServer(crawler, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/crawl",
		`{"role":"golang","location":"remote","source":"shine"}`)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, payload["error"], "navigation timeout")
}

func TestListJobs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{page: jobs.JobPage{
		Items: []jobs.JobPosting{{ID: 7, Title: "Backend Engineer", Link: "https://x/7"}},
		Total: 41, Page: 2, PageCount: 3,
	}}
	s := newTestServer(&fakeCrawler{}, store, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodGet, "/api/jobs?role=engineer&page=2", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, payload["success"])
	assert.EqualValues(t, 1, payload["count"])
	assert.EqualValues(t, 41, payload["total"])
	assert.EqualValues(t, 2, payload["page"])
	assert.EqualValues(t, 3, payload["pages"])
}

func TestListJobsEmptyResultIsAnArray(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{}, &fakeAlerts{})

	rr, _ := doJSON(t, s, http.MethodGet, "/api/jobs", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"jobs":[]`)
}

func TestSendAlertRequiresEmailAndRole(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodPost, "/api/alert", `{"email":"dev@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email and role are required", payload["error"])
}

func TestSendAlertNoMatches(t *testing.T) {
	t.Parallel()

	alerts := &fakeAlerts{outcome: alert.Outcome{Sent: 0, Delivered: true}}
	s := newTestServer(&fakeCrawler{}, &fakeStore{}, alerts)

	rr, payload := doJSON(t, s, http.MethodPost, "/api/alert",
		`{"email":"dev@example.com","role":"golang"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "no matching jobs in the last 24 hours", payload["message"])
}

func TestSendAlertDeliveryFailure(t *testing.T) {
	t.Parallel()

	alerts := &fakeAlerts{outcome: alert.Outcome{Sent: 4, Delivered: false}}
	s := newTestServer(&fakeCrawler{}, &fakeStore{}, alerts)

	rr, payload := doJSON(t, s, http.MethodPost, "/api/alert",
		`{"email":"dev@example.com","role":"golang"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, payload["success"])
	assert.EqualValues(t, 4, payload["sent"])
	assert.Equal(t, "matching jobs found but delivery failed", payload["message"])
}

func TestSendAlertSuccess(t *testing.T) {
	t.Parallel()

	alerts := &fakeAlerts{outcome: alert.Outcome{Sent: 3, Delivered: true}}
	s := newTestServer(&fakeCrawler{}, &fakeStore{}, alerts)

	rr, payload := doJSON(t, s, http.MethodPost, "/api/alert",
		`{"email":"dev@example.com","role":"golang","source":"hirist"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, "alert sent", payload["message"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeCrawler{}, &fakeStore{count: 12}, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", payload["status"])
	assert.EqualValues(t, 12, payload["jobCount"])
	assert.Equal(t, "2024-06-15T12:00:00Z", payload["timestamp"])
}

func TestHealthDegradedOnStoreFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{countErr: errors.New("connection refused")}
	s := newTestServer(&fakeCrawler{}, store, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "degraded", payload["status"])
}

func TestVerifyDB(t *testing.T) {
	t.Parallel()

	store := &fakeStore{report: jobs.VerifyReport{
		Connected: true, TableExists: true, JobCount: 5, HasUniqueConstraint: true,
	}}
	s := newTestServer(&fakeCrawler{}, store, &fakeAlerts{})

	rr, payload := doJSON(t, s, http.MethodGet, "/api/verify-db", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, payload["connected"])
	assert.Equal(t, true, payload["tableExists"])
	assert.EqualValues(t, 5, payload["jobCount"])
	assert.Equal(t, true, payload["hasUniqueConstraint"])
}
