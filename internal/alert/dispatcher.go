package alert

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/jobs"
	"github.com/jobscout/jobscout/internal/metrics"
)

// alertLimit caps how many postings one alert email carries.
const alertLimit = 10

// alertWindow restricts alerts to postings from the trailing day.
const alertWindow = 24 * time.Hour

var alertTemplate = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>New job postings matching "{{.Role}}"</h2>
{{range .Jobs}}
<div style="border:1px solid #ddd; border-radius:6px; padding:12px; margin-bottom:10px;">
	<h3 style="margin:0 0 6px 0;">{{.Title}}</h3>
	<p style="margin:2px 0;"><b>Company:</b> {{.Company}}</p>
	<p style="margin:2px 0;"><b>Location:</b> {{.Location}}</p>
	<p style="margin:2px 0;"><b>Salary:</b> {{.Salary}}</p>
	<p style="margin:2px 0;"><b>Posted:</b> {{.PostedDate}} ({{.Source}})</p>
	<p style="margin:6px 0 0 0;"><a href="{{.Link}}">View posting</a></p>
</div>
{{end}}
</body>
</html>`))

// Dispatcher selects recent matching postings and hands them to a Mailer.
type Dispatcher struct {
	store  jobs.Store
	mailer jobs.Mailer
	clock  jobs.Clock
	logger *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(store jobs.Store, mailer jobs.Mailer, clock jobs.Clock, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, mailer: mailer, clock: clock, logger: logger}
}

// Outcome reports one dispatch attempt.
type Outcome struct {
	Sent      int
	Delivered bool
}

// Dispatch emails up to ten postings matching role (plus optional location
// and source filters) posted within the last 24 hours. Zero matches means
// no delivery attempt. Delivery failure is caught and reported through the
// outcome, never propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, email, role, location, source string) (Outcome, error) {
	filter := jobs.Filter{Role: role, Location: location, Source: source}
	cutoff := d.clock.Now().Add(-alertWindow)

	matches, err := d.store.RecentMatching(ctx, filter, cutoff, alertLimit)
	if err != nil {
		return Outcome{}, fmt.Errorf("select alert jobs: %w", err)
	}
	if len(matches) == 0 {
		return Outcome{Sent: 0, Delivered: true}, nil
	}

	body, err := renderAlert(role, matches)
	if err != nil {
		return Outcome{}, fmt.Errorf("render alert: %w", err)
	}

	subject := fmt.Sprintf("%d new %q jobs in the last 24 hours", len(matches), role)
	if err := d.mailer.Send(ctx, email, subject, body); err != nil {
		d.logger.Warn("alert delivery failed",
			zap.String("email", email),
			zap.Int("jobs", len(matches)),
			zap.Error(err),
		)
		return Outcome{Sent: len(matches), Delivered: false}, nil
	}

	metrics.ObserveAlertSent()
	return Outcome{Sent: len(matches), Delivered: true}, nil
}

func renderAlert(role string, postings []jobs.JobPosting) (string, error) {
	var buf strings.Builder
	data := struct {
		Role string
		Jobs []jobs.JobPosting
	}{Role: role, Jobs: postings}
	if err := alertTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
