package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeUnitRe = regexp.MustCompile(`(?i)\b(\d+)\+?\s*(minute|hour|day|week|month)s?\b`)

const dayFormat = "2006-01-02"

// NormalizePostedDate converts relative posted-date text ("2 days ago",
// "3 hours", "30+ days ago") into an absolute date anchored at now. Day-level
// units collapse to a bare date; minute/hour units keep instant precision.
// Text that matches no known unit passes through unchanged. The result is
// best-effort and advisory: downstream ordering over mixed formats is not
// chronologically reliable.
func NormalizePostedDate(raw string, now time.Time) string {
	lowered := strings.ToLower(raw)
	switch {
	case strings.Contains(lowered, "just now"), strings.Contains(lowered, "today"):
		return now.Format(dayFormat)
	case strings.Contains(lowered, "yesterday"):
		return now.AddDate(0, 0, -1).Format(dayFormat)
	}

	m := relativeUnitRe.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return raw
	}

	switch strings.ToLower(m[2]) {
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute).Format(time.RFC3339)
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour).Format(time.RFC3339)
	case "day":
		return now.AddDate(0, 0, -n).Format(dayFormat)
	case "week":
		return now.AddDate(0, 0, -7*n).Format(dayFormat)
	case "month":
		return now.AddDate(0, -n, 0).Format(dayFormat)
	default:
		return raw
	}
}
