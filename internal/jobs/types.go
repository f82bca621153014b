// Package jobs holds the canonical domain types shared by the crawler,
// storage, alerting, and HTTP layers.
package jobs

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies one supported job board.
type Source string

const (
	SourceLinkedIn Source = "LinkedIn"
	SourceNaukri   Source = "Naukri"
	SourceShine    Source = "Shine"
	SourceHirist   Source = "Hirist.tech"
)

// Sentinel values applied to fields a source page did not carry.
const (
	DefaultField  = "N/A"
	DefaultSalary = "Not specified"
)

// AllSources lists every supported source in display order.
func AllSources() []Source {
	return []Source{SourceLinkedIn, SourceNaukri, SourceShine, SourceHirist}
}

// ParseSource resolves user input to a Source, case-insensitively. Empty
// input selects Naukri.
func ParseSource(raw string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return SourceNaukri, nil
	case "linkedin":
		return SourceLinkedIn, nil
	case "naukri":
		return SourceNaukri, nil
	case "shine":
		return SourceShine, nil
	case "hirist", "hirist.tech":
		return SourceHirist, nil
	default:
		return "", fmt.Errorf("unknown source %q: supported sources are linkedin, naukri, shine, hirist", raw)
	}
}

// RawJobRecord is one posting as extracted from a source page, before it
// reaches the dedup gate.
type RawJobRecord struct {
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	Experience string   `json:"experience"`
	Location   string   `json:"location"`
	Skills     []string `json:"skills"`
	Salary     string   `json:"salary"`
	Link       string   `json:"link"`
	Source     Source   `json:"source"`
	PostedDate string   `json:"postedDate"`
}

// Normalize fills absent fields with their sentinels and guarantees a
// non-nil skills slice.
func (r RawJobRecord) Normalize() RawJobRecord {
	if strings.TrimSpace(r.Company) == "" {
		r.Company = DefaultField
	}
	if strings.TrimSpace(r.Experience) == "" {
		r.Experience = DefaultField
	}
	if strings.TrimSpace(r.Location) == "" {
		r.Location = DefaultField
	}
	if strings.TrimSpace(r.Salary) == "" {
		r.Salary = DefaultSalary
	}
	if strings.TrimSpace(r.PostedDate) == "" {
		r.PostedDate = DefaultField
	}
	if r.Skills == nil {
		r.Skills = []string{}
	}
	return r
}

// JobPosting is a stored posting with its database identity.
type JobPosting struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Company    string    `json:"company"`
	Experience string    `json:"experience"`
	Location   string    `json:"location"`
	Skills     []string  `json:"skills"`
	Salary     string    `json:"salary"`
	Link       string    `json:"link"`
	Source     Source    `json:"source"`
	PostedDate string    `json:"postedDate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Query names one crawl invocation.
type Query struct {
	Role       string
	Location   string
	Experience string
	Source     Source
}

// Filter narrows stored postings by case-insensitive substring match.
// Empty fields match everything.
type Filter struct {
	Role     string
	Location string
	Source   string
}

// PersistResult splits a persisted batch into fresh inserts and postings
// already known by link.
type PersistResult struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
}

// JobPage is one page of query results.
type JobPage struct {
	Items     []JobPosting
	Total     int64
	Page      int
	PageCount int
}

// VerifyReport describes the storage layer's observable health.
type VerifyReport struct {
	Connected           bool  `json:"connected"`
	TableExists         bool  `json:"tableExists"`
	JobCount            int64 `json:"jobCount"`
	HasUniqueConstraint bool  `json:"hasUniqueConstraint"`
}
