package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizePostedDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "two days ago", raw: "2 days ago", want: "2024-06-13"},
		{name: "single day", raw: "1 day ago", want: "2024-06-14"},
		{name: "thirty plus days", raw: "30+ days ago", want: "2024-05-16"},
		{name: "three hours", raw: "3 hours ago", want: "2024-06-15T07:30:00Z"},
		{name: "one hour", raw: "1 hour ago", want: "2024-06-15T09:30:00Z"},
		{name: "forty five minutes", raw: "45 minutes ago", want: "2024-06-15T09:45:00Z"},
		{name: "one week", raw: "1 week ago", want: "2024-06-08"},
		{name: "two months", raw: "2 months ago", want: "2024-04-15"},
		{name: "posted today", raw: "Posted today", want: "2024-06-15"},
		{name: "just now", raw: "Just now", want: "2024-06-15"},
		{name: "yesterday", raw: "Yesterday", want: "2024-06-14"},
		{name: "iso date passes through", raw: "2024-05-01", want: "2024-05-01"},
		{name: "unrecognized passes through", raw: "Fresh off the press", want: "Fresh off the press"},
		{name: "empty passes through", raw: "", want: ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NormalizePostedDate(tc.raw, now))
		})
	}
}
