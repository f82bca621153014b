package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobscout/jobscout/internal/jobs"
)

type fakeStore struct {
	jobs.Store
	gotCutoff time.Time
	removed   int64
	err       error
	calls     int
}

func (f *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.gotCutoff = cutoff
	return f.removed, f.err
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestSweepDeletesAtRetentionCutoff(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)
	store := &fakeStore{removed: 7}
	s := New(store, fixedClock{t: now}, 30*24*time.Hour, "@daily", nil)

	s.Sweep(context.Background())

	assert.Equal(t, 1, store.calls)
	assert.Equal(t, now.Add(-30*24*time.Hour), store.gotCutoff)
}

func TestSweepSwallowsStoreFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: errors.New("connection refused")}
	s := New(store, fixedClock{t: time.Now()}, 24*time.Hour, "", nil)

	s.Sweep(context.Background())
	assert.Equal(t, 1, store.calls)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := New(&fakeStore{}, fixedClock{t: time.Now()}, 24*time.Hour, "not a schedule", nil)
	require.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	t.Parallel()

	s := New(&fakeStore{}, fixedClock{t: time.Now()}, 24*time.Hour, "@daily", nil)
	require.NoError(t, s.Start())
	s.Stop()
}
