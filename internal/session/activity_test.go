package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esygrab/internal/models"
)

type countingReporter struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReporter) RecordActivity(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *countingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestTracker(m *Manager, reporter ActivityReporter) *ActivityTracker {
	t := NewActivityTracker(m, reporter, models.RoleCustomer, "u1")
	t.debounce = 50 * time.Millisecond
	t.heartbeat = 24 * time.Hour // effectively off unless a test shortens it
	return t
}

func TestTouchDebouncesRemoteUpdates(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	reporter := &countingReporter{}
	tracker := newTestTracker(m, reporter)
	defer tracker.Stop()

	// A burst of interaction produces exactly one remote update.
	tracker.Touch(ctx)
	tracker.Touch(ctx)
	tracker.Touch(ctx)
	assert.Equal(t, 1, reporter.count())

	// After the debounce window another update goes out.
	time.Sleep(60 * time.Millisecond)
	tracker.Touch(ctx)
	assert.Equal(t, 2, reporter.count())
}

func TestTouchRefreshesLocalActivity(t *testing.T) {
	m, _, clock := newTestManager()
	ctx := context.Background()
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	before := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, before)

	clock.Advance(time.Minute)

	reporter := &countingReporter{}
	tracker := newTestTracker(m, reporter)
	defer tracker.Stop()
	tracker.Touch(ctx)

	after := m.GetSession(ctx, models.RoleCustomer)
	require.NotNil(t, after)
	assert.True(t, after.LastActivity.After(before.LastActivity))
}

func TestHeartbeatFiresWithoutInteraction(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	reporter := &countingReporter{}
	tracker := newTestTracker(m, reporter)
	tracker.heartbeat = 30 * time.Millisecond
	tracker.Start()
	defer tracker.Stop()

	assert.Eventually(t, func() bool {
		return reporter.count() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	m, _, _ := newTestManager()

	tracker := newTestTracker(m, &countingReporter{})
	tracker.Start()

	tracker.Stop()
	tracker.Stop() // second stop must not panic
}

func TestHeartbeatEndsTrackerWhenSessionExpires(t *testing.T) {
	m, _, clock := newTestManager()
	ctx := context.Background()
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	reporter := &countingReporter{}
	tracker := newTestTracker(m, reporter)
	tracker.heartbeat = 20 * time.Millisecond
	ended := make(chan struct{})
	tracker.OnSessionEnd(func() { close(ended) })

	clock.Advance(RoleSessionTTL + time.Minute)
	tracker.Start()

	select {
	case <-ended:
	case <-time.After(time.Second):
		t.Fatal("tracker kept running after its session expired")
	}

	// Once ended, the heartbeat issues no further remote updates.
	baseline := reporter.count()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, baseline, reporter.count())
}

func TestTouchEndsTrackerWhenSessionGone(t *testing.T) {
	m, _, clock := newTestManager()
	ctx := context.Background()
	m.StoreSession(ctx, testUser("u1", models.RoleCustomer), models.RoleCustomer)

	reporter := &countingReporter{}
	tracker := newTestTracker(m, reporter)
	ended := false
	tracker.OnSessionEnd(func() { ended = true })

	clock.Advance(RoleSessionTTL + time.Minute)
	tracker.Touch(ctx)

	assert.True(t, ended)
	assert.Zero(t, reporter.count(), "an expired session must not report activity")
}
