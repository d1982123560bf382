package session

import (
	"context"
	"log"
	"sync"
	"time"

	"esygrab/internal/models"
)

const (
	// RemoteActivityDebounce caps how often interaction forwards an
	// activity update to the identity provider.
	RemoteActivityDebounce = 60 * time.Second

	// HeartbeatInterval refreshes activity unconditionally so the
	// inactivity cutoff never trips while a session is genuinely in use.
	HeartbeatInterval = 5 * time.Minute
)

// ActivityReporter pushes an activity signal to the identity provider's
// backing store. Implemented by the identity client.
type ActivityReporter interface {
	RecordActivity(ctx context.Context, userID string) error
}

// ActivityTracker keeps a role session's LastActivity fresh while its
// owner is interacting. Interaction updates local activity immediately
// and forwards a remote update at most once per debounce window; an
// independent heartbeat re-issues both regardless of interaction.
// Start/Stop pair with the owning session: start on sign-in, stop on
// sign-out. The tracker also stops itself once its session no longer
// exists (TTL or inactivity expiry), so a lapsed session never keeps a
// heartbeat goroutine or remote updates alive. Stop is safe to call more
// than once.
type ActivityTracker struct {
	manager  *Manager
	reporter ActivityReporter
	role     models.Role
	userID   string

	debounce  time.Duration
	heartbeat time.Duration
	onEnd     func()

	mutex      sync.Mutex
	lastRemote time.Time
	stop       chan struct{}
	stopOnce   sync.Once
	endOnce    sync.Once
	now        func() time.Time
}

// NewActivityTracker creates a tracker for an authenticated session.
func NewActivityTracker(manager *Manager, reporter ActivityReporter, role models.Role, userID string) *ActivityTracker {
	return &ActivityTracker{
		manager:   manager,
		reporter:  reporter,
		role:      role,
		userID:    userID,
		debounce:  RemoteActivityDebounce,
		heartbeat: HeartbeatInterval,
		stop:      make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the heartbeat goroutine.
func (t *ActivityTracker) Start() {
	go t.run()
}

// Stop cancels the heartbeat. Idempotent.
func (t *ActivityTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stop)
	})
}

// OnSessionEnd registers fn to run once when the tracker stops itself
// because its session no longer exists. Set before Start.
func (t *ActivityTracker) OnSessionEnd(fn func()) {
	t.onEnd = fn
}

// end stops the tracker from the inside, firing the OnSessionEnd hook
// exactly once.
func (t *ActivityTracker) end() {
	t.Stop()
	t.endOnce.Do(func() {
		if t.onEnd != nil {
			t.onEnd()
		}
	})
}

// Touch records an interaction: local activity is refreshed right away,
// the remote update only when the debounce window has passed. A Touch
// that finds the session gone ends the tracker instead.
func (t *ActivityTracker) Touch(ctx context.Context) {
	// GetSession refreshes LastActivity as a side effect of a valid read.
	if t.manager.GetSession(ctx, t.role) == nil {
		t.end()
		return
	}

	t.mutex.Lock()
	due := t.now().Sub(t.lastRemote) >= t.debounce
	if due {
		t.lastRemote = t.now()
	}
	t.mutex.Unlock()

	if due {
		t.report(ctx)
	}
}

func (t *ActivityTracker) run() {
	ticker := time.NewTicker(t.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if t.manager.GetSession(ctx, t.role) == nil {
				cancel()
				t.end()
				return
			}

			t.mutex.Lock()
			t.lastRemote = t.now()
			t.mutex.Unlock()

			t.report(ctx)
			cancel()
		}
	}
}

func (t *ActivityTracker) report(ctx context.Context) {
	if err := t.reporter.RecordActivity(ctx, t.userID); err != nil {
		log.Printf("Failed to record remote activity for user %s: %v", t.userID, err)
	}
}
