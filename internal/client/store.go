package client

import (
	"context"
	"sync"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/protocol"
	"go.uber.org/zap"
)

type State int

const (
	StateUninitialized State = iota
	StateSyncing
	StateSynced
)

const defaultFetchTimeout = 10 * time.Second

// Store holds the unread counter and the recent unread list for one
// identity, reconciled against the authoritative store. The counter is a
// hint: it is clamped at zero locally and the canonical value is restored by
// every refetch. Synced is sticky; a failed refresh keeps last-known data
// because stale data beats blank data.
type Store struct {
	logger       *zap.Logger
	api          API
	fetchTimeout time.Duration

	mu          sync.Mutex
	state       State
	everSynced  bool
	unreadCount int
	recent      []notification.Notification
	marked      map[string]struct{}

	refreshing    bool
	refreshQueued bool
}

func NewStore(
	logger *zap.Logger,
	api API,
	fetchTimeout time.Duration,
) *Store {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	return &Store{
		logger:       logger,
		api:          api,
		fetchTimeout: fetchTimeout,
		marked:       make(map[string]struct{}),
	}
}

// OnMount fetches the authoritative unread count. Before the first
// successful sync the count stays at zero.
func (s *Store) OnMount(ctx context.Context) error {
	s.mu.Lock()
	if !s.everSynced {
		s.state = StateSyncing
	}
	s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	count, err := s.api.UnreadCount(fetchCtx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if s.everSynced {
			s.state = StateSynced
		} else {
			s.state = StateUninitialized
		}

		return ierr.New(ierr.ErrorCodeSync, err)
	}

	s.unreadCount = count
	s.everSynced = true
	s.state = StateSynced

	return nil
}

// OnPushEvent treats any recognized push frame as a resync hint. It never
// blocks: refetch work is scheduled and coalesced so a burst of N events
// causes at most the in-flight refetch plus one more.
func (s *Store) OnPushEvent(frame protocol.Frame) {
	if !protocol.KnownEventType(frame.Type) {
		s.logger.Debug("ignoring unrecognized push event",
			zap.String("eventType", frame.Type))

		return
	}

	s.scheduleRefresh()
}

// OnOpenList fetches the recent list on demand and returns the unread
// notifications. On failure the last-known list is returned alongside the
// error.
func (s *Store) OnOpenList(ctx context.Context) ([]notification.Notification, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	notifications, err := s.api.Notifications(fetchCtx)
	if err != nil {
		return s.Recent(), ierr.New(ierr.ErrorCodeSync, err)
	}

	s.mu.Lock()
	s.applyListLocked(notifications)
	s.everSynced = true
	s.state = StateSynced
	s.mu.Unlock()

	return s.Recent(), nil
}

// OnMarkRead optimistically removes the notification and decrements the
// counter, clamped at zero, then issues the authoritative mark-as-read. The
// optimistic removal is never rolled back; a reconciling refetch corrects
// any drift either way. Marking the same id twice is a local no-op.
func (s *Store) OnMarkRead(ctx context.Context, notificationId string) error {
	s.mu.Lock()

	if _, ok := s.marked[notificationId]; ok {
		s.mu.Unlock()

		return nil
	}

	s.marked[notificationId] = struct{}{}
	s.removeFromRecentLocked(notificationId)

	if s.unreadCount > 0 {
		s.unreadCount--
	}

	s.mu.Unlock()

	requestCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	err := s.api.MarkRead(requestCtx, notificationId)

	s.scheduleRefresh()

	if err != nil {
		s.logger.Warn("mark-as-read failed, reconciling from authoritative store",
			zap.String("notificationId", notificationId),
			zap.Error(err))

		return ierr.New(ierr.ErrorCodeMarkRead, err)
	}

	return nil
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unreadCount
}

func (s *Store) Recent() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent := make([]notification.Notification, len(s.recent))
	copy(recent, s.recent)

	return recent
}

func (s *Store) scheduleRefresh() {
	s.mu.Lock()

	if s.refreshing {
		s.refreshQueued = true
		s.mu.Unlock()

		return
	}

	s.refreshing = true
	s.mu.Unlock()

	go s.refreshLoop()
}

func (s *Store) refreshLoop() {
	for {
		s.refresh()

		s.mu.Lock()

		if s.refreshQueued {
			s.refreshQueued = false
			s.mu.Unlock()

			continue
		}

		s.refreshing = false
		s.mu.Unlock()

		return
	}
}

// refresh pulls count and list from the authoritative store. A failed or
// timed-out fetch leaves the last Synced state untouched.
func (s *Store) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	count, countErr := s.api.UnreadCount(ctx)
	notifications, listErr := s.api.Notifications(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if countErr != nil {
		s.logger.Warn("unread count refresh failed, keeping last-known value",
			zap.Error(countErr))
	} else {
		s.unreadCount = count
		s.everSynced = true
		s.state = StateSynced
	}

	if listErr != nil {
		s.logger.Warn("notification list refresh failed, keeping last-known list",
			zap.Error(listErr))
	} else {
		s.applyListLocked(notifications)
		s.everSynced = true
		s.state = StateSynced
	}
}

// applyListLocked replaces the local list with the server's unread subset.
// A notification the server still reports unread is dropped from the
// optimistic-mark ledger: its mark-as-read evidently failed, so it may be
// marked again. Ids the server confirmed read stay in the ledger, keeping
// repeat mark-as-read calls no-ops.
func (s *Store) applyListLocked(notifications []notification.Notification) {
	unread := make([]notification.Notification, 0, len(notifications))
	for _, item := range notifications {
		if !item.Read {
			unread = append(unread, item)
			delete(s.marked, item.Id)
		}
	}

	s.recent = unread
}

func (s *Store) removeFromRecentLocked(notificationId string) {
	for i, item := range s.recent {
		if item.Id == notificationId {
			s.recent = append(s.recent[:i], s.recent[i+1:]...)

			return
		}
	}
}
