package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goevery/notifier/internal/notification"
	"github.com/google/uuid"
)

const recentListLimit = 50

// Store keeps notifications in process memory, newest first. It backs local
// development and tests; production uses the mongodb store.
type Store struct {
	mu            sync.Mutex
	notifications map[string][]notification.Notification
}

func NewStore() *Store {
	return &Store{
		notifications: make(map[string][]notification.Notification),
	}
}

func (s *Store) Setup(ctx context.Context) error {
	return nil
}

func (s *Store) Save(ctx context.Context, request notification.SaveRequest) (notification.Notification, error) {
	saved := notification.Notification{
		Id:        uuid.NewString(),
		Title:     request.Title,
		Message:   request.Message,
		CreatedAt: time.Now(),
		Read:      false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[request.UserId] = append(
		[]notification.Notification{saved},
		s.notifications[request.UserId]...,
	)

	return saved, nil
}

func (s *Store) List(ctx context.Context, userId string) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.notifications[userId]
	if len(stored) > recentListLimit {
		stored = stored[:recentListLimit]
	}

	listed := make([]notification.Notification, len(stored))
	copy(listed, stored)

	return listed, nil
}

func (s *Store) UnreadCount(ctx context.Context, userId string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, item := range s.notifications[userId] {
		if !item.Read {
			count++
		}
	}

	return count, nil
}

func (s *Store) MarkRead(ctx context.Context, userId string, notificationId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.notifications[userId]
	for i := range stored {
		if stored[i].Id == notificationId {
			stored[i].Read = true

			return nil
		}
	}

	return nil
}
