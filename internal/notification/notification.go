package notification

import (
	"context"
	"time"
)

// Notification is the system-of-record shape. Read state is monotonic, a
// notification is never un-read.
type Notification struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

type SaveRequest struct {
	UserId  string
	Title   string
	Message string
}

// Store is the authoritative notification store. Push delivery never writes
// here except through Save; everything clients display is reconstructable
// from List and UnreadCount alone.
type Store interface {
	Setup(ctx context.Context) error
	Save(ctx context.Context, request SaveRequest) (Notification, error)
	List(ctx context.Context, userId string) ([]Notification, error)
	UnreadCount(ctx context.Context, userId string) (int, error)

	// MarkRead is idempotent: marking an already-read or unknown
	// notification is not an error.
	MarkRead(ctx context.Context, userId string, notificationId string) error
}
