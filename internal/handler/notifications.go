package handler

import (
	"context"

	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/subscriber"
)

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type MarkReadResponse struct {
	Success bool `json:"success"`
}

type NotificationsHandlerInterface interface {
	List(ctx context.Context, identity subscriber.Identity) ([]notification.Notification, error)
	UnreadCount(ctx context.Context, identity subscriber.Identity) (UnreadCountResponse, error)
	MarkRead(ctx context.Context, identity subscriber.Identity, notificationId string) (MarkReadResponse, error)
}

// NotificationsHandler serves the authoritative read model the clients
// reconcile against.
type NotificationsHandler struct {
	store notification.Store
}

func NewNotificationsHandler(
	store notification.Store,
) *NotificationsHandler {
	return &NotificationsHandler{
		store,
	}
}

func (h *NotificationsHandler) List(ctx context.Context, identity subscriber.Identity) ([]notification.Notification, error) {
	notifications, err := h.store.List(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = []notification.Notification{}
	}

	return notifications, nil
}

func (h *NotificationsHandler) UnreadCount(ctx context.Context, identity subscriber.Identity) (UnreadCountResponse, error) {
	count, err := h.store.UnreadCount(ctx, identity.ID)
	if err != nil {
		return UnreadCountResponse{}, err
	}

	return UnreadCountResponse{
		Count: count,
	}, nil
}

func (h *NotificationsHandler) MarkRead(ctx context.Context, identity subscriber.Identity, notificationId string) (MarkReadResponse, error) {
	err := h.store.MarkRead(ctx, identity.ID, notificationId)
	if err != nil {
		return MarkReadResponse{}, err
	}

	return MarkReadResponse{
		Success: true,
	}, nil
}
