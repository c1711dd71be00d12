package handler

import (
	"context"
	"errors"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/router"
	"github.com/goevery/notifier/internal/subscriber"
)

// PublishRequest is the entry point for backend domain events. Exactly one
// of UserId and Role targets the event: user-targeted events are persisted
// and pushed, role-targeted events are transient announcements and only
// pushed.
type PublishRequest struct {
	UserId string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`

	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`

	// Appointment fields, only meaningful for appointment_created.
	Date     string `json:"date,omitempty"`
	FromTime string `json:"from_time,omitempty"`
	ToTime   string `json:"to_time,omitempty"`
}

type PublishResponse struct {
	NotificationId string `json:"notificationId,omitempty"`
	Delivered      int    `json:"delivered"`
}

type PublishHandlerInterface interface {
	Handle(ctx context.Context, req PublishRequest) (PublishResponse, error)
}

type PublishHandler struct {
	store       notification.Store
	eventRouter *router.Router
}

func NewPublishHandler(
	store notification.Store,
	eventRouter *router.Router,
) *PublishHandler {
	return &PublishHandler{
		store,
		eventRouter,
	}
}

func (h *PublishHandler) Handle(ctx context.Context, req PublishRequest) (PublishResponse, error) {
	if !protocol.KnownEventType(req.Type) {
		return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("unknown event type: "+req.Type))
	}

	if (req.UserId == "") == (req.Role == "") {
		return PublishResponse{},
			ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("exactly one of userId and role must be set"))
	}

	if req.Message == "" {
		return PublishResponse{}, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("message cannot be empty"))
	}

	frame, err := protocol.NewFrame(req.Type, h.payload(req))
	if err != nil {
		return PublishResponse{}, err
	}

	if req.Role != "" {
		role, err := subscriber.ParseRole(req.Role)
		if err != nil {
			return PublishResponse{}, err
		}

		delivered := h.eventRouter.RouteToRole(role, frame)

		return PublishResponse{
			Delivered: delivered,
		}, nil
	}

	saved, err := h.store.Save(ctx, notification.SaveRequest{
		UserId:  req.UserId,
		Title:   h.title(req),
		Message: req.Message,
	})
	if err != nil {
		return PublishResponse{}, err
	}

	delivered := h.eventRouter.RouteToUser(req.UserId, frame)

	return PublishResponse{
		NotificationId: saved.Id,
		Delivered:      delivered,
	}, nil
}

func (h *PublishHandler) payload(req PublishRequest) any {
	if req.Type == protocol.EventAppointmentCreated {
		return protocol.AppointmentCreatedPayload{
			Message:  req.Message,
			Date:     req.Date,
			FromTime: req.FromTime,
			ToTime:   req.ToTime,
		}
	}

	return protocol.NewNotificationPayload{
		Title:   h.title(req),
		Message: req.Message,
	}
}

func (h *PublishHandler) title(req PublishRequest) string {
	if req.Title != "" {
		return req.Title
	}

	if req.Type == protocol.EventAppointmentCreated {
		return "New appointment"
	}

	return "Notification"
}
