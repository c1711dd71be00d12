package handler

import (
	"context"
	"sync"
	"testing"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/notification/memory"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/registry"
	"github.com/goevery/notifier/internal/router"
	"github.com/goevery/notifier/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeConnection struct {
	id string

	mu     sync.Mutex
	frames []protocol.Frame
}

func (c *fakeConnection) Id() string {
	return c.id
}

func (c *fakeConnection) Send(frame protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frames = append(c.frames, frame)

	return nil
}

func (c *fakeConnection) Close() error {
	return nil
}

func (c *fakeConnection) received() []protocol.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := make([]protocol.Frame, len(c.frames))
	copy(frames, c.frames)

	return frames
}

func newPublishFixture(t *testing.T) (*PublishHandler, *memory.Store, *registry.InMemoryRegistry) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	store := memory.NewStore()
	connectionRegistry := registry.NewInMemoryRegistry(logger)
	eventRouter := router.NewRouter(logger, connectionRegistry)

	return NewPublishHandler(store, eventRouter), store, connectionRegistry
}

func TestPublishHandler_UserEvent(t *testing.T) {
	publishHandler, store, connectionRegistry := newPublishFixture(t)

	connection := &fakeConnection{id: "c1"}
	connectionRegistry.Register(connection, subscriber.Identity{ID: "u1", Role: subscriber.RoleClient})

	response, err := publishHandler.Handle(context.Background(), PublishRequest{
		UserId:  "u1",
		Type:    protocol.EventNewNotification,
		Title:   "Bill due",
		Message: "Your invoice is ready",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, response.NotificationId)
	assert.Equal(t, 1, response.Delivered)

	// Persisted in the authoritative store.
	count, err := store.UnreadCount(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	// Pushed as a frame.
	frames := connection.received()
	assert.Len(t, frames, 1)
	assert.Equal(t, protocol.EventNewNotification, frames[0].Type)

	var payload protocol.NewNotificationPayload
	assert.NoError(t, protocol.DecodePayload(&frames[0].Payload, &payload))
	assert.Equal(t, "Bill due", payload.Title)
}

func TestPublishHandler_AppointmentEvent(t *testing.T) {
	publishHandler, store, connectionRegistry := newPublishFixture(t)

	connection := &fakeConnection{id: "c1"}
	connectionRegistry.Register(connection, subscriber.Identity{ID: "u1", Role: subscriber.RoleClient})

	_, err := publishHandler.Handle(context.Background(), PublishRequest{
		UserId:   "u1",
		Type:     protocol.EventAppointmentCreated,
		Message:  "Appointment booked",
		Date:     "2025-03-14",
		FromTime: "10:00",
		ToTime:   "10:30",
	})

	assert.NoError(t, err)

	frames := connection.received()
	assert.Len(t, frames, 1)

	var payload protocol.AppointmentCreatedPayload
	assert.NoError(t, protocol.DecodePayload(&frames[0].Payload, &payload))
	assert.Equal(t, "2025-03-14", payload.Date)

	// The persisted notification gets the default appointment title.
	notifications, err := store.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, "New appointment", notifications[0].Title)
}

func TestPublishHandler_RoleEvent(t *testing.T) {
	publishHandler, store, connectionRegistry := newPublishFixture(t)

	staff := &fakeConnection{id: "c1"}
	connectionRegistry.Register(staff, subscriber.Identity{ID: "u1", Role: subscriber.RoleStaff})

	response, err := publishHandler.Handle(context.Background(), PublishRequest{
		Role:    "staff",
		Type:    protocol.EventNewNotification,
		Message: "Staff meeting at noon",
	})

	assert.NoError(t, err)
	assert.Empty(t, response.NotificationId)
	assert.Equal(t, 1, response.Delivered)

	// Role broadcasts are transient announcements, never persisted.
	count, err := store.UnreadCount(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestPublishHandler_Validation(t *testing.T) {
	publishHandler, _, _ := newPublishFixture(t)

	t.Run("unknown event type", func(t *testing.T) {
		_, err := publishHandler.Handle(context.Background(), PublishRequest{
			UserId:  "u1",
			Type:    "password_changed",
			Message: "hi",
		})

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeInvalidArgument, ierr.CodeOf(err))
	})

	t.Run("both user and role targets", func(t *testing.T) {
		_, err := publishHandler.Handle(context.Background(), PublishRequest{
			UserId:  "u1",
			Role:    "staff",
			Type:    protocol.EventNewNotification,
			Message: "hi",
		})

		assert.Error(t, err)
	})

	t.Run("no target", func(t *testing.T) {
		_, err := publishHandler.Handle(context.Background(), PublishRequest{
			Type:    protocol.EventNewNotification,
			Message: "hi",
		})

		assert.Error(t, err)
	})

	t.Run("empty message", func(t *testing.T) {
		_, err := publishHandler.Handle(context.Background(), PublishRequest{
			UserId: "u1",
			Type:   protocol.EventNewNotification,
		})

		assert.Error(t, err)
	})
}
