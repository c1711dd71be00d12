package protocol

import (
	"testing"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/stretchr/testify/assert"
)

func TestDecodeMessage(t *testing.T) {
	t.Run("valid register message", func(t *testing.T) {
		message, err := DecodeMessage([]byte(`{"type":"register","payload":{"subscriberId":"u1","role":"client"}}`))

		assert.NoError(t, err)
		assert.Equal(t, MessageTypeRegister, message.Type)

		var payload RegisterPayload
		err = DecodePayload(message.Payload, &payload)

		assert.NoError(t, err)
		assert.Equal(t, "u1", payload.SubscriberId)
		assert.Equal(t, "client", payload.Role)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeMessage([]byte("not-json"))

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeProtocol, ierr.CodeOf(err))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := DecodeMessage([]byte(`{"payload":{}}`))

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeProtocol, ierr.CodeOf(err))
	})

	t.Run("missing payload", func(t *testing.T) {
		message, err := DecodeMessage([]byte(`{"type":"register"}`))
		assert.NoError(t, err)

		var payload RegisterPayload
		err = DecodePayload(message.Payload, &payload)

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeProtocol, ierr.CodeOf(err))
	})
}

func TestKnownEventType(t *testing.T) {
	assert.True(t, KnownEventType(EventNewNotification))
	assert.True(t, KnownEventType(EventAppointmentCreated))
	assert.False(t, KnownEventType("registered"))
	assert.False(t, KnownEventType(""))
}

func TestNewFrame(t *testing.T) {
	frame, err := NewFrame(EventAppointmentCreated, AppointmentCreatedPayload{
		Message:  "Appointment booked",
		Date:     "2025-03-14",
		FromTime: "10:00",
		ToTime:   "10:30",
	})

	assert.NoError(t, err)
	assert.NotEmpty(t, frame.Id)
	assert.False(t, frame.CreateTime.IsZero())
	assert.Equal(t, EventAppointmentCreated, frame.Type)

	var payload AppointmentCreatedPayload
	err = DecodePayload(&frame.Payload, &payload)

	assert.NoError(t, err)
	assert.Equal(t, "10:00", payload.FromTime)
}
