package protocol

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Event types recognized by the delivery layer. Push frames are transient
// resync hints, they are never the authoritative data.
const (
	EventNewNotification    = "new-notification"
	EventAppointmentCreated = "appointment_created"
)

// MessageTypeRegister is the first message a client sends after connect. A
// connection that never sends one stays unbound and receives no pushes.
const MessageTypeRegister = "register"

func KnownEventType(eventType string) bool {
	switch eventType {
	case EventNewNotification, EventAppointmentCreated:
		return true
	default:
		return false
	}
}

// Frame is a push event delivered over the live transport.
type Frame struct {
	Id         string          `json:"id"`
	CreateTime time.Time       `json:"createTime"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func NewFrame(eventType string, payload any) (Frame, error) {
	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, ierr.New(ierr.ErrorCodeInternal, err)
	}

	return Frame{
		Id:         gonanoid.Must(),
		CreateTime: time.Now(),
		Type:       eventType,
		Payload:    rawPayload,
	}, nil
}

type NewNotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type AppointmentCreatedPayload struct {
	Message  string `json:"message"`
	Date     string `json:"date"`
	FromTime string `json:"from_time"`
	ToTime   string `json:"to_time"`
}

// Message is the client to server envelope.
type Message struct {
	Type    string           `json:"type"`
	Payload *json.RawMessage `json:"payload,omitempty"`
}

type RegisterPayload struct {
	SubscriberId string `json:"subscriberId"`
	Role         string `json:"role"`
}

func DecodeMessage(raw []byte) (Message, error) {
	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return Message{}, ierr.New(ierr.ErrorCodeProtocol, err)
	}

	if message.Type == "" {
		return Message{}, ierr.New(ierr.ErrorCodeProtocol, errors.New("message type cannot be empty"))
	}

	return message, nil
}

func DecodePayload(payload *json.RawMessage, v any) error {
	if payload == nil {
		return ierr.New(ierr.ErrorCodeProtocol, errors.New("missing payload"))
	}

	if err := json.Unmarshal(*payload, v); err != nil {
		return ierr.New(ierr.ErrorCodeProtocol, errors.New("invalid payload: "+err.Error()))
	}

	return nil
}
