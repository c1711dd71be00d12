package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/subscriber"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type FrameHandler func(frame protocol.Frame)

// Transport is an explicitly constructed push channel for one identity. It
// is owned by the composition root and injected wherever frames are
// consumed; there is no shared module-level instance. Frames are dispatched
// serially from a single read goroutine.
type Transport struct {
	logger        *zap.Logger
	url           string
	identity      subscriber.Identity
	dialer        *websocket.Dialer
	requestHeader http.Header

	mu       sync.Mutex
	conn     *websocket.Conn
	handlers []FrameHandler
}

// NewTransport builds a transport for the given websocket endpoint.
// requestHeader carries opaque credential-forwarding headers and may be nil.
func NewTransport(
	logger *zap.Logger,
	url string,
	identity subscriber.Identity,
	requestHeader http.Header,
) *Transport {
	return &Transport{
		logger:        logger,
		url:           url,
		identity:      identity,
		dialer:        websocket.DefaultDialer,
		requestHeader: requestHeader,
	}
}

// OnFrame registers a frame handler. Handlers must be registered before
// Connect.
func (t *Transport) OnFrame(handler FrameHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.handlers = append(t.handlers, handler)
}

// Connect dials the endpoint, sends the register handshake and starts the
// read loop. A dropped transport is not fatal to the caller: the
// authoritative store stays reachable over plain pulls, so the caller may
// simply Connect again later.
func (t *Transport) Connect(ctx context.Context) error {
	conn, _, err := t.dialer.DialContext(ctx, t.url, t.requestHeader)
	if err != nil {
		return ierr.New(ierr.ErrorCodeTransport, err)
	}

	register, err := registerMessage(t.identity)
	if err != nil {
		conn.Close()

		return err
	}

	if err := conn.WriteJSON(register); err != nil {
		conn.Close()

		return ierr.New(ierr.ErrorCodeTransport, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)

	return nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	return conn.Close()
}

func (t *Transport) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.logger.Info("push transport closed", zap.Error(err))

			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(raw, &frame); err != nil || frame.Type == "" {
			t.logger.Debug("dropping malformed push frame")

			continue
		}

		t.mu.Lock()
		handlers := t.handlers
		t.mu.Unlock()

		for _, handler := range handlers {
			handler(frame)
		}
	}
}

func registerMessage(identity subscriber.Identity) (protocol.Message, error) {
	rawPayload, err := json.Marshal(protocol.RegisterPayload{
		SubscriberId: identity.ID,
		Role:         string(identity.Role),
	})
	if err != nil {
		return protocol.Message{}, ierr.New(ierr.ErrorCodeInternal, err)
	}

	payload := json.RawMessage(rawPayload)

	return protocol.Message{
		Type:    protocol.MessageTypeRegister,
		Payload: &payload,
	}, nil
}
