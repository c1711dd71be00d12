package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/goevery/notifier/internal/handler"
	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/registry"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const sendBufferSize = 16

type WebSocketServer struct {
	logger             *zap.Logger
	upgrader           *websocket.Upgrader
	connectionRegistry registry.Registry
	registerHandler    handler.RegisterHandlerInterface
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	connectionRegistry registry.Registry,
	registerHandler handler.RegisterHandlerInterface,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		connectionRegistry,
		registerHandler,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/websocket", func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		wsConn.SetReadLimit(4096)

		connection := newConnection(gonanoid.Must(), wsConn)

		s.logger.Info("websocket connection established",
			zap.String("connectionId", connection.Id()))

		go connection.writePump(s.logger)

		s.readLoop(r.Context(), connection)

		s.connectionRegistry.Unregister(connection.Id())
		connection.Close()

		s.logger.Info("websocket connection closed",
			zap.String("connectionId", connection.Id()))
	})
}

// readLoop handles inbound messages until the transport fails. Malformed and
// unknown frames are dropped without touching the connection: an unbound
// connection is inert, not an error condition.
func (s *WebSocketServer) readLoop(ctx context.Context, connection *wsConnection) {
	for {
		_, raw, err := connection.ws.ReadMessage()
		if err != nil {
			return
		}

		message, err := protocol.DecodeMessage(raw)
		if err != nil {
			s.logger.Debug("dropping malformed frame",
				zap.String("connectionId", connection.Id()),
				zap.Error(err))

			continue
		}

		switch message.Type {
		case protocol.MessageTypeRegister:
			s.handleRegister(ctx, connection, message)
		default:
			s.logger.Debug("dropping unknown message type",
				zap.String("connectionId", connection.Id()),
				zap.String("type", message.Type))
		}
	}
}

func (s *WebSocketServer) handleRegister(ctx context.Context, connection *wsConnection, message protocol.Message) {
	var payload protocol.RegisterPayload
	if err := protocol.DecodePayload(message.Payload, &payload); err != nil {
		s.logger.Debug("dropping invalid register payload",
			zap.String("connectionId", connection.Id()),
			zap.Error(err))

		return
	}

	ctx = registry.WithConnection(ctx, connection)

	response, err := s.registerHandler.Handle(ctx, handler.RegisterRequest{
		SubscriberId: payload.SubscriberId,
		Role:         payload.Role,
	})
	if err != nil {
		s.logger.Debug("register rejected",
			zap.String("connectionId", connection.Id()),
			zap.Error(err))

		return
	}

	ack, err := protocol.NewFrame("registered", response)
	if err != nil {
		return
	}

	if err := connection.Send(ack); err != nil {
		s.logger.Debug("failed to ack register",
			zap.String("connectionId", connection.Id()),
			zap.Error(err))
	}
}

// wsConnection adapts a gorilla websocket to the registry's Connection. All
// writes go through the send channel so the write pump is the only goroutine
// touching the socket for output.
type wsConnection struct {
	id   string
	ws   *websocket.Conn
	send chan protocol.Frame

	mu     sync.Mutex
	closed bool
}

func newConnection(id string, ws *websocket.Conn) *wsConnection {
	return &wsConnection{
		id:   id,
		ws:   ws,
		send: make(chan protocol.Frame, sendBufferSize),
	}
}

func (c *wsConnection) Id() string {
	return c.id
}

func (c *wsConnection) Send(frame protocol.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ierr.New(ierr.ErrorCodeTransport, errors.New("connection closed"))
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ierr.New(ierr.ErrorCodeTransport, errors.New("send buffer full"))
	}
}

func (c *wsConnection) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	close(c.send)
	c.mu.Unlock()

	return c.ws.Close()
}

func (c *wsConnection) writePump(logger *zap.Logger) {
	for frame := range c.send {
		if err := c.ws.WriteJSON(frame); err != nil {
			logger.Debug("websocket write failed",
				zap.String("connectionId", c.id),
				zap.Error(err))

			return
		}
	}
}
