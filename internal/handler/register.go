package handler

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/notifier/internal/ierr"
	"github.com/goevery/notifier/internal/registry"
	"github.com/goevery/notifier/internal/subscriber"
)

type RegisterRequest struct {
	SubscriberId string `json:"subscriberId"`
	Role         string `json:"role"`
}

type RegisterResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

type RegisterHandlerInterface interface {
	Handle(ctx context.Context, req RegisterRequest) (RegisterResponse, error)
}

// RegisterHandler binds a connection to a subscriber identity. Re-registering
// with a different identity rebinds the connection, which supports account or
// role switches without a reconnect.
type RegisterHandler struct {
	connectionRegistry registry.Registry
}

func NewRegisterHandler(
	connectionRegistry registry.Registry,
) *RegisterHandler {
	return &RegisterHandler{
		connectionRegistry,
	}
}

func (h *RegisterHandler) Handle(ctx context.Context, req RegisterRequest) (RegisterResponse, error) {
	identity, err := subscriber.NewIdentity(req.SubscriberId, req.Role)
	if err != nil {
		return RegisterResponse{}, err
	}

	connection, ok := registry.ConnectionFromContext(ctx)
	if !ok {
		return RegisterResponse{}, ierr.New(ierr.ErrorCodeInternal, errors.New("connection not found in context"))
	}

	h.connectionRegistry.Register(connection, identity)

	return RegisterResponse{
		Success:   true,
		Timestamp: time.Now(),
	}, nil
}
