package router

import (
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/registry"
	"github.com/goevery/notifier/internal/subscriber"
	"go.uber.org/zap"
)

// Router translates a domain event target into registry publishes. It is a
// pure fan-out mechanism and makes no ordering guarantee between distinct
// events; clients reconcile against the authoritative store.
type Router struct {
	logger   *zap.Logger
	registry registry.Registry
}

func NewRouter(
	logger *zap.Logger,
	registry registry.Registry,
) *Router {
	return &Router{
		logger,
		registry,
	}
}

// RouteToUser delivers frame to every connection of the user. The role is
// not part of the routing key for user-targeted events.
func (r *Router) RouteToUser(userId string, frame protocol.Frame) int {
	delivered := r.registry.Publish(userId, frame)

	r.logger.Debug("routed frame to user",
		zap.String("userId", userId),
		zap.String("eventType", frame.Type),
		zap.Int("delivered", delivered))

	return delivered
}

// RouteToRole delivers frame to every currently-registered identity with the
// given role.
func (r *Router) RouteToRole(role subscriber.Role, frame protocol.Frame) int {
	delivered := 0

	for _, userId := range r.registry.UserIdsByRole(role) {
		delivered += r.registry.Publish(userId, frame)
	}

	r.logger.Debug("routed frame to role",
		zap.String("role", string(role)),
		zap.String("eventType", frame.Type),
		zap.Int("delivered", delivered))

	return delivered
}
