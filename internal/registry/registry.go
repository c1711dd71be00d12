package registry

import (
	"sync"

	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/subscriber"
	"go.uber.org/zap"
)

// Connection is a live transport handle. It references an identity only
// through the registry, it never owns one.
type Connection interface {
	Id() string
	Send(frame protocol.Frame) error
	Close() error
}

// Registry owns the identity to connections mapping. It carries no business
// data; an empty room and a missing room are equivalent for delivery.
type Registry interface {
	Register(connection Connection, identity subscriber.Identity)
	Unregister(connectionId string)
	Publish(userId string, frame protocol.Frame) int
	UserIdsByRole(role subscriber.Role) []string
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections map[string]Connection
	identities  map[string]subscriber.Identity
	rooms       map[string]map[string]struct{}
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:      logger,
		connections: make(map[string]Connection),
		identities:  make(map[string]subscriber.Identity),
		rooms:       make(map[string]map[string]struct{}),
	}
}

// Register binds a connection to an identity. Registering with the same
// identity is a no-op; registering with a different identity rebinds the
// connection, so a role or account switch needs no reconnect.
func (r *InMemoryRegistry) Register(connection Connection, identity subscriber.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.identities[connection.Id()]; ok {
		if current == identity {
			return
		}

		r.removeFromRoomLocked(current.ID, connection.Id())
	}

	r.connections[connection.Id()] = connection
	r.identities[connection.Id()] = identity

	if _, ok := r.rooms[identity.ID]; !ok {
		r.rooms[identity.ID] = make(map[string]struct{})
	}

	r.rooms[identity.ID][connection.Id()] = struct{}{}

	r.logger.Debug("connection registered",
		zap.String("connectionId", connection.Id()),
		zap.String("subscriberId", identity.ID),
		zap.String("role", string(identity.Role)))
}

// Unregister removes a connection from its room. Unknown connection ids are
// ignored, so transport close and publish-failure eviction may race safely.
func (r *InMemoryRegistry) Unregister(connectionId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[connectionId]
	if !ok {
		delete(r.connections, connectionId)
		return
	}

	r.removeFromRoomLocked(identity.ID, connectionId)
	delete(r.identities, connectionId)
	delete(r.connections, connectionId)
}

// Publish delivers frame to every connection currently bound to userId and
// returns the number of successful deliveries. A room with no members drops
// the frame silently: push is a latency optimization, the authoritative
// store is the durable record. A send failure evicts only the failing
// connection and delivery continues to its siblings.
func (r *InMemoryRegistry) Publish(userId string, frame protocol.Frame) int {
	r.mu.RLock()

	memberIds, ok := r.rooms[userId]
	if !ok {
		r.mu.RUnlock()

		return 0
	}

	connections := make([]Connection, 0, len(memberIds))
	for connectionId := range memberIds {
		if connection, ok := r.connections[connectionId]; ok {
			connections = append(connections, connection)
		}
	}

	r.mu.RUnlock()

	delivered := 0

	var staleConnections []Connection

	for _, connection := range connections {
		if err := connection.Send(frame); err != nil {
			r.logger.Warn("failed to push frame, evicting connection",
				zap.String("connectionId", connection.Id()),
				zap.Error(err))

			staleConnections = append(staleConnections, connection)

			continue
		}

		delivered++
	}

	for _, connection := range staleConnections {
		r.Unregister(connection.Id())
		connection.Close()
	}

	return delivered
}

// UserIdsByRole returns the ids of every currently-registered identity with
// the given role, for role-wide announcements.
func (r *InMemoryRegistry) UserIdsByRole(role subscriber.Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})

	var userIds []string

	for _, identity := range r.identities {
		if identity.Role != role {
			continue
		}

		if _, ok := seen[identity.ID]; ok {
			continue
		}

		seen[identity.ID] = struct{}{}
		userIds = append(userIds, identity.ID)
	}

	return userIds
}

func (r *InMemoryRegistry) removeFromRoomLocked(userId string, connectionId string) {
	members, ok := r.rooms[userId]
	if !ok {
		return
	}

	delete(members, connectionId)
	if len(members) == 0 {
		delete(r.rooms, userId)
	}
}
