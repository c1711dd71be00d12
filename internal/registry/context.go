package registry

import (
	"context"
)

type contextKey string

const connectionKey contextKey = "connection"

func WithConnection(ctx context.Context, connection Connection) context.Context {
	return context.WithValue(ctx, connectionKey, connection)
}

func ConnectionFromContext(ctx context.Context) (Connection, bool) {
	connection, ok := ctx.Value(connectionKey).(Connection)

	return connection, ok
}
