package client

import (
	"context"
	"sync"

	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/subscriber"
	"go.uber.org/zap"
)

// Presenter renders a push event as an ephemeral toast or system
// notification. Implementations live in the host application.
type Presenter interface {
	Present(frame protocol.Frame)
}

const seenFrameLimit = 256

// Bridge connects the push transport to the notification store and the
// presenter. Each frame updates the store and is presented at most once per
// frame id, so duplicate deliveries from multi-tab connection overlap render
// a single toast.
type Bridge struct {
	logger    *zap.Logger
	store     *Store
	presenter Presenter
	routes    RouteTable
	identity  subscriber.Identity

	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
}

func NewBridge(
	logger *zap.Logger,
	store *Store,
	presenter Presenter,
	routes RouteTable,
	identity subscriber.Identity,
) *Bridge {
	return &Bridge{
		logger:    logger,
		store:     store,
		presenter: presenter,
		routes:    routes,
		identity:  identity,
		seen:      make(map[string]struct{}),
	}
}

// HandleFrame is the transport's frame handler.
func (b *Bridge) HandleFrame(frame protocol.Frame) {
	b.store.OnPushEvent(frame)

	if !protocol.KnownEventType(frame.Type) {
		return
	}

	if b.alreadyPresented(frame.Id) {
		b.logger.Debug("suppressing duplicate presentation",
			zap.String("frameId", frame.Id))

		return
	}

	b.presenter.Present(frame)
}

// Activate handles user interaction with a rendered notification: mark it
// read, then resolve the navigation target from title and role. The target
// is returned even when the mark-as-read fails; the store reconciles in the
// background.
func (b *Bridge) Activate(ctx context.Context, item notification.Notification) (string, error) {
	err := b.store.OnMarkRead(ctx, item.Id)

	target, ok := b.routes.Resolve(item.Title, b.identity.Role)
	if !ok {
		target = ""
	}

	return target, err
}

func (b *Bridge) alreadyPresented(frameId string) bool {
	if frameId == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[frameId]; ok {
		return true
	}

	b.seen[frameId] = struct{}{}
	b.order = append(b.order, frameId)

	if len(b.order) > seenFrameLimit {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.seen, oldest)
	}

	return false
}
