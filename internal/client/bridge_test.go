package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goevery/notifier/internal/notification"
	"github.com/goevery/notifier/internal/protocol"
	"github.com/goevery/notifier/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakePresenter struct {
	mu     sync.Mutex
	frames []protocol.Frame
}

func (p *fakePresenter) Present(frame protocol.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames = append(p.frames, frame)
}

func (p *fakePresenter) presented() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.frames)
}

func newTestBridge(t *testing.T, api API) (*Bridge, *fakePresenter, *Store) {
	t.Helper()

	logger, _ := zap.NewDevelopment()
	store := NewStore(logger, api, time.Second)
	presenter := &fakePresenter{}
	identity := subscriber.Identity{ID: "u1", Role: subscriber.RoleClient}

	bridge := NewBridge(logger, store, presenter, DefaultRouteTable(), identity)

	return bridge, presenter, store
}

func TestBridge_HandleFrame(t *testing.T) {
	t.Run("presents each event once", func(t *testing.T) {
		api := newFakeAPI()
		bridge, presenter, _ := newTestBridge(t, api)

		frame := pushEvent(t)

		// Duplicate delivery, e.g. overlapping multi-tab connections.
		bridge.HandleFrame(frame)
		bridge.HandleFrame(frame)

		assert.Equal(t, 1, presenter.presented())

		bridge.HandleFrame(pushEvent(t))

		assert.Equal(t, 2, presenter.presented())
	})

	t.Run("unknown event types are not presented", func(t *testing.T) {
		api := newFakeAPI()
		bridge, presenter, _ := newTestBridge(t, api)

		bridge.HandleFrame(protocol.Frame{Id: "f1", Type: "registered"})

		time.Sleep(50 * time.Millisecond)

		assert.Equal(t, 0, presenter.presented())

		countCalls, _ := api.counts()
		assert.Equal(t, 0, countCalls)
	})

	t.Run("every recognized frame refreshes the store", func(t *testing.T) {
		api := newFakeAPI()
		api.count = 1
		bridge, _, store := newTestBridge(t, api)

		bridge.HandleFrame(pushEvent(t))

		assert.Eventually(t, func() bool {
			return store.UnreadCount() == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestBridge_Activate(t *testing.T) {
	api := newFakeAPI()
	api.count = 1
	api.notifications = []notification.Notification{
		unreadNotification("n1", "New appointment with Dr. Gray"),
	}

	bridge, _, store := newTestBridge(t, api)

	_, err := store.OnOpenList(context.Background())
	assert.NoError(t, err)

	target, err := bridge.Activate(context.Background(), store.Recent()[0])

	assert.NoError(t, err)
	assert.Equal(t, "/client/appointments", target)
	assert.Equal(t, 1, api.marks("n1"))
	assert.Equal(t, 0, store.UnreadCount())
}

func TestRouteTable_Resolve(t *testing.T) {
	table := DefaultRouteTable()

	t.Run("appointment routes per role", func(t *testing.T) {
		cases := map[subscriber.Role]string{
			subscriber.RoleAdmin:        "/admin/appointments",
			subscriber.RoleStaff:        "/staff/appointments",
			subscriber.RoleReceptionist: "/reception/appointments",
			subscriber.RoleClient:       "/client/appointments",
		}

		for role, expected := range cases {
			target, ok := table.Resolve("New Appointment booked", role)

			assert.True(t, ok)
			assert.Equal(t, expected, target)
		}
	})

	t.Run("falls back to the notification list", func(t *testing.T) {
		target, ok := table.Resolve("Bill due", subscriber.RoleClient)

		assert.True(t, ok)
		assert.Equal(t, "/notifications", target)
	})

	t.Run("first match wins", func(t *testing.T) {
		custom := RouteTable{
			{Matches: TitleContains("bill"), Target: "/billing"},
			{Matches: TitleContains("bill"), Target: "/never-reached"},
		}

		target, ok := custom.Resolve("Bill due", subscriber.RoleClient)

		assert.True(t, ok)
		assert.Equal(t, "/billing", target)
	})

	t.Run("empty table resolves nothing", func(t *testing.T) {
		_, ok := RouteTable{}.Resolve("anything", subscriber.RoleClient)

		assert.False(t, ok)
	})
}
