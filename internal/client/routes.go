package client

import (
	"strings"

	"github.com/goevery/notifier/internal/subscriber"
)

// Route maps a notification to a navigation target. The table is data, not
// control flow: swap it for structured event-type matching without touching
// the delivery layer.
type Route struct {
	// Matches inspects the notification title. Nil matches everything.
	Matches func(title string) bool

	// Role restricts the route to one role. Empty matches every role.
	Role subscriber.Role

	Target string
}

// RouteTable resolves {title, role} to a target, first match wins. Resolve
// is a pure lookup with no side effects.
type RouteTable []Route

func (t RouteTable) Resolve(title string, role subscriber.Role) (string, bool) {
	for _, route := range t {
		if route.Role != "" && route.Role != role {
			continue
		}

		if route.Matches != nil && !route.Matches(title) {
			continue
		}

		return route.Target, true
	}

	return "", false
}

func TitleContains(keyword string) func(title string) bool {
	keyword = strings.ToLower(keyword)

	return func(title string) bool {
		return strings.Contains(strings.ToLower(title), keyword)
	}
}

func DefaultRouteTable() RouteTable {
	appointment := TitleContains("appointment")

	return RouteTable{
		{Matches: appointment, Role: subscriber.RoleAdmin, Target: "/admin/appointments"},
		{Matches: appointment, Role: subscriber.RoleStaff, Target: "/staff/appointments"},
		{Matches: appointment, Role: subscriber.RoleReceptionist, Target: "/reception/appointments"},
		{Matches: appointment, Role: subscriber.RoleClient, Target: "/client/appointments"},
		{Target: "/notifications"},
	}
}
