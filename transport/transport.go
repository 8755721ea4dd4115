// Package transport is the pub/sub boundary the realtime layer is built
// against. Any broker exposing this capability set can carry it; the
// module ships a redis implementation and an in-process one.
package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/anyproto/any-sync/app"

	"github.com/jpjaydus/pixelpin/domain"
)

const CName = "realtime.transport"

const presencePrefix = "presence-"

var (
	ErrSubscriptionClosed  = errors.New("subscription closed")
	ErrNotPresenceChannel  = errors.New("not a presence channel")
	ErrTransportClosed     = errors.New("transport closed")
	ErrAlreadySubscribed   = errors.New("already subscribed to channel")
	ErrPresenceMemberEmpty = errors.New("presence subscription requires a member")
)

// IsPresenceChannel reports whether the transport tracks membership for
// the channel.
func IsPresenceChannel(name string) bool {
	return strings.HasPrefix(name, presencePrefix)
}

type Handler func(data []byte)

type MemberHandler func(member domain.PresenceMember)

type SubscribeOptions struct {
	// Member is announced on presence channels and kept in the
	// membership roster until unsubscribe.
	Member *domain.PresenceMember
}

type Subscription interface {
	Channel() string
	// Bind registers a handler for an event name. Handlers run on the
	// transport's delivery goroutine, in per-channel publish order.
	Bind(event string, h Handler)
	UnbindAll()
	// Trigger emits a client-originated event to every other subscriber
	// of the channel. The triggering subscription receives no echo.
	Trigger(ctx context.Context, event string, payload any) error
	// Members returns the current roster of a presence channel.
	Members(ctx context.Context) (map[string]domain.PresenceMember, error)
	BindMemberAdded(h MemberHandler)
	BindMemberRemoved(h MemberHandler)
	Unsubscribe(ctx context.Context) error
}

type Transport interface {
	app.Component
	Subscribe(ctx context.Context, channel string, opts SubscribeOptions) (Subscription, error)
	// Publish emits a server-originated event to every subscriber.
	Publish(ctx context.Context, channel, event string, payload any) error
}
