// Package memtransport is an in-process broker for single-node
// deployments and tests. Delivery happens inline on the publishing
// goroutine, so per-channel order follows publish order exactly.
package memtransport

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anyproto/any-sync/app"

	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/transport"
)

func New() transport.Transport {
	return &memTransport{
		channels: make(map[string][]*memSubscription),
	}
}

type memTransport struct {
	mu       sync.Mutex
	channels map[string][]*memSubscription
}

func (t *memTransport) Init(a *app.App) (err error) {
	return nil
}

func (t *memTransport) Name() (name string) {
	return transport.CName
}

func (t *memTransport) Subscribe(ctx context.Context, channel string, opts transport.SubscribeOptions) (transport.Subscription, error) {
	if transport.IsPresenceChannel(channel) && opts.Member == nil {
		return nil, transport.ErrPresenceMemberEmpty
	}
	sub := &memSubscription{
		t:        t,
		channel:  channel,
		member:   opts.Member,
		handlers: make(map[string][]transport.Handler),
	}
	t.mu.Lock()
	peers := append([]*memSubscription(nil), t.channels[channel]...)
	t.channels[channel] = append(t.channels[channel], sub)
	t.mu.Unlock()
	if sub.member != nil {
		data, _ := json.Marshal(sub.member)
		for _, p := range peers {
			p.dispatchMember(events.NameMemberAdded, data)
		}
	}
	return sub, nil
}

func (t *memTransport) Publish(ctx context.Context, channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	t.dispatch(channel, event, data, nil)
	return nil
}

func (t *memTransport) dispatch(channel, event string, data []byte, skip *memSubscription) {
	t.mu.Lock()
	subs := append([]*memSubscription(nil), t.channels[channel]...)
	t.mu.Unlock()
	for _, sub := range subs {
		if sub == skip {
			continue
		}
		switch event {
		case events.NameMemberAdded, events.NameMemberRemoved:
			sub.dispatchMember(event, data)
		default:
			sub.dispatchEvent(event, data)
		}
	}
}

func (t *memTransport) drop(sub *memSubscription) {
	t.mu.Lock()
	subs := t.channels[sub.channel]
	for i, s := range subs {
		if s == sub {
			t.channels[sub.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
}

type memSubscription struct {
	t       *memTransport
	channel string
	member  *domain.PresenceMember

	mu            sync.Mutex
	closed        bool
	handlers      map[string][]transport.Handler
	memberAdded   transport.MemberHandler
	memberRemoved transport.MemberHandler
}

func (s *memSubscription) Channel() string {
	return s.channel
}

func (s *memSubscription) Bind(event string, h transport.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

func (s *memSubscription) UnbindAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[string][]transport.Handler)
	s.memberAdded = nil
	s.memberRemoved = nil
}

func (s *memSubscription) Trigger(ctx context.Context, event string, payload any) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return transport.ErrSubscriptionClosed
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.t.dispatch(s.channel, event, data, s)
	return nil
}

func (s *memSubscription) Members(ctx context.Context) (map[string]domain.PresenceMember, error) {
	if !transport.IsPresenceChannel(s.channel) {
		return nil, transport.ErrNotPresenceChannel
	}
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	members := make(map[string]domain.PresenceMember)
	for _, sub := range s.t.channels[s.channel] {
		if sub.member != nil {
			members[sub.member.Id] = *sub.member
		}
	}
	return members, nil
}

func (s *memSubscription) BindMemberAdded(h transport.MemberHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberAdded = h
}

func (s *memSubscription) BindMemberRemoved(h transport.MemberHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberRemoved = h
}

func (s *memSubscription) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.t.drop(s)
	if s.member != nil {
		data, _ := json.Marshal(s.member)
		s.t.dispatch(s.channel, events.NameMemberRemoved, data, s)
	}
	return nil
}

func (s *memSubscription) dispatchEvent(event string, data []byte) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	hs := append([]transport.Handler(nil), s.handlers[event]...)
	s.mu.Unlock()
	for _, h := range hs {
		h(data)
	}
}

func (s *memSubscription) dispatchMember(event string, data []byte) {
	var member domain.PresenceMember
	if err := json.Unmarshal(data, &member); err != nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var h transport.MemberHandler
	switch event {
	case events.NameMemberAdded:
		h = s.memberAdded
	case events.NameMemberRemoved:
		h = s.memberRemoved
	}
	s.mu.Unlock()
	if h != nil {
		h(member)
	}
}
