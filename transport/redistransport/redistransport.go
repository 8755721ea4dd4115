// Package redistransport carries the realtime channels over redis
// pub/sub. Presence membership lives in a per-channel hash with
// lastSeen stamps; a heartbeat refreshes own entries and reaps peers
// that stopped announcing themselves.
package redistransport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/anyproto/any-sync/util/periodicsync"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/redisprovider"
	"github.com/jpjaydus/pixelpin/transport"
)

var log = logger.NewNamed(transport.CName)

const (
	defaultMemberTTLSec = 60
	defaultHeartbeatSec = 20
)

func New() transport.Transport {
	return &redisTransport{
		subs: make(map[*redisSubscription]struct{}),
	}
}

type envelope struct {
	Event  string          `json:"event"`
	Sender string          `json:"sender,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type memberRecord struct {
	Member   domain.PresenceMember `json:"member"`
	LastSeen int64                 `json:"lastSeen"`
}

type redisTransport struct {
	rdb    *redis.Client
	conf   Config
	ticker periodicsync.PeriodicSync

	mu     sync.Mutex
	subs   map[*redisSubscription]struct{}
	closed bool
}

func (t *redisTransport) Init(a *app.App) (err error) {
	t.rdb = a.MustComponent(redisprovider.CName).(redisprovider.Service).Client()
	t.conf = a.MustComponent("config").(configGetter).GetRealtime()
	if t.conf.MemberTTLSec <= 0 {
		t.conf.MemberTTLSec = defaultMemberTTLSec
	}
	if t.conf.HeartbeatSec <= 0 {
		t.conf.HeartbeatSec = defaultHeartbeatSec
	}
	t.ticker = periodicsync.NewPeriodicSync(t.conf.HeartbeatSec, 0, t.heartbeat, log)
	return nil
}

func (t *redisTransport) Name() (name string) {
	return transport.CName
}

func (t *redisTransport) Run(ctx context.Context) (err error) {
	t.ticker.Run()
	return nil
}

func (t *redisTransport) Subscribe(ctx context.Context, channel string, opts transport.SubscribeOptions) (transport.Subscription, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, transport.ErrTransportClosed
	}
	t.mu.Unlock()
	if transport.IsPresenceChannel(channel) && opts.Member == nil {
		return nil, transport.ErrPresenceMemberEmpty
	}
	ps := t.rdb.Subscribe(ctx, channel)
	// forces the SUBSCRIBE handshake so a failure surfaces here, not in
	// the reader goroutine
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	sub := &redisSubscription{
		t:        t,
		id:       uuid.NewString(),
		channel:  channel,
		member:   opts.Member,
		ps:       ps,
		handlers: make(map[string][]transport.Handler),
	}
	if sub.member != nil {
		if err := t.announceMember(ctx, sub, events.NameMemberAdded); err != nil {
			_ = ps.Close()
			return nil, err
		}
	}
	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()
	go sub.readLoop()
	return sub, nil
}

func (t *redisTransport) Publish(ctx context.Context, channel, event string, payload any) error {
	return t.publish(ctx, channel, event, "", payload)
}

func (t *redisTransport) publish(ctx context.Context, channel, event, sender string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Event: event, Sender: sender, Data: data})
	if err != nil {
		return err
	}
	return t.rdb.Publish(ctx, channel, raw).Err()
}

func presenceKey(channel string) string {
	return "presence:" + channel
}

func (t *redisTransport) announceMember(ctx context.Context, sub *redisSubscription, event string) error {
	rec, err := json.Marshal(memberRecord{Member: *sub.member, LastSeen: time.Now().Unix()})
	if err != nil {
		return err
	}
	if event == events.NameMemberAdded {
		if err = t.rdb.HSet(ctx, presenceKey(sub.channel), sub.member.Id, rec).Err(); err != nil {
			return err
		}
	} else {
		if err = t.rdb.HDel(ctx, presenceKey(sub.channel), sub.member.Id).Err(); err != nil {
			return err
		}
	}
	return t.publish(ctx, sub.channel, event, sub.id, sub.member)
}

// heartbeat refreshes own presence entries and reaps peers whose
// lastSeen fell behind 2x the member TTL.
func (t *redisTransport) heartbeat(ctx context.Context) error {
	t.mu.Lock()
	subs := make([]*redisSubscription, 0, len(t.subs))
	for sub := range t.subs {
		if sub.member != nil {
			subs = append(subs, sub)
		}
	}
	t.mu.Unlock()
	now := time.Now().Unix()
	channels := make(map[string]struct{})
	for _, sub := range subs {
		channels[sub.channel] = struct{}{}
		rec, err := json.Marshal(memberRecord{Member: *sub.member, LastSeen: now})
		if err != nil {
			continue
		}
		if err = t.rdb.HSet(ctx, presenceKey(sub.channel), sub.member.Id, rec).Err(); err != nil {
			log.Warn("presence heartbeat failed", zap.String("channel", sub.channel), zap.Error(err))
		}
	}
	for channel := range channels {
		t.reapStale(ctx, channel, now)
	}
	return nil
}

func (t *redisTransport) reapStale(ctx context.Context, channel string, now int64) {
	entries, err := t.rdb.HGetAll(ctx, presenceKey(channel)).Result()
	if err != nil {
		return
	}
	deadline := now - 2*int64(t.conf.MemberTTLSec)
	for id, raw := range entries {
		var rec memberRecord
		if err = json.Unmarshal([]byte(raw), &rec); err != nil || rec.LastSeen < deadline {
			if err = t.rdb.HDel(ctx, presenceKey(channel), id).Err(); err != nil {
				continue
			}
			log.Info("reaped stale presence member", zap.String("channel", channel), zap.String("member", id))
			_ = t.publish(ctx, channel, events.NameMemberRemoved, "", rec.Member)
		}
	}
}

func (t *redisTransport) drop(sub *redisSubscription) {
	t.mu.Lock()
	delete(t.subs, sub)
	t.mu.Unlock()
}

func (t *redisTransport) Close(ctx context.Context) (err error) {
	t.mu.Lock()
	t.closed = true
	subs := make([]*redisSubscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.mu.Unlock()
	t.ticker.Close()
	for _, sub := range subs {
		_ = sub.Unsubscribe(ctx)
	}
	return nil
}

type redisSubscription struct {
	t       *redisTransport
	id      string
	channel string
	member  *domain.PresenceMember
	ps      *redis.PubSub

	mu            sync.Mutex
	closed        bool
	handlers      map[string][]transport.Handler
	memberAdded   transport.MemberHandler
	memberRemoved transport.MemberHandler
}

func (s *redisSubscription) Channel() string {
	return s.channel
}

func (s *redisSubscription) readLoop() {
	for msg := range s.ps.Channel() {
		s.handleMessage([]byte(msg.Payload))
	}
}

func (s *redisSubscription) handleMessage(raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn("dropping malformed envelope", zap.String("channel", s.channel), zap.Error(err))
		return
	}
	if env.Sender != "" && env.Sender == s.id {
		return
	}
	switch env.Event {
	case events.NameMemberAdded, events.NameMemberRemoved:
		var member domain.PresenceMember
		if err := json.Unmarshal(env.Data, &member); err != nil {
			return
		}
		s.mu.Lock()
		h := s.memberAdded
		if env.Event == events.NameMemberRemoved {
			h = s.memberRemoved
		}
		closed := s.closed
		s.mu.Unlock()
		if h != nil && !closed {
			h(member)
		}
	default:
		s.mu.Lock()
		hs := append([]transport.Handler(nil), s.handlers[env.Event]...)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		for _, h := range hs {
			h(env.Data)
		}
	}
}

func (s *redisSubscription) Bind(event string, h transport.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

func (s *redisSubscription) UnbindAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = make(map[string][]transport.Handler)
	s.memberAdded = nil
	s.memberRemoved = nil
}

func (s *redisSubscription) Trigger(ctx context.Context, event string, payload any) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return transport.ErrSubscriptionClosed
	}
	return s.t.publish(ctx, s.channel, event, s.id, payload)
}

func (s *redisSubscription) Members(ctx context.Context) (map[string]domain.PresenceMember, error) {
	if !transport.IsPresenceChannel(s.channel) {
		return nil, transport.ErrNotPresenceChannel
	}
	entries, err := s.t.rdb.HGetAll(ctx, presenceKey(s.channel)).Result()
	if err != nil {
		return nil, err
	}
	deadline := time.Now().Unix() - 2*int64(s.t.conf.MemberTTLSec)
	members := make(map[string]domain.PresenceMember)
	for id, raw := range entries {
		var rec memberRecord
		if err = json.Unmarshal([]byte(raw), &rec); err != nil || rec.LastSeen < deadline {
			continue
		}
		members[id] = rec.Member
	}
	return members, nil
}

func (s *redisSubscription) BindMemberAdded(h transport.MemberHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberAdded = h
}

func (s *redisSubscription) BindMemberRemoved(h transport.MemberHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberRemoved = h
}

func (s *redisSubscription) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.t.drop(s)
	if s.member != nil {
		if err := s.t.announceMember(ctx, s, events.NameMemberRemoved); err != nil {
			log.Warn("presence leave announce failed", zap.String("channel", s.channel), zap.Error(err))
		}
	}
	return s.ps.Close()
}
