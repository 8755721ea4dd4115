// Package session is the client-side subscription and dispatch engine:
// it subscribes to an asset's update and presence channels, routes
// incoming events to registered handlers and exposes the outbound
// cursor broadcast.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.uber.org/zap"

	"github.com/jpjaydus/pixelpin/channel"
	"github.com/jpjaydus/pixelpin/domain"
	"github.com/jpjaydus/pixelpin/events"
	"github.com/jpjaydus/pixelpin/identity"
	"github.com/jpjaydus/pixelpin/presence"
	"github.com/jpjaydus/pixelpin/transport"
)

const CName = "realtime.session"

var log = logger.NewNamed(CName)

// Handlers holds the callbacks a session owner registers for inbound
// events. Nil entries are simply not bound. Handlers run on the
// transport's delivery goroutine; owners sharing state with them must
// guard it themselves.
type Handlers struct {
	OnAnnotationCreated func(a domain.Annotation)
	OnAnnotationUpdated func(a domain.Annotation)
	OnAnnotationDeleted func(annotationId string)
	OnReplyCreated      func(r domain.Reply)
	OnCursorMoved       func(c domain.CursorEvent)
	OnMemberJoined      func(m domain.PresenceMember)
	OnMemberLeft        func(m domain.PresenceMember)
}

func New() Service {
	return &service{sessions: make(map[*Session]struct{})}
}

type Service interface {
	app.ComponentRunnable
	NewSession() *Session
}

type service struct {
	transport transport.Transport
	identity  identity.Service

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func (s *service) Init(a *app.App) (err error) {
	s.transport = a.MustComponent(transport.CName).(transport.Transport)
	s.identity = a.MustComponent(identity.CName).(identity.Service)
	return nil
}

func (s *service) Name() (name string) {
	return CName
}

func (s *service) Run(ctx context.Context) (err error) {
	return nil
}

func (s *service) NewSession() *Session {
	sess := &Session{svc: s}
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
	return sess
}

// Close tears down every session still open; the host process calls
// this deterministically via app shutdown.
func (s *service) Close(ctx context.Context) (err error) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	return nil
}

func (s *service) drop(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()
}

type Session struct {
	svc *service

	mu          sync.Mutex
	assetId     string
	account     domain.Author
	update      transport.Subscription
	presenceSub transport.Subscription
	tracker     *presence.Tracker
}

// Open subscribes to both channels of assetId. Re-opening an already
// open session first fully unsubscribes the previous asset, so a
// channel switch leaves no live bindings behind. A subscription failure
// leaves the session closed.
func (s *Session) Open(ctx context.Context, assetId string, h Handlers) (err error) {
	account, err := s.svc.identity.Account()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()

	pair := channel.PairFor(assetId)
	update, err := s.svc.transport.Subscribe(ctx, pair.UpdateChannel, transport.SubscribeOptions{})
	if err != nil {
		return err
	}
	bindUpdateHandlers(update, h)

	member := &domain.PresenceMember{
		Id: account.Id,
		Info: domain.MemberInfo{
			Id:    account.Id,
			Name:  account.Name,
			Email: account.Email,
			Image: account.Image,
		},
	}
	presenceSub, err := s.svc.transport.Subscribe(ctx, pair.PresenceChannel, transport.SubscribeOptions{Member: member})
	if err != nil {
		update.UnbindAll()
		_ = update.Unsubscribe(ctx)
		return err
	}
	tracker := presence.NewTracker(h.OnMemberJoined, h.OnMemberLeft)
	presenceSub.BindMemberAdded(tracker.HandleAdded)
	presenceSub.BindMemberRemoved(tracker.HandleRemoved)
	if members, mErr := presenceSub.Members(ctx); mErr == nil {
		tracker.Seed(members)
	} else {
		log.Warn("presence roster fetch failed", zap.String("assetId", assetId), zap.Error(mErr))
	}

	s.assetId = assetId
	s.account = account
	s.update = update
	s.presenceSub = presenceSub
	s.tracker = tracker
	log.Debug("session opened", zap.String("assetId", assetId))
	return nil
}

func bindUpdateHandlers(sub transport.Subscription, h Handlers) {
	if h.OnAnnotationCreated != nil {
		sub.Bind(events.NameAnnotationCreated, func(data []byte) {
			ev, err := events.Decode(events.NameAnnotationCreated, data)
			if err != nil {
				logDropped(events.NameAnnotationCreated, err)
				return
			}
			h.OnAnnotationCreated(ev.(events.AnnotationCreated).Annotation)
		})
	}
	if h.OnAnnotationUpdated != nil {
		sub.Bind(events.NameAnnotationUpdated, func(data []byte) {
			ev, err := events.Decode(events.NameAnnotationUpdated, data)
			if err != nil {
				logDropped(events.NameAnnotationUpdated, err)
				return
			}
			h.OnAnnotationUpdated(ev.(events.AnnotationUpdated).Annotation)
		})
	}
	if h.OnAnnotationDeleted != nil {
		sub.Bind(events.NameAnnotationDeleted, func(data []byte) {
			ev, err := events.Decode(events.NameAnnotationDeleted, data)
			if err != nil {
				logDropped(events.NameAnnotationDeleted, err)
				return
			}
			h.OnAnnotationDeleted(ev.(events.AnnotationDeleted).Id)
		})
	}
	if h.OnReplyCreated != nil {
		sub.Bind(events.NameReplyCreated, func(data []byte) {
			ev, err := events.Decode(events.NameReplyCreated, data)
			if err != nil {
				logDropped(events.NameReplyCreated, err)
				return
			}
			h.OnReplyCreated(ev.(events.ReplyCreated).Reply)
		})
	}
	if h.OnCursorMoved != nil {
		sub.Bind(events.NameCursorMoved, func(data []byte) {
			ev, err := events.Decode(events.NameCursorMoved, data)
			if err != nil {
				logDropped(events.NameCursorMoved, err)
				return
			}
			h.OnCursorMoved(ev.(events.CursorMoved).CursorEvent)
		})
	}
}

func logDropped(event string, err error) {
	log.Warn("dropping undecodable event", zap.String("event", event), zap.Error(err))
}

// BroadcastCursor emits the acting user's cursor position on the update
// channel. Best-effort telemetry: a closed session is a silent no-op
// and a transport failure is only logged. The broadcasting session
// receives no echo.
func (s *Session) BroadcastCursor(ctx context.Context, x, y float64) {
	s.mu.Lock()
	update := s.update
	account := s.account
	s.mu.Unlock()
	if update == nil || account.Id == "" {
		return
	}
	ev := events.CursorMoved{CursorEvent: domain.CursorEvent{
		UserId:    account.Id,
		UserName:  account.DisplayName(),
		X:         x,
		Y:         y,
		Timestamp: time.Now().UnixMilli(),
	}}
	if err := update.Trigger(ctx, ev.Name(), ev); err != nil {
		log.Debug("cursor broadcast failed", zap.String("assetId", s.AssetId()), zap.Error(err))
	}
}

// Members returns the presence roster; empty when the session is closed
// or the handshake has not finished.
func (s *Session) Members() map[string]domain.PresenceMember {
	s.mu.Lock()
	tracker := s.tracker
	s.mu.Unlock()
	if tracker == nil {
		return map[string]domain.PresenceMember{}
	}
	return tracker.Snapshot()
}

func (s *Session) AssetId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assetId
}

// Close unbinds every handler and unsubscribes from both channels.
// Safe to call on an already closed session.
func (s *Session) Close() {
	s.mu.Lock()
	s.closeLocked()
	s.mu.Unlock()
	s.svc.drop(s)
}

func (s *Session) closeLocked() {
	ctx := context.Background()
	if s.update != nil {
		s.update.UnbindAll()
		_ = s.update.Unsubscribe(ctx)
		s.update = nil
	}
	if s.presenceSub != nil {
		s.presenceSub.UnbindAll()
		_ = s.presenceSub.Unsubscribe(ctx)
		s.presenceSub = nil
	}
	s.tracker = nil
	s.assetId = ""
	s.account = domain.Author{}
}
