// Package connmanager owns the lifecycle of named connections and the
// bounded exponential backoff used to rebuild them. The manager never
// retries on its own: each Reconnect call is a single attempt gated by
// the stored counter, so retry cadence stays observable as discrete
// calls.
package connmanager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
)

const CName = "realtime.connmanager"

var log = logger.NewNamed(CName)

const (
	// maxReconnectAttempts is the retry ceiling; reaching it is fatal
	// for the connection id and must surface to the user.
	maxReconnectAttempts = 5
	defaultBaseDelay     = time.Second
)

var ErrAttemptsExceeded = errors.New("reconnect attempts exceeded")

// DisconnectFunc tears a live connection down.
type DisconnectFunc func()

// CreateFunc builds a fresh connection and returns its disconnect
// callback.
type CreateFunc func(ctx context.Context) (DisconnectFunc, error)

type Option func(m *connManager)

// WithClock replaces the wall clock; used by tests for deterministic
// backoff timing.
func WithClock(clock clockz.Clock) Option {
	return func(m *connManager) {
		m.clock = clock
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(m *connManager) {
		m.baseDelay = d
	}
}

func New(opts ...Option) Manager {
	m := &connManager{
		conns:     make(map[string]*connection),
		clock:     clockz.RealClock,
		baseDelay: defaultBaseDelay,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

type Manager interface {
	app.ComponentRunnable
	// AddConnection registers disconnect as the live connection for id
	// and resets its attempt counter.
	AddConnection(id string, disconnect DisconnectFunc)
	// RemoveConnection disconnects and discards the record for id.
	RemoveConnection(id string)
	// Reconnect waits baseDelay << attempts, then makes exactly one
	// connection attempt. ErrAttemptsExceeded is returned immediately,
	// without invoking create, once the ceiling is reached.
	Reconnect(ctx context.Context, id string, create CreateFunc) error
	// Cleanup disconnects every registered connection.
	Cleanup()
}

type connection struct {
	disconnect DisconnectFunc
	attempts   int
}

type connManager struct {
	mu        sync.Mutex
	conns     map[string]*connection
	clock     clockz.Clock
	baseDelay time.Duration
}

func (m *connManager) Init(a *app.App) (err error) {
	return nil
}

func (m *connManager) Name() (name string) {
	return CName
}

func (m *connManager) Run(ctx context.Context) (err error) {
	return nil
}

func (m *connManager) AddConnection(id string, disconnect DisconnectFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[id] = &connection{disconnect: disconnect}
}

func (m *connManager) RemoveConnection(id string) {
	m.mu.Lock()
	conn, ok := m.conns[id]
	delete(m.conns, id)
	m.mu.Unlock()
	if ok && conn.disconnect != nil {
		conn.disconnect()
	}
}

func (m *connManager) Reconnect(ctx context.Context, id string, create CreateFunc) error {
	m.mu.Lock()
	conn, ok := m.conns[id]
	if !ok {
		conn = &connection{}
		m.conns[id] = conn
	}
	attempts := conn.attempts
	m.mu.Unlock()

	if attempts >= maxReconnectAttempts {
		log.Warn("reconnect attempts exhausted", zap.String("id", id))
		return ErrAttemptsExceeded
	}

	delay := m.baseDelay << attempts
	select {
	case <-m.clock.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	disconnect, err := create(ctx)
	if err != nil {
		m.mu.Lock()
		if cur, ok := m.conns[id]; ok {
			cur.attempts++
		}
		m.mu.Unlock()
		log.Info("reconnect attempt failed",
			zap.String("id", id),
			zap.Int("attempt", attempts+1),
			zap.Duration("waited", delay),
			zap.Error(err))
		return err
	}
	m.AddConnection(id, disconnect)
	log.Info("reconnected", zap.String("id", id), zap.Int("attempt", attempts+1))
	return nil
}

func (m *connManager) Cleanup() {
	m.mu.Lock()
	conns := make([]*connection, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.conns = make(map[string]*connection)
	m.mu.Unlock()
	for _, conn := range conns {
		if conn.disconnect != nil {
			conn.disconnect()
		}
	}
}

func (m *connManager) Close(ctx context.Context) (err error) {
	m.Cleanup()
	return nil
}
