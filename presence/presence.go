// Package presence maintains the live membership roster of a presence
// channel and raises join/leave notifications.
package presence

import (
	"sync"

	"github.com/jpjaydus/pixelpin/domain"
)

type MemberCallback func(member domain.PresenceMember)

func NewTracker(onJoin, onLeave MemberCallback) *Tracker {
	return &Tracker{
		members: make(map[string]domain.PresenceMember),
		onJoin:  onJoin,
		onLeave: onLeave,
	}
}

type Tracker struct {
	mu      sync.RWMutex
	members map[string]domain.PresenceMember
	onJoin  MemberCallback
	onLeave MemberCallback
}

// Seed primes the roster from the subscription handshake without
// raising join notifications.
func (t *Tracker) Seed(members map[string]domain.PresenceMember) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, m := range members {
		t.members[id] = m
	}
}

func (t *Tracker) HandleAdded(member domain.PresenceMember) {
	t.mu.Lock()
	_, known := t.members[member.Id]
	t.members[member.Id] = member
	t.mu.Unlock()
	// a re-announce for a known id refreshes the entry without a
	// second join notification
	if !known && t.onJoin != nil {
		t.onJoin(member)
	}
}

func (t *Tracker) HandleRemoved(member domain.PresenceMember) {
	t.mu.Lock()
	_, known := t.members[member.Id]
	if known {
		delete(t.members, member.Id)
	}
	t.mu.Unlock()
	// duplicate leave signals from the transport are a no-op
	if known && t.onLeave != nil {
		t.onLeave(member)
	}
}

// Snapshot returns the roster as known at call time; empty before the
// subscription handshake finished.
func (t *Tracker) Snapshot() map[string]domain.PresenceMember {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]domain.PresenceMember, len(t.members))
	for id, m := range t.members {
		out[id] = m
	}
	return out
}
