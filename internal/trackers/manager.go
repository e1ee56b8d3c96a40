// Package trackers provides unified management for chat-scoped state
package trackers

import (
	"sync"
	"time"

	"github.com/codegangsta/triphelper/internal/types"
)

// PendingLocation is a location request waiting for the user to share one
type PendingLocation struct {
	Room      types.Room
	UserID    int64
	MessageID int64 // the prompt message carrying the keyboard
	ThreadID  int64
	Asked     time.Time
}

// ChatTrackers holds all tracked state for a single chat
type ChatTrackers struct {
	Location *PendingLocation
}

// Manager manages tracked state for all chats
type Manager struct {
	chats map[int64]*ChatTrackers
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
}

// NewManager creates a new tracker manager. Pending prompts older than ttl
// are treated as gone; a zero ttl keeps them until cleared.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		chats: make(map[int64]*ChatTrackers),
		ttl:   ttl,
		now:   time.Now,
	}
}

// getOrCreate gets or creates the ChatTrackers for a chat (must hold write lock)
func (m *Manager) getOrCreate(chatID int64) *ChatTrackers {
	if ct, ok := m.chats[chatID]; ok {
		return ct
	}
	ct := &ChatTrackers{}
	m.chats[chatID] = ct
	return ct
}

// SetLocation records a pending location prompt for a chat, replacing any
// earlier one
func (m *Manager) SetLocation(chatID int64, p *PendingLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Asked.IsZero() {
		p.Asked = m.now()
	}
	m.getOrCreate(chatID).Location = p
}

// GetLocation gets the pending location prompt for a chat (nil if none or
// expired)
func (m *Manager) GetLocation(chatID int64) *PendingLocation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ct, ok := m.chats[chatID]
	if !ok || ct.Location == nil {
		return nil
	}
	if m.ttl > 0 && m.now().Sub(ct.Location.Asked) > m.ttl {
		return nil
	}
	return ct.Location
}

// ClearLocation clears the pending location prompt for a chat
func (m *Manager) ClearLocation(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ct, ok := m.chats[chatID]; ok {
		ct.Location = nil
	}
}

// ClearAll drops all tracked state for a chat
func (m *Manager) ClearAll(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chats, chatID)
}
