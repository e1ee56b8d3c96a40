package storage

import (
	"context"
	"time"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/types"
)

// Reminder is a user's trip reminder subscription.
type Reminder struct {
	RoomID  string    `json:"roomId"`
	Enabled bool      `json:"enabled"`
	Since   time.Time `json:"since"`
}

// Reminders stores per-user reminder subscriptions.
type Reminders struct {
	store assoc.Store
	now   func() time.Time
}

// NewReminders creates reminder storage over store.
func NewReminders(store assoc.Store) *Reminders {
	return &Reminders{store: store, now: time.Now}
}

func reminderKey(userID string) assoc.Key {
	return assoc.NewKey(assoc.ModelUser, userID+"#Reminder")
}

// Get returns the user's subscription, or nil if there has never been one.
func (s *Reminders) Get(ctx context.Context, userID string) (*Reminder, error) {
	return assoc.Get[Reminder](ctx, s.store, reminderKey(userID))
}

// Toggle flips the user's subscription for room and returns the new state.
// Switching to a different room keeps reminders on and moves them there.
func (s *Reminders) Toggle(ctx context.Context, user types.User, room types.Room) (*Reminder, error) {
	cur, err := s.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	next := Reminder{RoomID: room.ID, Enabled: true, Since: s.now().UTC()}
	if cur != nil && cur.Enabled && cur.RoomID == room.ID {
		next.Enabled = false
	}
	if err := assoc.Put(ctx, s.store, reminderKey(user.ID), next); err != nil {
		return nil, err
	}
	return &next, nil
}
