// Package storage holds the bot's records in an association store: room
// interactions, room locations, reserved trip names and the trip room
// directory.
package storage

import (
	"context"

	"github.com/codegangsta/triphelper/internal/assoc"
)

// interactionRecord is the last room a user invoked the bot from
type interactionRecord struct {
	RoomID string `json:"roomId"`
}

// Interactions records which room each user last interacted from.
type Interactions struct {
	store assoc.Store
}

// NewInteractions creates interaction storage over store.
func NewInteractions(store assoc.Store) *Interactions {
	return &Interactions{store: store}
}

func interactionKey(userID string) assoc.Key {
	return assoc.NewKey(assoc.ModelUser, userID+"#RoomId")
}

// StoreInteractionRoomID records roomID as the user's most recent room.
func (s *Interactions) StoreInteractionRoomID(ctx context.Context, userID, roomID string) error {
	return assoc.Put(ctx, s.store, interactionKey(userID), interactionRecord{RoomID: roomID})
}

// InteractionRoomID returns the user's most recent room, or "" if the user
// has never invoked the bot.
func (s *Interactions) InteractionRoomID(ctx context.Context, userID string) (string, error) {
	rec, err := assoc.Get[interactionRecord](ctx, s.store, interactionKey(userID))
	if err != nil || rec == nil {
		return "", err
	}
	return rec.RoomID, nil
}
