package storage

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/types"
)

// validRoomName matches names that make a usable trip channel name. Names
// arrive lower-cased from the command resolver.
var validRoomName = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// reservation records who asked for a trip name and from where
type reservation struct {
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	OriginRoom string    `json:"originRoom"`
	ReservedAt time.Time `json:"reservedAt"`
}

// RoomNames reserves trip channel names.
type RoomNames struct {
	store assoc.Store
	log   *slog.Logger
	now   func() time.Time
}

// NewRoomNames creates name reservation storage over store.
func NewRoomNames(store assoc.Store, log *slog.Logger) *RoomNames {
	return &RoomNames{store: store, log: log, now: time.Now}
}

func roomNameKey(name string) assoc.Key {
	return assoc.NewKey(assoc.ModelMisc, "roomName/"+name)
}

// StoreRoomName reserves name for sender. It returns false without error when
// the name is not a valid trip name or another invocation already holds it.
func (s *RoomNames) StoreRoomName(ctx context.Context, room types.Room, sender types.User, name string) (bool, error) {
	if !validRoomName.MatchString(name) {
		s.log.InfoContext(ctx, "rejected trip name", slog.String("name", name), slog.String("user", sender.ID))
		return false, nil
	}
	r := reservation{
		Name:       name,
		Owner:      sender.ID,
		OriginRoom: room.ID,
		ReservedAt: s.now().UTC(),
	}
	ok, err := assoc.Reserve(ctx, s.store, roomNameKey(name), r)
	if err != nil {
		return false, err
	}
	if !ok {
		s.log.InfoContext(ctx, "trip name already reserved", slog.String("name", name), slog.String("user", sender.ID))
	}
	return ok, nil
}

// Owner returns the user who reserved name, or "" if it is free.
func (s *RoomNames) Owner(ctx context.Context, name string) (string, error) {
	r, err := assoc.Get[reservation](ctx, s.store, roomNameKey(name))
	if err != nil || r == nil {
		return "", err
	}
	return r.Owner, nil
}
