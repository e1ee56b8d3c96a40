package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/types"
)

// ErrRoomExists is returned by Create when the name is taken.
var ErrRoomExists = errors.New("room already exists")

// roomRecord is a trip room in the directory
type roomRecord struct {
	types.Room `json:",inline"`
	Owner      string    `json:"owner"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Rooms is the directory of trip rooms, looked up by name.
type Rooms struct {
	store assoc.Store
	now   func() time.Time
}

// NewRooms creates the room directory over store.
func NewRooms(store assoc.Store) *Rooms {
	return &Rooms{store: store, now: time.Now}
}

func roomKey(name string) assoc.Key {
	return assoc.NewKey(assoc.ModelRoom, "name/"+name)
}

// GetByName returns the room with the exact name, or nil if there is none.
func (d *Rooms) GetByName(ctx context.Context, name string) (*types.Room, error) {
	rec, err := assoc.Get[roomRecord](ctx, d.store, roomKey(name))
	if err != nil || rec == nil {
		return nil, err
	}
	return &rec.Room, nil
}

// Create adds a room called name owned by owner.
func (d *Rooms) Create(ctx context.Context, name string, owner types.User) (*types.Room, error) {
	rec := roomRecord{
		Room: types.Room{
			ID:   uuid.NewString(),
			Name: name,
			Slug: Slugify(name),
		},
		Owner:     owner.ID,
		CreatedAt: d.now().UTC(),
	}
	ok, err := assoc.Reserve(ctx, d.store, roomKey(name), rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRoomExists
	}
	return &rec.Room, nil
}
