package storage

import (
	"context"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/types"
)

// locationRecord holds the location shared in a room. UserLocation is
// optional; a record without it means no location is set.
type locationRecord struct {
	UserLocation string `json:"userLocation,omitempty"`
}

// Locations stores the location shared for each room.
type Locations struct {
	store assoc.Store
}

// NewLocations creates location storage over store.
func NewLocations(store assoc.Store) *Locations {
	return &Locations{store: store}
}

func locationKey(room types.Room) assoc.Key {
	return assoc.NewKey(assoc.ModelRoom, room.ID+"/"+room.Slug)
}

// UserLocation returns the location set for room. ok is false when there is
// no record or the record has no location.
func (s *Locations) UserLocation(ctx context.Context, room types.Room) (loc string, ok bool, err error) {
	rec, err := assoc.Get[locationRecord](ctx, s.store, locationKey(room))
	if err != nil {
		return "", false, err
	}
	if rec == nil || rec.UserLocation == "" {
		return "", false, nil
	}
	return rec.UserLocation, true, nil
}

// SetUserLocation sets the location for room.
func (s *Locations) SetUserLocation(ctx context.Context, room types.Room, loc string) error {
	return assoc.Put(ctx, s.store, locationKey(room), locationRecord{UserLocation: loc})
}
