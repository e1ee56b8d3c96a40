package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestInteractions(t *testing.T) {
	ctx := context.Background()
	s := NewInteractions(assoc.NewMemory())
	got, err := s.InteractionRoomID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("fresh user has room %q", got)
	}
	for _, room := range []string{"r1", "r2"} {
		if err := s.StoreInteractionRoomID(ctx, "u1", room); err != nil {
			t.Fatal(err)
		}
	}
	got, err = s.InteractionRoomID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "r2" {
		t.Errorf("wrong room: want r2, got %q", got)
	}
}

func TestLocations(t *testing.T) {
	ctx := context.Background()
	store := assoc.NewMemory()
	s := NewLocations(store)
	room := types.Room{ID: "r1", Name: "General", Slug: "general"}

	_, ok, err := s.UserLocation(ctx, room)
	if err != nil || ok {
		t.Fatalf("absent record: ok=%v err=%v", ok, err)
	}

	// A record without the field is the same as no record.
	if err := store.Write(ctx, assoc.NewKey(assoc.ModelRoom, "r1/general"), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	_, ok, err = s.UserLocation(ctx, room)
	if err != nil || ok {
		t.Fatalf("empty record: ok=%v err=%v", ok, err)
	}

	if err := s.SetUserLocation(ctx, room, "Paris"); err != nil {
		t.Fatal(err)
	}
	loc, ok, err := s.UserLocation(ctx, room)
	if err != nil || !ok || loc != "Paris" {
		t.Errorf("wrong location: got %q ok=%v err=%v", loc, ok, err)
	}

	// The slug is part of the key.
	other := room
	other.Slug = "renamed"
	_, ok, err = s.UserLocation(ctx, other)
	if err != nil || ok {
		t.Errorf("location leaked across slugs: ok=%v err=%v", ok, err)
	}
}

func TestStoreRoomName(t *testing.T) {
	cases := []struct {
		name   string
		names  []string
		wantOK []bool
	}{
		{name: "fresh", names: []string{"tokyo"}, wantOK: []bool{true}},
		{name: "taken", names: []string{"paris", "paris"}, wantOK: []bool{true, false}},
		{name: "distinct", names: []string{"rome", "oslo"}, wantOK: []bool{true, true}},
		{name: "empty", names: []string{""}, wantOK: []bool{false}},
		{name: "spaces", names: []string{"new york"}, wantOK: []bool{false}},
		{name: "punctuation", names: []string{"trip-2025.v2_final"}, wantOK: []bool{true}},
		{name: "leading-dash", names: []string{"-x"}, wantOK: []bool{false}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewRoomNames(assoc.NewMemory(), discard)
			room := types.Room{ID: "r1", Slug: "general"}
			user := types.User{ID: "u1"}
			var got []bool
			for _, n := range c.names {
				ok, err := s.StoreRoomName(ctx, room, user, n)
				if err != nil {
					t.Fatalf("StoreRoomName(%q): %v", n, err)
				}
				got = append(got, ok)
			}
			if diff := cmp.Diff(c.wantOK, got); diff != "" {
				t.Errorf("wrong results (+got/-want):\n%s", diff)
			}
		})
	}
}

func TestRoomNameOwner(t *testing.T) {
	ctx := context.Background()
	s := NewRoomNames(assoc.NewMemory(), discard)
	if _, err := s.StoreRoomName(ctx, types.Room{ID: "r1"}, types.User{ID: "alice"}, "lima"); err != nil {
		t.Fatal(err)
	}
	owner, err := s.Owner(ctx, "lima")
	if err != nil || owner != "alice" {
		t.Errorf("wrong owner: got %q err=%v", owner, err)
	}
	owner, err = s.Owner(ctx, "quito")
	if err != nil || owner != "" {
		t.Errorf("free name has owner %q err=%v", owner, err)
	}
}

func TestRooms(t *testing.T) {
	ctx := context.Background()
	d := NewRooms(assoc.NewMemory())
	d.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	got, err := d.GetByName(ctx, "askTrip-paris")
	if err != nil || got != nil {
		t.Fatalf("empty directory: got %v err=%v", got, err)
	}
	created, err := d.Create(ctx, "askTrip-paris", types.User{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Error("created room has no id")
	}
	if created.Slug != "asktrip-paris" {
		t.Errorf("wrong slug: got %q", created.Slug)
	}
	got, err = d.GetByName(ctx, "askTrip-paris")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("looked up room differs (+got/-want):\n%s", diff)
	}
	if _, err := d.Create(ctx, "askTrip-paris", types.User{ID: "u2"}); !errors.Is(err, ErrRoomExists) {
		t.Errorf("second create: want %v, got %v", ErrRoomExists, err)
	}
}

func TestReminders(t *testing.T) {
	ctx := context.Background()
	s := NewReminders(assoc.NewMemory())
	user := types.User{ID: "u1"}
	r1 := types.Room{ID: "r1"}
	r2 := types.Room{ID: "r2"}

	steps := []struct {
		room types.Room
		want bool
	}{
		{r1, true},
		{r1, false},
		{r1, true},
		{r2, true}, // moving rooms keeps reminders on
		{r2, false},
	}
	for i, st := range steps {
		rem, err := s.Toggle(ctx, user, st.room)
		if err != nil {
			t.Fatal(err)
		}
		if rem.Enabled != st.want || rem.RoomID != st.room.ID {
			t.Errorf("step %d: got %+v, want enabled=%v in %s", i, rem, st.want, st.room.ID)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"General":             "general",
		"Café Rómà":           "cafe-roma",
		"  trip -- planning ": "trip-planning",
		"askTrip-paris":       "asktrip-paris",
		"東京":                  "",
		"":                    "",
		"Zürich 2025!":        "zurich-2025",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
