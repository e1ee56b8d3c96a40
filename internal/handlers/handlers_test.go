package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/storage"
	"github.com/codegangsta/triphelper/internal/types"
)

type sent struct {
	msgs []types.Message
	err  error
}

func (s *sent) Notify(ctx context.Context, msg types.Message) error {
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *sent) last(t *testing.T) types.Message {
	t.Helper()
	if len(s.msgs) == 0 {
		t.Fatal("nothing was sent")
	}
	return s.msgs[len(s.msgs)-1]
}

type fixture struct {
	store *assoc.Memory
	out   *sent
	b     *Builder
	call  *commands.Call
}

func newFixture() *fixture {
	store := assoc.NewMemory()
	out := new(sent)
	return &fixture{
		store: store,
		out:   out,
		b: &Builder{
			Rooms:     storage.NewRooms(store),
			Reminders: storage.NewReminders(store),
			Locations: storage.NewLocations(store),
			Notifier:  out,
		},
		call: &commands.Call{
			Args:     []string{"help"},
			Sender:   types.User{ID: "7", Username: "nijika"},
			Room:     types.Room{ID: "-100", Name: "Band", Slug: "band"},
			ThreadID: "3",
		},
	}
}

func TestHelp(t *testing.T) {
	f := newFixture()
	if err := f.b.For(f.call).Help(context.Background()); err != nil {
		t.Fatal(err)
	}
	msg := f.out.last(t)
	for _, k := range commands.Kinds() {
		if !strings.Contains(msg.Text, k.Usage()) {
			t.Errorf("help does not mention %q", k.Usage())
		}
	}
	if msg.ThreadID != "3" || msg.Room.ID != "-100" {
		t.Errorf("help sent to the wrong place: %+v", msg)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.b.For(f.call)
	if err := h.Create(ctx, "tokyo"); err != nil {
		t.Fatal(err)
	}
	room, err := f.b.Rooms.GetByName(ctx, "askTrip-tokyo")
	if err != nil {
		t.Fatal(err)
	}
	if room == nil {
		t.Fatal("room was not created")
	}
	if room.Slug != "asktrip-tokyo" {
		t.Errorf("wrong slug: %q", room.Slug)
	}
	if err := h.Create(ctx, "tokyo"); !errors.Is(err, storage.ErrRoomExists) {
		t.Errorf("second create: want ErrRoomExists, got %v", err)
	}
	if len(f.out.msgs) != 0 {
		t.Errorf("create sent messages: %v", f.out.msgs)
	}
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.b.For(f.call)
	if err := h.Info(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.out.last(t).Text; !strings.Contains(got, "No location is set") {
		t.Errorf("info without location: %q", got)
	}
	locs := storage.NewLocations(f.store)
	if err := locs.SetUserLocation(ctx, f.call.Room, "35.68,139.69"); err != nil {
		t.Fatal(err)
	}
	if err := h.Info(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.out.last(t).Text; !strings.Contains(got, "35.68,139.69") {
		t.Errorf("info with location: %q", got)
	}
}

func TestReminder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.b.For(f.call)
	want := []string{"**on**", "**off**", "**on**"}
	for i, w := range want {
		if err := h.Reminder(ctx); err != nil {
			t.Fatal(err)
		}
		if got := f.out.last(t).Text; !strings.Contains(got, w) {
			t.Errorf("toggle %d: want %s in %q", i, w, got)
		}
	}
	r, err := f.b.Reminders.Get(ctx, "7")
	if err != nil {
		t.Fatal(err)
	}
	if r == nil || !r.Enabled || r.RoomID != "-100" {
		t.Errorf("wrong stored reminder: %+v", r)
	}
}

func TestDefaultNotification(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.b.For(f.call)
	if err := h.DefaultNotification(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.out.last(t).Text; !strings.Contains(got, "/trip location") {
		t.Errorf("greeting without location: %q", got)
	}
	if err := storage.NewLocations(f.store).SetUserLocation(ctx, f.call.Room, "Lisbon"); err != nil {
		t.Fatal(err)
	}
	if err := h.DefaultNotification(ctx); err != nil {
		t.Fatal(err)
	}
	if got := f.out.last(t).Text; !strings.Contains(got, "Lisbon") {
		t.Errorf("greeting with location: %q", got)
	}
}

func TestNotifyError(t *testing.T) {
	f := newFixture()
	f.out.err = errors.New("chat not found")
	if err := f.b.For(f.call).Help(context.Background()); err == nil {
		t.Error("notify failure was swallowed")
	}
}
