package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/storage"
	"github.com/codegangsta/triphelper/internal/types"
)

type sentMessage struct {
	chatID int64
	text   string
	opts   gotgbot.SendMessageOpts
}

// fakeAPI records sent messages. Errors in errs are returned by successive
// calls before any succeed.
type fakeAPI struct {
	sent []sentMessage
	errs []error
}

func (f *fakeAPI) SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	f.sent = append(f.sent, sentMessage{chatID: chatId, text: text, opts: *opts})
	return &gotgbot.Message{MessageId: int64(100 + len(f.sent))}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotify(t *testing.T) {
	api := new(fakeAPI)
	b := newBot(api, nil, nil, discard())
	msg := types.Message{
		Room:     types.Room{ID: "-1001"},
		ThreadID: "7",
		Text:     "Trip channel with name 'x' already exists. Enjoy app's features there!🚀",
	}
	if err := b.Notifier().Notify(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("want 1 message, got %d", len(api.sent))
	}
	got := api.sent[0]
	if got.chatID != -1001 || got.opts.MessageThreadId != 7 || got.opts.ParseMode != "MarkdownV2" {
		t.Errorf("wrong send: %+v", got)
	}
	if want := "Trip channel with name 'x' already exists\\. Enjoy app's features there\\!🚀"; got.text != want {
		t.Errorf("wrong text:\nwant %q\ngot  %q", want, got.text)
	}
	if got.opts.ReplyMarkup != nil {
		t.Error("plain notification carried a keyboard")
	}
}

func TestNotifyPlainFallback(t *testing.T) {
	api := &fakeAPI{errs: []error{errors.New("Bad Request: can't parse entities: unexpected end")}}
	n := NewNotifier(api, nil, nil, discard())
	msg := types.Message{Room: types.Room{ID: "42"}, Text: "**odd** text."}
	if err := n.Notify(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("want 1 message, got %d", len(api.sent))
	}
	if got := api.sent[0]; got.text != msg.Text || got.opts.ParseMode != "" {
		t.Errorf("fallback not plain: %+v", got)
	}
}

func TestNotifyErrors(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{errs: []error{errors.New("Forbidden: bot was blocked by the user")}}
	n := NewNotifier(api, nil, nil, discard())
	if err := n.Notify(ctx, types.Message{Room: types.Room{ID: "42"}, Text: "hi"}); err == nil {
		t.Error("send error was swallowed")
	}
	if err := n.Notify(ctx, types.Message{Room: types.Room{ID: "general"}, Text: "hi"}); err == nil {
		t.Error("non-numeric chat id accepted")
	}
	if len(api.sent) != 0 {
		t.Errorf("sent %d messages", len(api.sent))
	}
}

func TestRequestLocation(t *testing.T) {
	ctx := context.Background()
	api := new(fakeAPI)
	b := newBot(api, nil, nil, discard())
	room := types.Room{ID: "55", Name: "hitori", Slug: "hitori"}
	msg := types.Message{Room: room, Sender: types.User{ID: "55"}, Text: "Share your Location with us"}
	if err := b.Notifier().RequestLocation(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if _, ok := api.sent[0].opts.ReplyMarkup.(gotgbot.ReplyKeyboardMarkup); !ok {
		t.Errorf("private prompt has no location keyboard: %#v", api.sent[0].opts.ReplyMarkup)
	}
	p := b.prompts.GetLocation(55)
	if p == nil || p.UserID != 55 || p.MessageID != 101 || p.Room != room {
		t.Errorf("wrong pending prompt: %+v", p)
	}

	group := types.Message{Room: types.Room{ID: "-100"}, Sender: types.User{ID: "55"}, Text: "Share"}
	if err := b.Notifier().RequestLocation(ctx, group); err != nil {
		t.Fatal(err)
	}
	if api.sent[1].opts.ReplyMarkup != nil {
		t.Error("group prompt has a keyboard")
	}
	if b.prompts.GetLocation(-100) == nil {
		t.Error("group prompt not tracked")
	}
}

func TestLocationKeyboard(t *testing.T) {
	kb := LocationKeyboard()
	if len(kb.Keyboard) != 1 || len(kb.Keyboard[0]) != 1 {
		t.Fatalf("want a single button, got %+v", kb.Keyboard)
	}
	if btn := kb.Keyboard[0][0]; !btn.RequestLocation || btn.Text != ShareLocationLabel {
		t.Errorf("wrong button: %+v", btn)
	}
	if !kb.OneTimeKeyboard {
		t.Error("keyboard should hide after use")
	}
}

func TestCallFromMessage(t *testing.T) {
	msg := &gotgbot.Message{
		MessageId:       9,
		MessageThreadId: 4,
		IsTopicMessage:  true,
		From:            &gotgbot.User{Id: 11, Username: "kita"},
		Chat:            gotgbot.Chat{Id: -100200, Type: "supergroup", Title: "Kessoku Band Tour"},
	}
	got := callFromMessage(msg, []string{"create", "tokyo"})
	want := &commands.Call{
		Args:      []string{"create", "tokyo"},
		Sender:    types.User{ID: "11", Username: "kita"},
		Room:      types.Room{ID: "-100200", Name: "Kessoku Band Tour", Slug: "kessoku-band-tour"},
		TriggerID: "9",
		ThreadID:  "4",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wrong call (-want +got):\n%s", diff)
	}

	// Replies in ordinary groups carry a thread id that is not a topic.
	msg.IsTopicMessage = false
	if got := callFromMessage(msg, nil); got.ThreadID != "" {
		t.Errorf("non-topic thread id %q", got.ThreadID)
	}
}

func TestRoomFromPrivateChat(t *testing.T) {
	got := roomFromChat(gotgbot.Chat{Id: 11, Type: "private", Username: "Kita_Ikuyo", FirstName: "Ikuyo"})
	want := types.Room{ID: "11", Name: "Kita_Ikuyo", Slug: "kita-ikuyo"}
	if got != want {
		t.Errorf("want %+v, got %+v", want, got)
	}
}

func TestTrip(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		from     int64
		err      error
		wantArgs []string
		wantSent int
	}{
		{name: "command", text: "/trip create Tokyo", from: 1, wantArgs: []string{"create", "Tokyo"}},
		{name: "bare", text: "/trip", from: 1, wantArgs: []string{"help"}},
		{name: "mention", text: "/trip@TripHelperBot info", from: 1, wantArgs: []string{"info"}},
		{name: "not-allowed", text: "/trip help", from: 2},
		{name: "failure", text: "/trip help", from: 1, err: errors.New("store down"), wantArgs: []string{"help"}, wantSent: 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			api := new(fakeAPI)
			b := newBot(api, []int64{1}, nil, discard())
			var got []string
			b.SetHandler(func(ctx context.Context, call *commands.Call) error {
				got = call.Args
				return c.err
			})
			msg := &gotgbot.Message{
				MessageId: 3,
				Text:      c.text,
				From:      &gotgbot.User{Id: c.from},
				Chat:      gotgbot.Chat{Id: 1, Type: "private", FirstName: "Bocchi"},
			}
			b.trip(context.Background(), msg)
			if diff := cmp.Diff(c.wantArgs, got); diff != "" {
				t.Errorf("wrong args (-want +got):\n%s", diff)
			}
			if len(api.sent) != c.wantSent {
				t.Fatalf("want %d messages, got %d", c.wantSent, len(api.sent))
			}
			if c.wantSent > 0 && api.sent[0].text != escapeMarkdownV2(apologyText) {
				t.Errorf("wrong apology: %q", api.sent[0].text)
			}
		})
	}
}

func TestSaveLocation(t *testing.T) {
	ctx := context.Background()
	api := new(fakeAPI)
	locs := storage.NewLocations(assoc.NewMemory())
	b := newBot(api, []int64{1, 2}, nil, discard())
	b.SetLocations(locs)
	room := types.Room{ID: "-5", Name: "Band", Slug: "band"}

	share := func(from int64) *gotgbot.Message {
		return &gotgbot.Message{
			From:     &gotgbot.User{Id: from},
			Chat:     gotgbot.Chat{Id: -5, Type: "group", Title: "Band"},
			Location: &gotgbot.Location{Latitude: 35.6812, Longitude: 139.7671},
		}
	}

	// Nobody asked yet.
	if err := b.saveLocation(ctx, share(1)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := locs.UserLocation(ctx, room); ok {
		t.Fatal("unrequested location stored")
	}

	prompt := types.Message{Room: room, Sender: types.User{ID: "1"}, Text: "Share"}
	if err := b.Notifier().RequestLocation(ctx, prompt); err != nil {
		t.Fatal(err)
	}
	// Someone else answering does not count.
	if err := b.saveLocation(ctx, share(2)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := locs.UserLocation(ctx, room); ok {
		t.Fatal("location from another user stored")
	}

	if err := b.saveLocation(ctx, share(1)); err != nil {
		t.Fatal(err)
	}
	loc, ok, err := locs.UserLocation(ctx, room)
	if err != nil || !ok || loc != "35.68120,139.76710" {
		t.Errorf("wrong stored location: %q %v %v", loc, ok, err)
	}
	if b.prompts.GetLocation(-5) != nil {
		t.Error("prompt not cleared")
	}
	last := api.sent[len(api.sent)-1]
	if _, ok := last.opts.ReplyMarkup.(gotgbot.ReplyKeyboardRemove); !ok {
		t.Errorf("confirmation does not remove keyboard: %#v", last.opts.ReplyMarkup)
	}
}
