// Package telegram is the Telegram transport: it turns /trip messages into
// command calls and delivers the bot's replies.
package telegram

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"golang.org/x/time/rate"

	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/storage"
	"github.com/codegangsta/triphelper/internal/trackers"
	"github.com/codegangsta/triphelper/internal/types"
)

// CommandHandler is called for each /trip command from an allowed user
type CommandHandler func(ctx context.Context, call *commands.Call) error

// LocationWriter stores a location shared for a room
type LocationWriter interface {
	SetUserLocation(ctx context.Context, room types.Room, loc string) error
}

// promptTTL is how long a location prompt waits for an answer
const promptTTL = 10 * time.Minute

const apologyText = "Sorry, something went wrong while handling that command. Please try again."

// Bot wraps the Telegram bot functionality
type Bot struct {
	bot       *gotgbot.Bot
	updater   *ext.Updater
	notifier  *Notifier
	prompts   *trackers.Manager
	allowlist map[int64]bool
	handler   CommandHandler
	locations LocationWriter
	logger    *slog.Logger
	ctx       context.Context
}

// New creates a new Telegram bot
func New(token string, allowlist []int64, limiter *rate.Limiter, logger *slog.Logger) (*Bot, error) {
	// Create HTTP client with longer timeout for long-polling
	httpClient := http.Client{
		Timeout: 60 * time.Second,
	}

	bot, err := gotgbot.NewBot(token, &gotgbot.BotOpts{
		BotClient: &gotgbot.BaseBotClient{
			Client: httpClient,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}

	b := newBot(bot, allowlist, limiter, logger)
	b.bot = bot
	return b, nil
}

func newBot(api Sender, allowlist []int64, limiter *rate.Limiter, logger *slog.Logger) *Bot {
	allowMap := make(map[int64]bool, len(allowlist))
	for _, id := range allowlist {
		allowMap[id] = true
	}
	prompts := trackers.NewManager(promptTTL)
	return &Bot{
		notifier:  NewNotifier(api, limiter, prompts, logger),
		prompts:   prompts,
		allowlist: allowMap,
		logger:    logger,
		ctx:       context.Background(),
	}
}

// Notifier returns the notifier that sends through this bot
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// SetHandler sets the /trip command handler
func (b *Bot) SetHandler(h CommandHandler) {
	b.handler = h
}

// SetLocations sets where shared locations are stored
func (b *Bot) SetLocations(l LocationWriter) {
	b.locations = l
}

// Start begins polling for updates and blocks until context is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.ctx = ctx

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(bot *gotgbot.Bot, ctx *ext.Context, err error) ext.DispatcherAction {
			b.logger.Error("dispatcher error", "error", err)
			return ext.DispatcherActionNoop
		},
	})

	b.updater = ext.NewUpdater(dispatcher, nil)

	dispatcher.AddHandler(handlers.NewCommand("trip", b.handleTrip))
	dispatcher.AddHandler(handlers.NewMessage(hasLocation, b.handleLocation))

	err := b.updater.StartPolling(b.bot, &ext.PollingOpts{
		DropPendingUpdates: true,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout: 30,
			AllowedUpdates: []string{
				"message",
			},
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: 60 * time.Second,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("starting polling: %w", err)
	}

	b.logger.Info("telegram bot started",
		"username", b.bot.Username,
		"allowlist_count", len(b.allowlist),
	)

	<-ctx.Done()

	b.updater.Stop()
	b.logger.Info("telegram bot stopped")

	return nil
}

func hasLocation(msg *gotgbot.Message) bool {
	return msg.Location != nil
}

func (b *Bot) allowed(msg *gotgbot.Message) bool {
	if msg.From == nil {
		return false
	}
	if !b.allowlist[msg.From.Id] {
		b.logger.Debug("ignoring message from non-allowed user",
			"user_id", msg.From.Id,
			"chat_id", msg.Chat.Id,
			"username", msg.From.Username,
		)
		return false
	}
	return true
}

func (b *Bot) handleTrip(bot *gotgbot.Bot, ctx *ext.Context) error {
	if msg := ctx.EffectiveMessage; msg != nil {
		b.trip(b.ctx, msg)
	}
	return nil
}

// trip resolves a /trip message. Failures are answered with an apology.
func (b *Bot) trip(ctx context.Context, msg *gotgbot.Message) {
	if !b.allowed(msg) || b.handler == nil {
		return
	}
	_, args := commands.ParseCommand(msg.Text)
	if len(args) == 0 {
		args = []string{commands.KindHelp.String()}
	}
	call := callFromMessage(msg, args)

	b.logger.Info("processing command",
		"user_id", msg.From.Id,
		"chat_id", msg.Chat.Id,
		"args", args,
	)
	if err := b.handler(ctx, call); err != nil {
		b.logger.Error("command failed",
			"chat_id", msg.Chat.Id,
			"args", args,
			"error", err,
		)
		reply := types.Message{Room: call.Room, Sender: call.Sender, ThreadID: call.ThreadID, Text: apologyText}
		if err := b.notifier.Notify(ctx, reply); err != nil {
			b.logger.Error("failed to send apology", "chat_id", msg.Chat.Id, "error", err)
		}
	}
}

func (b *Bot) handleLocation(bot *gotgbot.Bot, ctx *ext.Context) error {
	if msg := ctx.EffectiveMessage; msg != nil {
		return b.saveLocation(b.ctx, msg)
	}
	return nil
}

// saveLocation stores a shared location for the room that asked for it.
// Locations nobody asked for are ignored.
func (b *Bot) saveLocation(ctx context.Context, msg *gotgbot.Message) error {
	if !b.allowed(msg) || b.locations == nil {
		return nil
	}
	pending := b.prompts.GetLocation(msg.Chat.Id)
	if pending == nil || pending.UserID != msg.From.Id {
		b.logger.Debug("ignoring unrequested location",
			"chat_id", msg.Chat.Id,
			"user_id", msg.From.Id,
		)
		return nil
	}

	loc := FormatLocation(msg.Location)
	if err := b.locations.SetUserLocation(ctx, pending.Room, loc); err != nil {
		return fmt.Errorf("saving location for chat %d: %w", msg.Chat.Id, err)
	}
	b.prompts.ClearLocation(msg.Chat.Id)
	b.logger.Info("location saved", "chat_id", msg.Chat.Id, "room", pending.Room.ID)

	reply := types.Message{
		Room:     pending.Room,
		ThreadID: formatID(pending.ThreadID),
		Text:     "Location saved: `" + loc + "`",
	}
	if _, err := b.notifier.send(ctx, reply, RemoveKeyboard()); err != nil {
		return fmt.Errorf("confirming location: %w", err)
	}
	return nil
}

// callFromMessage builds the command call for a /trip message
func callFromMessage(msg *gotgbot.Message, args []string) *commands.Call {
	call := &commands.Call{
		Args: args,
		Sender: types.User{
			ID:       formatID(msg.From.Id),
			Username: msg.From.Username,
		},
		Room:      roomFromChat(msg.Chat),
		TriggerID: formatID(msg.MessageId),
	}
	if msg.IsTopicMessage {
		call.ThreadID = formatID(msg.MessageThreadId)
	}
	return call
}

// roomFromChat maps a chat to a room. The slug follows the chat's display
// name.
func roomFromChat(chat gotgbot.Chat) types.Room {
	name := cmp.Or(chat.Title, chat.Username, chat.FirstName, formatID(chat.Id))
	return types.Room{
		ID:   formatID(chat.Id),
		Name: name,
		Slug: storage.Slugify(name),
	}
}

// formatID renders a Telegram id. 0 means none and renders as "".
func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
