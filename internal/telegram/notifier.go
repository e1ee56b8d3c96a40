package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"golang.org/x/time/rate"

	"github.com/codegangsta/triphelper/internal/trackers"
	"github.com/codegangsta/triphelper/internal/types"
)

// Sender is the part of the Bot API used to post messages. *gotgbot.Bot
// implements it.
type Sender interface {
	SendMessage(chatId int64, text string, opts *gotgbot.SendMessageOpts) (*gotgbot.Message, error)
}

// Notifier delivers bot messages to Telegram chats
type Notifier struct {
	api     Sender
	limiter *rate.Limiter
	prompts *trackers.Manager
	logger  *slog.Logger
}

// NewNotifier creates a notifier. A nil limiter sends without limit.
func NewNotifier(api Sender, limiter *rate.Limiter, prompts *trackers.Manager, logger *slog.Logger) *Notifier {
	return &Notifier{
		api:     api,
		limiter: limiter,
		prompts: prompts,
		logger:  logger,
	}
}

// Notify sends msg to its room
func (n *Notifier) Notify(ctx context.Context, msg types.Message) error {
	_, err := n.send(ctx, msg, nil)
	return err
}

// RequestLocation sends msg with a location request keyboard and remembers
// the prompt so the shared location can be matched to the room.
func (n *Notifier) RequestLocation(ctx context.Context, msg types.Message) error {
	chatID, err := parseID(msg.Room.ID)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", msg.Room.ID, err)
	}
	var markup gotgbot.ReplyMarkup
	if chatID > 0 {
		// Group and channel ids are negative.
		markup = LocationKeyboard()
	}
	sent, err := n.send(ctx, msg, markup)
	if err != nil {
		return err
	}

	userID, _ := parseID(msg.Sender.ID)
	threadID, _ := parseID(msg.ThreadID)
	n.prompts.SetLocation(chatID, &trackers.PendingLocation{
		Room:      msg.Room,
		UserID:    userID,
		MessageID: sent.MessageId,
		ThreadID:  threadID,
	})
	return nil
}

func (n *Notifier) send(ctx context.Context, msg types.Message, markup gotgbot.ReplyMarkup) (*gotgbot.Message, error) {
	chatID, err := parseID(msg.Room.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", msg.Room.ID, err)
	}
	threadID, err := parseID(msg.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("invalid thread id %q: %w", msg.ThreadID, err)
	}
	if n.limiter != nil {
		if err := n.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to send: %w", err)
		}
	}

	opts := &gotgbot.SendMessageOpts{
		ParseMode:       "MarkdownV2",
		MessageThreadId: threadID,
		ReplyMarkup:     markup,
	}
	sent, err := n.api.SendMessage(chatID, FormatMarkdownV2(msg.Text), opts)
	if err != nil && strings.Contains(err.Error(), "can't parse entities") {
		n.logger.Warn("markdown rejected, sending plain text",
			"chat_id", chatID,
			"error", err,
		)
		opts.ParseMode = ""
		sent, err = n.api.SendMessage(chatID, msg.Text, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return sent, nil
}

// parseID parses a Telegram id carried as a string. The empty string is 0.
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
