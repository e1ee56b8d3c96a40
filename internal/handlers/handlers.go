// Package handlers implements the business actions behind /trip commands.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/storage"
	"github.com/codegangsta/triphelper/internal/types"
)

// Builder creates command handlers bound to a single call. It holds the
// collaborators every handler shares.
type Builder struct {
	Rooms     *storage.Rooms
	Reminders *storage.Reminders
	Locations commands.LocationReader
	Notifier  commands.Notifier
	Logger    *slog.Logger
}

// For returns a handler for call. It has the signature of Env.NewHandler.
func (b *Builder) For(call *commands.Call) commands.Handler {
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		b:    b,
		call: call,
		log:  logger.With(slog.String("room", call.Room.ID), slog.String("user", call.Sender.ID)),
	}
}

// CommandHandler performs commands for one call
type CommandHandler struct {
	b    *Builder
	call *commands.Call
	log  *slog.Logger
}

func (h *CommandHandler) send(ctx context.Context, text string) error {
	msg := types.Message{
		Room:     h.call.Room,
		Sender:   h.call.Sender,
		ThreadID: h.call.ThreadID,
		Text:     text,
	}
	if err := h.b.Notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("couldn't notify room %s: %w", h.call.Room.ID, err)
	}
	return nil
}

// Help lists every command with its usage.
func (h *CommandHandler) Help(ctx context.Context) error {
	var sb strings.Builder
	sb.WriteString("**Trip Helper commands**\n")
	for _, k := range commands.Kinds() {
		fmt.Fprintf(&sb, "`%s` - %s\n", k.Usage(), k.Help())
	}
	return h.send(ctx, strings.TrimSuffix(sb.String(), "\n"))
}

// Create adds the trip channel for name to the room directory.
func (h *CommandHandler) Create(ctx context.Context, name string) error {
	room, err := h.b.Rooms.Create(ctx, types.TripRoomName(name), h.call.Sender)
	if err != nil {
		return fmt.Errorf("couldn't create trip channel %q: %w", name, err)
	}
	h.log.InfoContext(ctx, "created trip channel", slog.String("name", room.Name), slog.String("id", room.ID))
	return nil
}

// Info describes the app and what it knows about the current room.
func (h *CommandHandler) Info(ctx context.Context) error {
	loc, ok, err := h.b.Locations.UserLocation(ctx, h.call.Room)
	if err != nil {
		return fmt.Errorf("couldn't read location: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("**Trip Helper** keeps your trip organised: create a trip channel, share where you are, and get reminders while you travel.\n")
	if ok {
		fmt.Fprintf(&sb, "Location for this room: %s", loc)
	} else {
		sb.WriteString("No location is set for this room. Use `/trip location` to share one.")
	}
	return h.send(ctx, sb.String())
}

// Reminder toggles the sender's reminders for the current room.
func (h *CommandHandler) Reminder(ctx context.Context) error {
	r, err := h.b.Reminders.Toggle(ctx, h.call.Sender, h.call.Room)
	if err != nil {
		return fmt.Errorf("couldn't toggle reminder: %w", err)
	}
	h.log.DebugContext(ctx, "reminder toggled", slog.Bool("enabled", r.Enabled))
	if r.Enabled {
		return h.send(ctx, "Trip reminders are **on** for this room. Type `/trip reminder` again to turn them off.")
	}
	return h.send(ctx, "Trip reminders are **off**.")
}

// DefaultNotification greets the user, pointing at the next useful command.
func (h *CommandHandler) DefaultNotification(ctx context.Context) error {
	loc, ok, err := h.b.Locations.UserLocation(ctx, h.call.Room)
	if err != nil {
		return fmt.Errorf("couldn't read location: %w", err)
	}
	if ok {
		return h.send(ctx, fmt.Sprintf("Welcome to Trip Helper! Your trip location is %s. Type `/trip help` to see what I can do.", loc))
	}
	return h.send(ctx, "Welcome to Trip Helper! Share your location with `/trip location` to get started, or type `/trip help` to see what I can do.")
}
