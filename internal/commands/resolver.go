package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codegangsta/triphelper/internal/metrics"
	"github.com/codegangsta/triphelper/internal/types"
)

// ErrEmptyInvocation is returned by Resolve for a call with no tokens.
var ErrEmptyInvocation = errors.New("empty invocation")

// Call is a single /trip invocation. A Call must not be modified or retained
// by collaborators.
type Call struct {
	// Args is the tokenized invocation: the command, then its arguments.
	Args []string
	// Sender is the user who issued the command.
	Sender types.User
	// Room is where the command was issued.
	Room types.Room
	// TriggerID identifies the triggering platform event, if any.
	TriggerID string
	// ThreadID is the thread the command was issued in, if any.
	ThreadID string
}

// RoomFinder looks up rooms by exact name.
type RoomFinder interface {
	GetByName(ctx context.Context, name string) (*types.Room, error)
}

// NameReserver reserves trip channel names.
type NameReserver interface {
	StoreRoomName(ctx context.Context, room types.Room, sender types.User, name string) (bool, error)
}

// InteractionRecorder records the room a user last used.
type InteractionRecorder interface {
	StoreInteractionRoomID(ctx context.Context, userID, roomID string) error
}

// LocationReader reads the location set for a room.
type LocationReader interface {
	UserLocation(ctx context.Context, room types.Room) (string, bool, error)
}

// Notifier sends a message to a room.
type Notifier interface {
	Notify(ctx context.Context, msg types.Message) error
}

// LocationPrompter asks the user in a room to share their location.
type LocationPrompter interface {
	RequestLocation(ctx context.Context, msg types.Message) error
}

// Handler performs the business actions behind commands. Each method does its
// own messaging.
type Handler interface {
	Help(ctx context.Context) error
	Create(ctx context.Context, name string) error
	Info(ctx context.Context) error
	Reminder(ctx context.Context) error
	DefaultNotification(ctx context.Context) error
}

// Env is everything the resolver may touch while handling calls.
type Env struct {
	Rooms        RoomFinder
	Names        NameReserver
	Interactions InteractionRecorder
	Locations    LocationReader
	Notifier     Notifier
	Prompter     LocationPrompter
	// NewHandler creates a handler bound to a call.
	NewHandler func(call *Call) Handler
	// Log and Metrics are optional.
	Log     *slog.Logger
	Metrics *metrics.Metrics
}

// Resolver parses invocations, consults stored state, and dispatches to the
// appropriate handler.
type Resolver struct {
	env     Env
	router  *Router
	log     *slog.Logger
	metrics *metrics.Metrics
	// bg tracks interaction writes still in flight.
	bg sync.WaitGroup
}

// NewResolver creates a resolver with all /trip commands registered.
func NewResolver(env Env) *Resolver {
	r := &Resolver{
		env:     env,
		router:  NewRouter(),
		log:     env.Log,
		metrics: env.Metrics,
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	r.router.register(KindHelp, r.help)
	r.router.register(KindCreate, r.create)
	r.router.register(KindReminder, r.reminder)
	r.router.register(KindLocation, r.location)
	r.router.register(KindInfo, r.info)
	r.router.register(KindStart, r.start)
	return r
}

// Router returns the resolver's command table.
func (r *Resolver) Router() *Router {
	return r.router
}

// Wait blocks until all background interaction writes have finished.
func (r *Resolver) Wait() {
	r.bg.Wait()
}

// dispatch is the per-call state handed to each command.
type dispatch struct {
	*Call
	handler Handler
	command string
	// sub is the lower-cased subcommand argument, valid if hasSub.
	sub    string
	hasSub bool
	// location is the room's location, valid if hasLocation.
	location    string
	hasLocation bool
}

// Resolve handles one invocation. Errors returned are failures of the
// collaborators; user mistakes are answered with a notification and a nil
// error.
func (r *Resolver) Resolve(ctx context.Context, call *Call) error {
	start := time.Now()
	r.recordInteraction(ctx, call)
	if len(call.Args) == 0 {
		return ErrEmptyInvocation
	}

	d := &dispatch{
		Call:    call,
		handler: r.env.NewHandler(call),
		command: strings.ToLower(call.Args[0]),
	}
	if len(call.Args) > 1 && call.Args[1] != "" {
		d.sub = strings.ToLower(call.Args[1])
		d.hasSub = true
	}

	loc, ok, err := r.env.Locations.UserLocation(ctx, call.Room)
	if err != nil {
		return fmt.Errorf("couldn't read location for room %s: %w", call.Room.ID, err)
	}
	d.location, d.hasLocation = loc, ok

	cmd := r.router.Lookup(d.command)
	kind := KindUnknown
	if cmd != nil {
		kind = cmd.Kind
	}
	log := r.log.With(slog.String("command", kind.String()), slog.String("room", call.Room.ID), slog.String("user", call.Sender.ID))
	log.DebugContext(ctx, "resolving", slog.Any("args", call.Args), slog.Bool("location", d.hasLocation))
	defer func() {
		r.metrics.Invocations.Observe(1, kind.String())
		r.metrics.ResolveLatency.Observe(time.Since(start).Seconds(), kind.String())
	}()

	if cmd == nil {
		log.InfoContext(ctx, "invalid command", slog.String("token", d.command))
		return r.notify(ctx, d, invalidCommandText(d.command))
	}
	if err := cmd.run(ctx, d); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

// recordInteraction stores the call's room as the sender's last room. It is
// best effort: it runs in the background, outlives ctx, and failures are only
// logged.
func (r *Resolver) recordInteraction(ctx context.Context, call *Call) {
	ctx = context.WithoutCancel(ctx)
	user, room := call.Sender.ID, call.Room.ID
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		if err := r.env.Interactions.StoreInteractionRoomID(ctx, user, room); err != nil {
			r.metrics.InteractionFailures.Observe(1)
			r.log.WarnContext(ctx, "couldn't record room interaction", slog.String("user", user), slog.String("room", room), slog.Any("err", err))
		}
	}()
}

func (r *Resolver) message(d *dispatch, text string) types.Message {
	return types.Message{
		Room:     d.Room,
		Sender:   d.Sender,
		ThreadID: d.ThreadID,
		Text:     text,
	}
}

func (r *Resolver) notify(ctx context.Context, d *dispatch, text string) error {
	if err := r.env.Notifier.Notify(ctx, r.message(d, text)); err != nil {
		return fmt.Errorf("couldn't notify room %s: %w", d.Room.ID, err)
	}
	r.metrics.Notifications.Observe(1)
	return nil
}

func (r *Resolver) help(ctx context.Context, d *dispatch) error {
	return d.handler.Help(ctx)
}

func (r *Resolver) create(ctx context.Context, d *dispatch) error {
	if !d.hasSub {
		r.metrics.CreateOutcomes.Observe(1, "usage")
		return r.notify(ctx, d, createUsageText)
	}
	name := types.TripRoomName(d.sub)
	existing, err := r.env.Rooms.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("couldn't look up room %q: %w", name, err)
	}
	if existing != nil {
		r.metrics.CreateOutcomes.Observe(1, "exists")
		return r.notify(ctx, d, alreadyExistsText(d.sub))
	}
	// The existence check and the reservation are separate steps. Concurrent
	// creates can both pass the check; the reservation admits only one.
	ok, err := r.env.Names.StoreRoomName(ctx, d.Room, d.Sender, d.sub)
	if err != nil {
		r.log.WarnContext(ctx, "couldn't reserve trip name", slog.String("name", d.sub), slog.Any("err", err))
		ok = false
	}
	if !ok {
		r.metrics.CreateOutcomes.Observe(1, "failed")
		return r.notify(ctx, d, createFailedText(d.sub))
	}
	if err := d.handler.Create(ctx, d.sub); err != nil {
		return err
	}
	r.metrics.CreateOutcomes.Observe(1, "created")
	return r.notify(ctx, d, createdText(d.sub))
}

func (r *Resolver) reminder(ctx context.Context, d *dispatch) error {
	return d.handler.Reminder(ctx)
}

func (r *Resolver) location(ctx context.Context, d *dispatch) error {
	text := shareLocationText
	if d.hasLocation {
		text = currentLocationText(d.location)
	}
	if err := r.env.Prompter.RequestLocation(ctx, r.message(d, text)); err != nil {
		return fmt.Errorf("couldn't request location in room %s: %w", d.Room.ID, err)
	}
	return nil
}

func (r *Resolver) info(ctx context.Context, d *dispatch) error {
	return d.handler.Info(ctx)
}

func (r *Resolver) start(ctx context.Context, d *dispatch) error {
	return d.handler.DefaultNotification(ctx)
}
