package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/config"
	"github.com/codegangsta/triphelper/internal/console"
	"github.com/codegangsta/triphelper/internal/handlers"
	"github.com/codegangsta/triphelper/internal/metrics"
	"github.com/codegangsta/triphelper/internal/storage"
	"github.com/codegangsta/triphelper/internal/telegram"
	"github.com/codegangsta/triphelper/internal/types"
)

var app = cli.Command{
	Name:  "triphelper",
	Usage: "Trip channel chat bot",

	Flags: []cli.Flag{
		&flagConfig,
		&flagLog,
		&flagLogFormat,
	},
	Commands: []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the tables the configured store needs",
			Action: cliInit,
		},
		{
			Name:      "resolve",
			Usage:     "Resolve one /trip invocation against the configured store",
			ArgsUsage: "[command [args...]]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "room",
					Usage:    "Room the command is issued in",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "user",
					Usage: "User issuing the command",
					Value: "console",
				},
				&cli.StringFlag{
					Name:  "thread",
					Usage: "Thread the command is issued in",
				},
			},
			Action: cliResolve,
		},
	},
	Action: cliRun,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// transport is where the resolver sends its output.
type transport interface {
	commands.Notifier
	commands.LocationPrompter
}

// newResolver wires the resolver and its handlers over one store.
func newResolver(store assoc.Store, out transport, log *slog.Logger, m *metrics.Metrics) *commands.Resolver {
	rooms := storage.NewRooms(store)
	locations := storage.NewLocations(store)
	builder := &handlers.Builder{
		Rooms:     rooms,
		Reminders: storage.NewReminders(store),
		Locations: locations,
		Notifier:  out,
		Logger:    log,
	}
	return commands.NewResolver(commands.Env{
		Rooms:        rooms,
		Names:        storage.NewRoomNames(store, log),
		Interactions: storage.NewInteractions(store),
		Locations:    locations,
		Notifier:     out,
		Prompter:     out,
		NewHandler:   builder.For,
		Log:          log,
		Metrics:      m,
	})
}

// load reads the config and installs the logger it describes.
func load(cmd *cli.Command) (*config.Config, func() error, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("couldn't load config: %w", err)
	}
	log, closeLog, err := setupLogger(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(log)
	return cfg, closeLog, nil
}

func cliRun(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := load(cmd)
	if err != nil {
		return err
	}
	defer closeLog()
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	slog.InfoContext(ctx, "config loaded",
		slog.Int("allowlist_count", len(cfg.Allowlist)),
		slog.String("store", cfg.Store.Driver),
		slog.Bool("debug", cfg.Debug),
	)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	m := metrics.New()
	limiter := rate.NewLimiter(rate.Limit(cfg.Notify.Rate), cfg.Notify.Burst)
	bot, err := telegram.New(cfg.Telegram.Token, cfg.Allowlist, limiter, slog.Default())
	if err != nil {
		return fmt.Errorf("couldn't create telegram bot: %w", err)
	}
	res := newResolver(store, bot.Notifier(), slog.Default(), m)
	bot.SetHandler(res.Resolve)
	bot.SetLocations(storage.NewLocations(store))

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return bot.Start(ctx) })
	if cfg.Metrics.Listen != "" {
		group.Go(func() error { return metrics.Serve(ctx, cfg.Metrics.Listen, m) })
	}
	err = group.Wait()
	// Let background interaction writes land before the store closes.
	res.Wait()
	return err
}

func cliInit(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := load(cmd)
	if err != nil {
		return err
	}
	defer closeLog()
	return initStore(ctx, cfg.Store)
}

func cliResolve(ctx context.Context, cmd *cli.Command) error {
	cfg, closeLog, err := load(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	res := newResolver(store, console.New(os.Stdout), slog.Default(), nil)
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{commands.KindHelp.String()}
	}
	room := cmd.String("room")
	call := &commands.Call{
		Args:     args,
		Sender:   types.User{ID: cmd.String("user"), Username: cmd.String("user")},
		Room:     types.Room{ID: room, Name: room, Slug: storage.Slugify(room)},
		ThreadID: cmd.String("thread"),
	}
	err = res.Resolve(ctx, call)
	res.Wait()
	return err
}

var (
	flagConfig = cli.StringFlag{
		Name:       "config",
		Required:   true,
		Usage:      "YAML config file",
		Persistent: true,
		Action: func(ctx context.Context, cmd *cli.Command, s string) error {
			i, err := os.Stat(s)
			if err != nil {
				return err
			}
			if !i.Mode().IsRegular() {
				return errors.New("config must be a regular file")
			}
			return nil
		},
	}

	flagLog = cli.StringFlag{
		Name:       "log",
		Usage:      "Logging level, one of debug, info, warn, error",
		Value:      "info",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			var l slog.Level
			return l.UnmarshalText([]byte(s))
		},
	}

	flagLogFormat = cli.StringFlag{
		Name:       "log-format",
		Usage:      "Logging format, either text or json",
		Value:      "text",
		Persistent: true,
		Action: func(ctx context.Context, c *cli.Command, s string) error {
			switch strings.ToLower(s) {
			case "text", "json":
				return nil
			default:
				return errors.New("unknown logging format")
			}
		},
	}
)

// setupLogger builds the logger from the flags and config. Logs go to stderr,
// and also to the config's log file when one is set. debug in the config
// overrides the level flag.
func setupLogger(cmd *cli.Command, cfg *config.Config) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log"))); err != nil {
		return nil, nil, err
	}
	if cfg.Debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeLog := noClose
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeLog = f.Close
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	switch strings.ToLower(cmd.String("log-format")) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closeLog, nil
}
