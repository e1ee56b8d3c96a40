package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/codegangsta/triphelper/internal/assoc"
	"github.com/codegangsta/triphelper/internal/commands"
	"github.com/codegangsta/triphelper/internal/config"
	"github.com/codegangsta/triphelper/internal/console"
	"github.com/codegangsta/triphelper/internal/metrics"
	"github.com/codegangsta/triphelper/internal/types"
)

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	cases := []config.StoreConfig{
		{Driver: config.DriverMemory},
		{Driver: config.DriverFile, Path: filepath.Join(dir, "trip.yaml")},
		{Driver: config.DriverSQLite, Path: filepath.Join(dir, "trip.db")},
		{Driver: config.DriverBadger, Path: filepath.Join(dir, "trip.badger")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Driver, func(t *testing.T) {
			ctx := context.Background()
			if err := initStore(ctx, cfg); err != nil {
				t.Fatalf("init: %v", err)
			}
			s, closeStore, err := openStore(ctx, cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer closeStore()
			key := assoc.NewKey(assoc.ModelMisc, "probe")
			if err := s.Write(ctx, key, []byte(`{"ok":true}`)); err != nil {
				t.Fatal(err)
			}
			got, err := s.Read(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != `{"ok":true}` {
				t.Errorf("wrong record: %s", got)
			}
		})
	}
}

func TestOpenStoreUnknown(t *testing.T) {
	if _, _, err := openStore(context.Background(), config.StoreConfig{Driver: "etcd"}); err == nil {
		t.Error("unknown driver accepted")
	}
}

func TestResolveConsole(t *testing.T) {
	ctx := context.Background()
	store := assoc.NewMemory()
	var buf bytes.Buffer
	res := newResolver(store, console.New(&buf), discardLogger(), metrics.New())
	room := types.Room{ID: "lobby", Name: "lobby", Slug: "lobby"}
	run := func(args ...string) {
		t.Helper()
		call := &commands.Call{Args: args, Sender: types.User{ID: "console"}, Room: room}
		if err := res.Resolve(ctx, call); err != nil {
			t.Fatal(err)
		}
	}

	run("create", "Porto")
	run("create", "porto")
	run("help")
	run("location")
	res.Wait()

	out := buf.String()
	for _, want := range []string{
		"Your Trip channel porto created successfully!, Enjoy your trip! 🚀",
		"Trip channel with name 'porto' already exists. Enjoy app's features there!🚀",
		"`/trip create <channel-name>`",
		"📍 [lobby] Share your Location with us",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if store.Len() == 0 {
		t.Error("nothing was stored")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
