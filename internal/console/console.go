// Package console is a transport that writes bot output to a terminal. It
// backs the resolve subcommand.
package console

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/codegangsta/triphelper/internal/types"
)

// Writer prints notifications and location prompts to w
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a console transport writing to w
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (c *Writer) print(prefix string, msg types.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	where := msg.Room.Name
	if where == "" {
		where = msg.Room.ID
	}
	if msg.ThreadID != "" {
		where += "#" + msg.ThreadID
	}
	_, err := fmt.Fprintf(c.w, "%s [%s] %s\n", prefix, where, msg.Text)
	return err
}

// Notify prints msg
func (c *Writer) Notify(ctx context.Context, msg types.Message) error {
	return c.print("→", msg)
}

// RequestLocation prints msg as a location prompt
func (c *Writer) RequestLocation(ctx context.Context, msg types.Message) error {
	return c.print("📍", msg)
}
