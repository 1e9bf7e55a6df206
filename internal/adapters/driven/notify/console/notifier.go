// Package console implements a Notifier that prints messages instead of
// delivering them. Used by dry runs and local development.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
)

// Ensure Notifier implements the interface.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier writes messages to a writer, one block per send.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

// NewNotifier creates a console notifier writing to stdout.
func NewNotifier() *Notifier {
	return &Notifier{out: os.Stdout}
}

// NewNotifierWithWriter creates a console notifier writing to w.
func NewNotifierWithWriter(w io.Writer) *Notifier {
	return &Notifier{out: w}
}

// Send prints the message with its target channel.
func (n *Notifier) Send(_ context.Context, channel, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.out, "--- message to %s ---\n%s\n\n", channel, text)
	return err
}
