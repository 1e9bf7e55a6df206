// Package mcpslack delivers messages to Slack through an MCP server.
//
// The notifier spawns the configured MCP server command (for example a
// workspace bridge exposing slack_send_message) and keeps one session open
// for the process lifetime. Delivery is a single tool call; retry policy
// belongs to the caller.
package mcpslack

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// toolName is the MCP tool invoked for delivery.
const toolName = "slack_send_message"

// Ensure Notifier implements the interface.
var _ driven.Notifier = (*Notifier)(nil)

// Notifier sends messages via an MCP server's slack_send_message tool.
type Notifier struct {
	command string
	args    []string

	mu      sync.Mutex
	client  *mcp.Client
	session *mcp.ClientSession
}

// NewNotifier creates a notifier that launches the given MCP server
// command on first use.
func NewNotifier(command string, args ...string) *Notifier {
	return &Notifier{
		command: command,
		args:    args,
		client: mcp.NewClient(&mcp.Implementation{
			Name:    "sitrep",
			Version: "1.0.0",
		}, nil),
	}
}

// Send delivers text to the channel via the MCP tool. A non-nil error means
// the message was not delivered and the call is safe to retry.
func (n *Notifier) Send(ctx context.Context, channel, text string) error {
	session, err := n.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotifierUnavailable, err)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name: toolName,
		Arguments: map[string]any{
			"channel_id": channel,
			"message":    text,
		},
	})
	if err != nil {
		// The session may be dead; drop it so the next send reconnects.
		n.reset(session)
		return fmt.Errorf("calling %s: %w", toolName, err)
	}
	if result.IsError {
		return fmt.Errorf("%s rejected message: %s", toolName, resultText(result))
	}

	logger.Debug("Message delivered to %s via %s", channel, toolName)
	return nil
}

// Close terminates the MCP session, if one was established.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == nil {
		return nil
	}
	err := n.session.Close()
	n.session = nil
	return err
}

// connect returns the open session, establishing it on first use.
func (n *Notifier) connect(ctx context.Context) (*mcp.ClientSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		return n.session, nil
	}

	cmd := exec.CommandContext(ctx, n.command, n.args...)
	session, err := n.client.Connect(ctx, &mcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server %q: %w", n.command, err)
	}

	logger.Info("Connected to MCP server %q", n.command)
	n.session = session
	return session, nil
}

// reset discards the session if it is still the current one.
func (n *Notifier) reset(session *mcp.ClientSession) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session == session {
		_ = n.session.Close()
		n.session = nil
	}
}

// resultText flattens the text content of a tool result for error messages.
func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	if len(parts) == 0 {
		return "no detail provided"
	}
	return strings.Join(parts, "; ")
}
