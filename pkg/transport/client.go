package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
)

const (
	// DefaultPort is the default stream listen port.
	DefaultPort = 7000

	// DefaultConnectTimeout bounds Connect when ctx has no deadline.
	DefaultConnectTimeout = 10 * time.Second
)

// ClientConfig configures a stream client.
type ClientConfig struct {
	// ConnectTimeout is the dial timeout (default: 10s).
	ConnectTimeout time.Duration

	// Capture receives transport frame events (optional).
	Capture log.Logger

	// Logger for diagnostics (optional).
	Logger *slog.Logger
}

// Client dials stream connections.
type Client struct {
	config ClientConfig
}

// NewClient creates a client.
func NewClient(config ClientConfig) *Client {
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	return &Client{config: config}
}

// Connect dials address and returns a transport whose messages carry
// handle h. The caller runs it with StreamTransport.Run.
func (c *Client) Connect(ctx context.Context, address string, h Handle) (*StreamTransport, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	st := NewStreamTransport(conn, h, c.config.Logger)
	if c.config.Capture != nil {
		st.Framer().SetLogger(c.config.Capture, uuid.NewString())
	}
	return st, nil
}
