package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"
)

// DefaultRetryDelay is the pause before reconnecting a dropped feed.
const DefaultRetryDelay = 2 * time.Second

// FeedURL returns the change feed endpoint for an API base URL such as
// "http://localhost:8000/api".
func FeedURL(apiBase string) string {
	return strings.TrimRight(apiBase, "/") + "/events"
}

// FeedNotifier listens to the server's WebSocket change feed and fires on
// every message, including the greeting sent on connect.
type FeedNotifier struct {
	URL        string
	RetryDelay time.Duration
	Logger     *log.Logger
}

// NewFeedNotifier creates a notifier for the feed of the API at apiBase.
func NewFeedNotifier(apiBase string, logger *log.Logger) *FeedNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &FeedNotifier{URL: FeedURL(apiBase), RetryDelay: DefaultRetryDelay, Logger: logger}
}

// Run implements Notifier. A failure to make the first connection is
// returned; later disconnects are retried until ctx is cancelled.
func (n *FeedNotifier) Run(ctx context.Context, onChange func()) error {
	conn, _, err := websocket.Dial(ctx, n.URL, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("connect to change feed %s: %w", n.URL, err)
	}

	for {
		err := n.listen(ctx, conn, onChange)
		if ctx.Err() != nil {
			return nil
		}
		n.Logger.Warn("change feed dropped, reconnecting", "err", err, "in", n.RetryDelay)

		conn = nil
		for conn == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(n.RetryDelay):
			}
			conn, _, err = websocket.Dial(ctx, n.URL, nil)
			if err != nil {
				n.Logger.Debug("reconnect failed", "err", err)
				conn = nil
			}
		}
	}
}

func (n *FeedNotifier) listen(ctx context.Context, conn *websocket.Conn, onChange func()) error {
	defer conn.Close(websocket.StatusNormalClosure, "")
	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		onChange()
	}
}
