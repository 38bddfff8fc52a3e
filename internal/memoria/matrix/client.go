// Package matrix wraps the mautrix client with the small surface the
// memory bot needs: a resilient sync loop over one room and a few send
// helpers.
package matrix

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/knifekeroppi/memoria/common/redact"
)

// Config holds Matrix connection settings.
type Config struct {
	Homeserver  string
	UserID      string
	AccessToken string
	// MemoryRoom is the room the bot lives in: commands are read from it
	// and memories are posted to it.
	MemoryRoom string
	// DB is an optional SQLite connection used to persist the sync token
	// (next_batch) across restarts. When nil the bot replays room history
	// on every start.
	DB *sql.DB
}

// EventHandler processes incoming room messages.
type EventHandler func(ctx context.Context, evt *event.Event)

// Client wraps the mautrix client.
type Client struct {
	client  *mautrix.Client
	config  *Config
	stopCh  chan struct{}
	handler EventHandler
}

// New creates a Matrix client from config.
func New(config *Config) (*Client, error) {
	client, err := mautrix.NewClient(config.Homeserver, id.UserID(config.UserID), config.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create Matrix client: %w", err)
	}

	if config.DB != nil {
		client.Store = newDBSyncStore(config.DB)
	} else {
		slog.Warn("no DB configured for the Matrix sync store; room history will replay on restart")
	}

	return &Client{
		client: client,
		config: config,
		stopCh: make(chan struct{}),
	}, nil
}

// Start joins the memory room and begins syncing in the background. Sync
// failures are retried with exponential backoff; without that, a transient
// homeserver error would silently kill the sync goroutine and leave the
// bot deaf.
func (c *Client) Start(ctx context.Context, handler EventHandler) error {
	c.handler = handler

	syncer := c.client.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, c.handleMessage)

	if err := c.joinRoom(id.RoomID(c.config.MemoryRoom)); err != nil {
		return fmt.Errorf("join memory room %s: %w", c.config.MemoryRoom, err)
	}

	go func() {
		const (
			backoffMin = 2 * time.Second
			backoffMax = 5 * time.Minute
		)
		backoff := backoffMin
		for {
			if err := c.client.Sync(); err != nil {
				select {
				case <-c.stopCh:
					return
				default:
				}
				// Failed request errors can echo the access token in
				// their URL; scrub before logging.
				slog.Error("Matrix sync stopped; reconnecting",
					"err", redact.Error(err, c.config.AccessToken), "backoff", backoff)
				select {
				case <-c.stopCh:
					return
				case <-time.After(backoff):
				}
				backoff *= 2
				if backoff > backoffMax {
					backoff = backoffMax
				}
				continue
			}
			// Sync returns nil only after a clean StopSync.
			return
		}
	}()

	return nil
}

// Stop shuts the sync loop down.
func (c *Client) Stop() {
	close(c.stopCh)
	c.client.StopSync()
}

// SendNotice posts a notice (the unobtrusive message type bots should use
// for chatter) to the memory room.
func (c *Client) SendNotice(message string) error {
	content := event.MessageEventContent{
		MsgType: event.MsgNotice,
		Body:    message,
	}
	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(c.config.MemoryRoom), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("send notice: %w", err)
	}
	return nil
}

// SendFormatted posts an HTML message with a plaintext fallback to the
// memory room.
func (c *Client) SendFormatted(html, plaintext string) error {
	content := event.MessageEventContent{
		MsgType:       event.MsgText,
		Body:          plaintext,
		Format:        event.FormatHTML,
		FormattedBody: html,
	}
	_, err := c.client.SendMessageEvent(context.Background(), id.RoomID(c.config.MemoryRoom), event.EventMessage, &content)
	if err != nil {
		return fmt.Errorf("send formatted message: %w", err)
	}
	return nil
}

// UserID returns the bot's own Matrix user ID.
func (c *Client) UserID() string {
	return c.config.UserID
}

// handleMessage filters events down to text messages from other users in
// the memory room before invoking the handler.
func (c *Client) handleMessage(ctx context.Context, evt *event.Event) {
	if evt.Sender == id.UserID(c.config.UserID) {
		return
	}
	content := evt.Content.AsMessage()
	if content == nil || content.MsgType != event.MsgText {
		return
	}
	if evt.RoomID != id.RoomID(c.config.MemoryRoom) {
		return
	}
	if c.handler != nil {
		c.handler(ctx, evt)
	}
}

// joinRoom joins the configured room, tolerating the M_FORBIDDEN the
// homeserver returns when the bot is already a member.
func (c *Client) joinRoom(roomID id.RoomID) error {
	_, err := c.client.JoinRoomByID(context.Background(), roomID)
	if err != nil {
		if errors.Is(err, mautrix.MForbidden) {
			slog.Warn("joinRoom: already a member or access denied, continuing", "room", roomID)
			return nil
		}
		return err
	}
	return nil
}
