package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"maunium.net/go/mautrix/event"

	"github.com/knifekeroppi/memoria/common/trace"
	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/render"
	"github.com/knifekeroppi/memoria/internal/memoria/sampler"
	"github.com/knifekeroppi/memoria/internal/memoria/store"
	"github.com/knifekeroppi/memoria/internal/memoria/syncwriter"
)

// CommandPrefix starts every bot command.
const CommandPrefix = "$"

// Selector picks memories.
type Selector interface {
	Today(ctx context.Context) (model.Message, error)
	ByID(ctx context.Context, id string) (model.Message, error)
}

// Recorder archives incoming message events.
type Recorder interface {
	Record(ctx context.Context, evt syncwriter.Event) error
}

// Sender is the slice of the Matrix client the bot posts through. Narrow
// so tests run without a homeserver.
type Sender interface {
	SendNotice(message string) error
	SendFormatted(html, plaintext string) error
}

// Bot handles room events.
type Bot struct {
	sender   Sender
	selector Selector
	recorder Recorder
	router   *Router
	now      func() time.Time
}

// Option configures a Bot.
type Option func(*Bot)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Bot) { b.now = now }
}

// New creates a Bot and registers its command handlers.
func New(sender Sender, selector Selector, recorder Recorder, opts ...Option) *Bot {
	b := &Bot{
		sender:   sender,
		selector: selector,
		recorder: recorder,
		router:   NewRouter(CommandPrefix),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}

	b.router.Register("bot-check", b.handleBotCheck)
	b.router.Register("memory", b.handleMemory)
	b.router.Register("date", b.handleDate)
	b.router.Register("message", b.handleMessage)
	return b
}

// HandleEvent processes one room message: it is archived first, then
// routed as a command if it carries the prefix. The Matrix client has
// already filtered out the bot's own messages.
func (b *Bot) HandleEvent(ctx context.Context, evt *event.Event) {
	ctx = trace.WithTraceID(ctx, trace.GenerateID())

	body := evt.Content.AsMessage().Body

	if err := b.recorder.Record(ctx, eventToRecord(evt, body)); err != nil {
		// Recording is retried on the next event at worst; a dropped
		// archive entry must not break command handling.
		slog.Error("failed to archive message", "event", evt.ID, "trace", trace.FromContext(ctx), "err", err)
	}

	reply, err := b.router.Route(ctx, body)
	if errors.Is(err, ErrNotACommand) {
		return
	}
	if err != nil {
		slog.Error("command failed", "trace", trace.FromContext(ctx), "err", err)
		reply = "Something went wrong, try again in a bit."
	}
	if reply != "" {
		if err := b.sender.SendNotice(reply); err != nil {
			slog.Error("failed to send reply", "trace", trace.FromContext(ctx), "err", err)
		}
	}
}

// PostDaily publishes the scheduled memory of the day.
func (b *Bot) PostDaily(ctx context.Context) {
	b.sendMemory(ctx, "Message of the day")
}

func (b *Bot) handleBotCheck(ctx context.Context, cmd *Command) (string, error) {
	return "The bot is alive!!!", nil
}

func (b *Bot) handleDate(ctx context.Context, cmd *Command) (string, error) {
	return fmt.Sprintf("Today's date is %s", model.DateOf(b.now())), nil
}

func (b *Bot) handleMemory(ctx context.Context, cmd *Command) (string, error) {
	b.sendMemory(ctx, "")
	return "", nil
}

func (b *Bot) handleMessage(ctx context.Context, cmd *Command) (string, error) {
	if len(cmd.Args) < 1 {
		return "Usage: $message <key>", nil
	}
	key := cmd.Args[0]

	msg, err := b.selector.ByID(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("Unable to find message with id %s", key), nil
	}
	if err != nil {
		return "", err
	}

	b.sendCard(ctx, msg, "")
	return "", nil
}

// sendMemory picks today's memory and posts its card, degrading to a
// neutral notice when the archive has nothing for this date.
func (b *Bot) sendMemory(ctx context.Context, text string) {
	msg, err := b.selector.Today(ctx)
	if errors.Is(err, sampler.ErrNoCandidates) || errors.Is(err, sampler.ErrZeroTotalWeight) {
		if err := b.sender.SendNotice("No memory today — nothing worth remembering happened on this date."); err != nil {
			slog.Error("failed to send notice", "trace", trace.FromContext(ctx), "err", err)
		}
		return
	}
	if err != nil {
		slog.Error("failed to select memory", "trace", trace.FromContext(ctx), "err", err)
		if err := b.sender.SendNotice("Couldn't dig up a memory right now, try again later."); err != nil {
			slog.Error("failed to send notice", "trace", trace.FromContext(ctx), "err", err)
		}
		return
	}

	b.sendCard(ctx, msg, text)
}

func (b *Bot) sendCard(ctx context.Context, msg model.Message, text string) {
	card := render.BuildCard(msg, b.now())
	html, plain := card.HTML(), card.Plaintext()
	if text != "" {
		html = "<p>" + text + "</p>" + html
		plain = text + "\n" + plain
	}
	if err := b.sender.SendFormatted(html, plain); err != nil {
		slog.Error("failed to send memory card", "trace", trace.FromContext(ctx), "message", msg.ID, "err", err)
	}
}

// eventToRecord maps a Matrix room event onto the archive's event shape.
// Matrix has no server/channel split, so the room stands in as a channel
// belonging to the sender's homeserver.
func eventToRecord(evt *event.Event, body string) syncwriter.Event {
	sender := evt.Sender.String()
	localpart := strings.TrimPrefix(sender, "@")
	homeserver := ""
	if i := strings.Index(localpart, ":"); i >= 0 {
		homeserver = localpart[i+1:]
		localpart = localpart[:i]
	}

	return syncwriter.Event{
		MessageID:      evt.ID.String(),
		Content:        body,
		Timestamp:      time.UnixMilli(evt.Timestamp),
		AuthorID:       sender,
		AuthorUsername: localpart,
		AuthorNickname: localpart,
		ChannelID:      evt.RoomID.String(),
		ChannelName:    evt.RoomID.String(),
		ServerID:       homeserver,
		ServerName:     homeserver,
	}
}
