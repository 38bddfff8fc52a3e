// Package syncwriter normalizes incoming message events into the archive's
// three collections and upserts them, throttling the expensive drift checks
// on mutable person and channel fields.
package syncwriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/store"
)

// Store is the write side of the message store.
type Store interface {
	GetEntity(ctx context.Context, kind store.Kind, id string) (map[string]any, error)
	Insert(ctx context.Context, kind store.Kind, id string, fields map[string]any) error
	UpdateFields(ctx context.Context, kind store.Kind, id string, fields map[string]any) error
}

// Event is a raw message-authored event as delivered by the chat platform
// or the archive importer.
type Event struct {
	MessageID string
	Content   string
	Timestamp time.Time

	AuthorID       string
	AuthorUsername string
	AuthorNickname string
	AuthorColor    string
	AuthorAvatar   string

	ChannelID   string
	ChannelName string
	ServerID    string
	ServerName  string
	ServerIcon  string

	Attachments []model.Attachment
}

// SyncFailure wraps a store failure with the entity kind and key that was
// being written. Record calls are idempotent, so callers may retry the
// whole event.
type SyncFailure struct {
	Kind store.Kind
	Key  string
	Err  error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("sync %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *SyncFailure) Unwrap() error {
	return e.Err
}

// DefaultDriftCheckRate is the probability that an upsert of an existing
// entity compares its mutable fields against the incoming event. Checking
// on every message would pay a read-compare-write per event for drift that
// happens maybe once a month; one roll in five corrects it soon enough.
const DefaultDriftCheckRate = 0.2

// Throttle reports whether a drift check should run this time.
type Throttle func() bool

// Writer records message events into the store.
type Writer struct {
	store    Store
	throttle Throttle
}

// Option configures a Writer.
type Option func(*Writer)

// WithThrottle replaces the drift-check throttle, letting tests force
// checks on or off deterministically.
func WithThrottle(t Throttle) Option {
	return func(w *Writer) { w.throttle = t }
}

// New creates a Writer with the default 1-in-5 drift-check throttle.
func New(s Store, opts ...Option) *Writer {
	w := &Writer{
		store:    s,
		throttle: RandomThrottle(DefaultDriftCheckRate, time.Now().UnixNano()),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Record normalizes one event and writes its channel, person and message
// to the store. Re-running Record for an already-recorded event performs
// the entity reads and no-ops the writes.
func (w *Writer) Record(ctx context.Context, evt Event) error {
	channel := model.Channel{
		ID:         evt.ChannelID,
		ServerID:   evt.ServerID,
		ServerName: evt.ServerName,
		Name:       evt.ChannelName,
		Icon:       evt.ServerIcon,
	}
	person := model.Person{
		ID:       evt.AuthorID,
		Username: evt.AuthorUsername,
		Nickname: evt.AuthorNickname,
		Color:    evt.AuthorColor,
		Avatar:   evt.AuthorAvatar,
	}

	if err := w.upsertChannel(ctx, channel); err != nil {
		return err
	}
	if err := w.upsertPerson(ctx, person); err != nil {
		return err
	}
	return w.insertMessage(ctx, evt)
}

// upsertChannel inserts a new channel, or reconciles a stored channel's
// mutable fields when the throttle fires.
func (w *Writer) upsertChannel(ctx context.Context, ch model.Channel) error {
	stored, err := w.store.GetEntity(ctx, store.KindChannels, ch.ID)
	if errors.Is(err, store.ErrNotFound) {
		if err := w.store.Insert(ctx, store.KindChannels, ch.ID, map[string]any{
			"server_id":    ch.ServerID,
			"server_name":  ch.ServerName,
			"channel_name": ch.Name,
			"icon":         ch.Icon,
		}); err != nil {
			return &SyncFailure{Kind: store.KindChannels, Key: ch.ID, Err: err}
		}
		return nil
	}
	if err != nil {
		return &SyncFailure{Kind: store.KindChannels, Key: ch.ID, Err: err}
	}

	if !w.throttle() {
		return nil
	}

	diff := fieldDiff(stored, map[string]any{
		"server_name":  ch.ServerName,
		"channel_name": ch.Name,
		"icon":         ch.Icon,
	})
	if len(diff) == 0 {
		return nil
	}
	slog.Debug("channel drift detected", "channel", ch.ID, "fields", len(diff))
	if err := w.store.UpdateFields(ctx, store.KindChannels, ch.ID, diff); err != nil {
		return &SyncFailure{Kind: store.KindChannels, Key: ch.ID, Err: err}
	}
	return nil
}

// upsertPerson is the same throttled-drift pattern for people. Username and
// id are identity and never rewritten.
func (w *Writer) upsertPerson(ctx context.Context, p model.Person) error {
	stored, err := w.store.GetEntity(ctx, store.KindPeople, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		if err := w.store.Insert(ctx, store.KindPeople, p.ID, map[string]any{
			"username": p.Username,
			"nickname": p.Nickname,
			"color":    p.Color,
			"avatar":   p.Avatar,
		}); err != nil {
			return &SyncFailure{Kind: store.KindPeople, Key: p.ID, Err: err}
		}
		return nil
	}
	if err != nil {
		return &SyncFailure{Kind: store.KindPeople, Key: p.ID, Err: err}
	}

	if !w.throttle() {
		return nil
	}

	diff := fieldDiff(stored, map[string]any{
		"nickname": p.Nickname,
		"color":    p.Color,
		"avatar":   p.Avatar,
	})
	if len(diff) == 0 {
		return nil
	}
	slog.Debug("person drift detected", "person", p.ID, "fields", len(diff))
	if err := w.store.UpdateFields(ctx, store.KindPeople, p.ID, diff); err != nil {
		return &SyncFailure{Kind: store.KindPeople, Key: p.ID, Err: err}
	}
	return nil
}

// insertMessage always writes: messages are immutable, and the store
// no-ops inserts of existing ids.
func (w *Writer) insertMessage(ctx context.Context, evt Event) error {
	attachments := make([]map[string]any, len(evt.Attachments))
	for i, a := range evt.Attachments {
		attachments[i] = map[string]any{"url": a.URL, "name": a.Name}
	}

	err := w.store.Insert(ctx, store.KindMessages, evt.MessageID, map[string]any{
		"sender":      evt.AuthorID,
		"channel":     evt.ChannelID,
		"content":     evt.Content,
		"ts":          evt.Timestamp,
		"attachments": attachments,
	})
	if err != nil {
		return &SyncFailure{Kind: store.KindMessages, Key: evt.MessageID, Err: err}
	}
	return nil
}

// fieldDiff returns the entries of want whose stored values differ.
func fieldDiff(stored, want map[string]any) map[string]any {
	diff := make(map[string]any)
	for field, v := range want {
		if stored[field] != v {
			diff[field] = v
		}
	}
	return diff
}
