package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/sampler"
	"github.com/knifekeroppi/memoria/internal/memoria/store"
	"github.com/knifekeroppi/memoria/internal/memoria/syncwriter"
)

type fakeSender struct {
	notices   []string
	formatted []string // html bodies
}

func (f *fakeSender) SendNotice(message string) error {
	f.notices = append(f.notices, message)
	return nil
}

func (f *fakeSender) SendFormatted(html, plaintext string) error {
	f.formatted = append(f.formatted, html)
	return nil
}

type fakeSelector struct {
	todayMsg model.Message
	todayErr error
	byID     map[string]model.Message
}

func (f *fakeSelector) Today(ctx context.Context) (model.Message, error) {
	return f.todayMsg, f.todayErr
}

func (f *fakeSelector) ByID(ctx context.Context, key string) (model.Message, error) {
	msg, ok := f.byID[key]
	if !ok {
		return model.Message{}, store.ErrNotFound
	}
	return msg, nil
}

type fakeRecorder struct {
	events []syncwriter.Event
	err    error
}

func (f *fakeRecorder) Record(ctx context.Context, evt syncwriter.Event) error {
	f.events = append(f.events, evt)
	return f.err
}

func testMessage() model.Message {
	return model.Message{
		ID:      "msg-1",
		Content: "we should open a pizzeria",
		Sender: model.Person{
			ID: "user-1", Username: "anaru", Nickname: "Anaru",
			Color: "#aa00ff", Avatar: "https://cdn.example/a.png",
		},
		Channel: model.Channel{
			ID: "chan-1", ServerID: "srv-1", ServerName: "pizzeria",
			Name: "general", Icon: "https://cdn.example/i.png",
		},
		Timestamp: time.Date(2021, time.May, 6, 15, 30, 0, 0, model.Location()),
	}
}

func roomEvent(body string) *event.Event {
	return &event.Event{
		ID:        id.EventID("$evt-1"),
		Sender:    id.UserID("@anaru:example.org"),
		RoomID:    id.RoomID("!room:example.org"),
		Timestamp: time.Date(2024, time.May, 6, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Content: event.Content{
			Parsed: &event.MessageEventContent{MsgType: event.MsgText, Body: body},
		},
	}
}

func newTestBot(sender *fakeSender, selector *fakeSelector, recorder *fakeRecorder) *Bot {
	fixed := func() time.Time {
		return time.Date(2024, time.May, 6, 9, 0, 0, 0, model.Location())
	}
	return New(sender, selector, recorder, WithClock(fixed))
}

func TestHandleEvent_ArchivesEveryMessage(t *testing.T) {
	sender := &fakeSender{}
	recorder := &fakeRecorder{}
	b := newTestBot(sender, &fakeSelector{}, recorder)

	b.HandleEvent(context.Background(), roomEvent("just chatting, not a command"))

	if len(recorder.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(recorder.events))
	}
	evt := recorder.events[0]
	if evt.MessageID != "$evt-1" {
		t.Errorf("MessageID: got %q", evt.MessageID)
	}
	if evt.AuthorID != "@anaru:example.org" {
		t.Errorf("AuthorID: got %q", evt.AuthorID)
	}
	if evt.AuthorUsername != "anaru" {
		t.Errorf("AuthorUsername: got %q", evt.AuthorUsername)
	}
	if evt.ServerID != "example.org" {
		t.Errorf("ServerID: got %q", evt.ServerID)
	}
	if len(sender.notices)+len(sender.formatted) != 0 {
		t.Errorf("non-command message drew a reply: %v %v", sender.notices, sender.formatted)
	}
}

func TestHandleEvent_BotCheck(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{}, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$bot-check"))

	if len(sender.notices) != 1 || sender.notices[0] != "The bot is alive!!!" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestHandleEvent_Date(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{}, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$date"))

	if len(sender.notices) != 1 || sender.notices[0] != "Today's date is 2024-05-06" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestHandleEvent_MemorySendsCard(t *testing.T) {
	sender := &fakeSender{}
	selector := &fakeSelector{todayMsg: testMessage()}
	b := newTestBot(sender, selector, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$memory"))

	if len(sender.formatted) != 1 {
		t.Fatalf("formatted sends: got %d, want 1", len(sender.formatted))
	}
	if !strings.Contains(sender.formatted[0], "On this day 3 years ago") {
		t.Errorf("card html: got %q", sender.formatted[0])
	}
}

func TestHandleEvent_MemoryEmptyArchive(t *testing.T) {
	for _, cause := range []error{sampler.ErrNoCandidates, sampler.ErrZeroTotalWeight} {
		sender := &fakeSender{}
		b := newTestBot(sender, &fakeSelector{todayErr: cause}, &fakeRecorder{})

		b.HandleEvent(context.Background(), roomEvent("$memory"))

		if len(sender.notices) != 1 || !strings.HasPrefix(sender.notices[0], "No memory today") {
			t.Errorf("%v: notices: got %v", cause, sender.notices)
		}
		if len(sender.formatted) != 0 {
			t.Errorf("%v: unexpected card send", cause)
		}
	}
}

func TestHandleEvent_MessageByID(t *testing.T) {
	sender := &fakeSender{}
	selector := &fakeSelector{byID: map[string]model.Message{"msg-1": testMessage()}}
	b := newTestBot(sender, selector, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$message msg-1"))

	if len(sender.formatted) != 1 {
		t.Fatalf("formatted sends: got %d, want 1", len(sender.formatted))
	}
}

func TestHandleEvent_MessageMissingArg(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{}, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$message"))

	if len(sender.notices) != 1 || sender.notices[0] != "Usage: $message <key>" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestHandleEvent_MessageUnknownID(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{byID: map[string]model.Message{}}, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$message ghost"))

	if len(sender.notices) != 1 || sender.notices[0] != "Unable to find message with id ghost" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestHandleEvent_UnknownCommand(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{}, &fakeRecorder{})

	b.HandleEvent(context.Background(), roomEvent("$nope"))

	if len(sender.notices) != 1 || sender.notices[0] != "Unknown command $nope" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestHandleEvent_RecorderFailureDoesNotBlockCommands(t *testing.T) {
	sender := &fakeSender{}
	recorder := &fakeRecorder{err: context.DeadlineExceeded}
	b := newTestBot(sender, &fakeSelector{}, recorder)

	b.HandleEvent(context.Background(), roomEvent("$bot-check"))

	if len(sender.notices) != 1 || sender.notices[0] != "The bot is alive!!!" {
		t.Errorf("notices: got %v", sender.notices)
	}
}

func TestPostDaily_PrependsHeading(t *testing.T) {
	sender := &fakeSender{}
	b := newTestBot(sender, &fakeSelector{todayMsg: testMessage()}, &fakeRecorder{})

	b.PostDaily(context.Background())

	if len(sender.formatted) != 1 {
		t.Fatalf("formatted sends: got %d, want 1", len(sender.formatted))
	}
	if !strings.Contains(sender.formatted[0], "Message of the day") {
		t.Errorf("card html: got %q", sender.formatted[0])
	}
}
