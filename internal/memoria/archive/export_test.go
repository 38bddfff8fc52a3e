package archive

import (
	"strings"
	"testing"
	"time"
)

const sampleExport = `{
  "guild": {"id": "srv-1", "name": "pizzeria", "iconUrl": "https://cdn.example/i.png"},
  "channel": {"id": "chan-1", "name": "general"},
  "messages": [
    {
      "id": "msg-1",
      "content": "we should open a pizzeria",
      "timestamp": "2021-05-06T15:30:00-04:00",
      "author": {
        "id": "user-1",
        "name": "anaru",
        "nickname": "Anaru",
        "color": "#aa00ff",
        "avatarUrl": "https://cdn.example/a.png"
      },
      "attachments": [
        {"url": "https://cdn.example/p.png", "fileName": "p.png"}
      ]
    }
  ]
}`

func TestParseExport(t *testing.T) {
	export, err := ParseExport([]byte(sampleExport))
	if err != nil {
		t.Fatalf("ParseExport: %v", err)
	}

	if export.Guild.ID != "srv-1" || export.Guild.Name != "pizzeria" {
		t.Errorf("guild: got %+v", export.Guild)
	}
	if export.Channel.ID != "chan-1" || export.Channel.Name != "general" {
		t.Errorf("channel: got %+v", export.Channel)
	}
	if len(export.Messages) != 1 {
		t.Fatalf("messages: got %d, want 1", len(export.Messages))
	}

	msg := export.Messages[0]
	if msg.Author.Nickname != "Anaru" {
		t.Errorf("nickname: got %q", msg.Author.Nickname)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].FileName != "p.png" {
		t.Errorf("attachments: got %v", msg.Attachments)
	}
}

func TestParseExport_NullableAuthorFields(t *testing.T) {
	data := strings.Replace(sampleExport, `"nickname": "Anaru"`, `"nickname": null`, 1)
	data = strings.Replace(data, `"color": "#aa00ff"`, `"color": null`, 1)

	export, err := ParseExport([]byte(data))
	if err != nil {
		t.Fatalf("ParseExport: %v", err)
	}
	if export.Messages[0].Author.Nickname != "" {
		t.Errorf("null nickname: got %q", export.Messages[0].Author.Nickname)
	}
	if export.Messages[0].Author.Color != "" {
		t.Errorf("null color: got %q", export.Messages[0].Author.Color)
	}
}

func TestParseExport_SchemaRejectsMissingGuild(t *testing.T) {
	data := strings.Replace(sampleExport, `"guild": {"id": "srv-1", "name": "pizzeria", "iconUrl": "https://cdn.example/i.png"},`, "", 1)

	if _, err := ParseExport([]byte(data)); err == nil {
		t.Fatal("expected schema error for export without guild")
	}
}

func TestParseExport_SchemaRejectsWrongMessageShape(t *testing.T) {
	data := strings.Replace(sampleExport, `"id": "msg-1",`, `"id": 1,`, 1)

	if _, err := ParseExport([]byte(data)); err == nil {
		t.Fatal("expected schema error for numeric message id")
	}
}

func TestParseExport_InvalidJSON(t *testing.T) {
	if _, err := ParseExport([]byte(`{"guild":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("2021-05-06T15:30:00-04:00")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	want := time.Date(2021, time.May, 6, 19, 30, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("got %v, want %v", ts, want)
	}

	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatal("expected error for non-timestamp input")
	}
}
