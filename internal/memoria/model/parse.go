package model

import (
	"fmt"
	"time"
)

// RawMessage is a message document as returned by the store, with the
// sender and channel documents already dereferenced. Field presence and
// types are unchecked until ParseMessage runs.
type RawMessage struct {
	Fields  map[string]any
	Sender  map[string]any
	Channel map[string]any
}

// MalformedRecordError reports a stored document that cannot be parsed into
// the domain model. Bulk scans skip these records; point lookups surface
// them directly.
type MalformedRecordError struct {
	Kind   string // "person", "channel" or "message"
	ID     string // best-effort identity of the offending record
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed %s record: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("malformed %s record %q: %s", e.Kind, e.ID, e.Reason)
}

func malformed(kind, id, format string, args ...any) *MalformedRecordError {
	return &MalformedRecordError{Kind: kind, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// stringField extracts a required string field from a raw document.
func stringField(doc map[string]any, name string) (string, bool) {
	v, ok := doc[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// bestEffortID pulls the identity field out of a raw document for error
// reporting, tolerating its absence.
func bestEffortID(doc map[string]any, name string) string {
	id, _ := stringField(doc, name)
	return id
}

// ParsePerson converts a raw person document into a Person. Every field is
// required; a missing or mistyped field yields a MalformedRecordError.
func ParsePerson(doc map[string]any) (Person, error) {
	if doc == nil {
		return Person{}, malformed("person", "", "document is absent")
	}
	id := bestEffortID(doc, "discord_id")
	var p Person
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"discord_id", &p.ID},
		{"username", &p.Username},
		{"nickname", &p.Nickname},
		{"color", &p.Color},
		{"avatar", &p.Avatar},
	} {
		s, ok := stringField(doc, f.name)
		if !ok {
			return Person{}, malformed("person", id, "missing or non-string field %q", f.name)
		}
		*f.dst = s
	}
	return p, nil
}

// ParseChannel converts a raw channel document into a Channel.
func ParseChannel(doc map[string]any) (Channel, error) {
	if doc == nil {
		return Channel{}, malformed("channel", "", "document is absent")
	}
	id := bestEffortID(doc, "channel_id")
	var c Channel
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"channel_id", &c.ID},
		{"server_id", &c.ServerID},
		{"server_name", &c.ServerName},
		{"channel_name", &c.Name},
		{"icon", &c.Icon},
	} {
		s, ok := stringField(doc, f.name)
		if !ok {
			return Channel{}, malformed("channel", id, "missing or non-string field %q", f.name)
		}
		*f.dst = s
	}
	return c, nil
}

// ParseMessage converts a raw message document, together with its
// dereferenced sender and channel documents, into a Message. The timestamp
// is normalized into the reference timezone.
func ParseMessage(raw RawMessage) (Message, error) {
	if raw.Fields == nil {
		return Message{}, malformed("message", "", "document is absent")
	}
	id := bestEffortID(raw.Fields, "discord_id")

	sender, err := ParsePerson(raw.Sender)
	if err != nil {
		return Message{}, malformed("message", id, "sender: %v", err)
	}
	channel, err := ParseChannel(raw.Channel)
	if err != nil {
		return Message{}, malformed("message", id, "channel: %v", err)
	}

	msgID, ok := stringField(raw.Fields, "discord_id")
	if !ok || msgID == "" {
		return Message{}, malformed("message", id, "missing or non-string field %q", "discord_id")
	}
	content, ok := stringField(raw.Fields, "content")
	if !ok {
		return Message{}, malformed("message", msgID, "missing or non-string field %q", "content")
	}
	ts, ok := raw.Fields["ts"].(time.Time)
	if !ok {
		return Message{}, malformed("message", msgID, "missing or non-timestamp field %q", "ts")
	}

	attachments, err := parseAttachments(raw.Fields["attachments"], msgID)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:          msgID,
		Sender:      sender,
		Channel:     channel,
		Content:     content,
		Timestamp:   ts.In(Location()),
		Attachments: attachments,
	}, nil
}

func parseAttachments(v any, msgID string) ([]Attachment, error) {
	if v == nil {
		return nil, nil
	}
	docs, ok := v.([]map[string]any)
	if !ok {
		return nil, malformed("message", msgID, "field %q is not a list of documents", "attachments")
	}
	attachments := make([]Attachment, 0, len(docs))
	for i, doc := range docs {
		url, ok := stringField(doc, "url")
		if !ok {
			return nil, malformed("message", msgID, "attachments[%d]: missing or non-string field %q", i, "url")
		}
		name, ok := stringField(doc, "name")
		if !ok {
			return nil, malformed("message", msgID, "attachments[%d]: missing or non-string field %q", i, "name")
		}
		attachments = append(attachments, Attachment{URL: url, Name: name})
	}
	return attachments, nil
}
