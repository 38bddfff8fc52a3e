// Package archive ingests Discord chat-export files (the JSON produced by
// DiscordChatExporter) into the message store, one file per channel.
package archive

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed export.schema.json
var exportSchemaJSON string

var exportSchema = jsonschema.MustCompileString("export.schema.json", exportSchemaJSON)

// Export is one channel export file.
type Export struct {
	Guild    Guild           `json:"guild"`
	Channel  ExportChannel   `json:"channel"`
	Messages []ExportMessage `json:"messages"`
}

// Guild identifies the server a channel belongs to. Direct-message exports
// carry the sentinel guild id "0".
type Guild struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl"`
}

// ExportChannel identifies the exported channel.
type ExportChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExportMessage is a single message in an export file.
type ExportMessage struct {
	ID          string             `json:"id"`
	Content     string             `json:"content"`
	Timestamp   string             `json:"timestamp"`
	Author      ExportAuthor       `json:"author"`
	Attachments []ExportAttachment `json:"attachments"`
}

// ExportAuthor is a message author. Nickname and color may be null in the
// export and decode to empty strings.
type ExportAuthor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Nickname  string `json:"nickname"`
	Color     string `json:"color"`
	AvatarURL string `json:"avatarUrl"`
}

// ExportAttachment is a file attached to a message.
type ExportAttachment struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// ParseExport validates data against the export schema and decodes it.
// Schema validation runs first so a wrong or truncated file fails with a
// pointer to the offending field instead of half-decoding silently.
func ParseExport(data []byte) (*Export, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("archive: decode export: %w", err)
	}
	if err := exportSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("archive: export does not match schema: %w", err)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("archive: decode export: %w", err)
	}
	return &export, nil
}

// ParseTimestamp parses an export timestamp (ISO 8601 with offset).
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("archive: parse timestamp %q: %w", s, err)
	}
	return t, nil
}
