package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knifekeroppi/memoria/internal/memoria/model"
)

// Kind names one of the archive's collections.
type Kind string

const (
	KindPeople   Kind = "people"
	KindChannels Kind = "channels"
	KindMessages Kind = "messages"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("store: not found")

// entityColumns maps document field names to table columns per collection.
// The id field is handled separately (it is the primary key argument).
var entityColumns = map[Kind]struct {
	idField string
	fields  []string // document field == column name
}{
	KindPeople:   {idField: "discord_id", fields: []string{"username", "nickname", "color", "avatar"}},
	KindChannels: {idField: "channel_id", fields: []string{"server_id", "server_name", "channel_name", "icon"}},
}

// mutableFields are the only fields UpdateFields will touch. Identity
// fields are immutable once a document exists.
var mutableFields = map[Kind]map[string]bool{
	KindPeople:   {"nickname": true, "color": true, "avatar": true},
	KindChannels: {"server_name": true, "channel_name": true, "icon": true},
}

// GetEntity loads one person or channel document by its identity key.
// Returns ErrNotFound when no such document exists.
func (s *Store) GetEntity(ctx context.Context, kind Kind, id string) (map[string]any, error) {
	spec, ok := entityColumns[kind]
	if !ok {
		return nil, fmt.Errorf("store: kind %q does not support entity lookup", kind)
	}

	cols := strings.Join(spec.fields, ", ")
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", cols, kind), id)

	values := make([]string, len(spec.fields))
	dests := make([]any, len(spec.fields))
	for i := range values {
		dests[i] = &values[i]
	}
	if err := row.Scan(dests...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s %q: %w", kind, id, err)
	}

	doc := make(map[string]any, len(spec.fields)+1)
	doc[spec.idField] = id
	for i, f := range spec.fields {
		doc[f] = values[i]
	}
	return doc, nil
}

// Insert writes a new document. Inserting an id that already exists is a
// no-op, which keeps re-played sync events harmless.
func (s *Store) Insert(ctx context.Context, kind Kind, id string, fields map[string]any) error {
	if kind == KindMessages {
		return s.insertMessage(ctx, id, fields)
	}

	spec, ok := entityColumns[kind]
	if !ok {
		return fmt.Errorf("store: unknown kind %q", kind)
	}

	args := []any{id}
	for _, f := range spec.fields {
		v, ok := fields[f].(string)
		if !ok {
			return fmt.Errorf("insert %s %q: missing or non-string field %q", kind, id, f)
		}
		args = append(args, v)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (%s) ON CONFLICT(id) DO NOTHING",
			kind, strings.Join(spec.fields, ", "), placeholders),
		args...)
	if err != nil {
		return fmt.Errorf("insert %s %q: %w", kind, id, err)
	}
	return nil
}

func (s *Store) insertMessage(ctx context.Context, id string, fields map[string]any) error {
	sender, ok := fields["sender"].(string)
	if !ok {
		return fmt.Errorf("insert message %q: missing or non-string field %q", id, "sender")
	}
	channel, ok := fields["channel"].(string)
	if !ok {
		return fmt.Errorf("insert message %q: missing or non-string field %q", id, "channel")
	}
	content, ok := fields["content"].(string)
	if !ok {
		return fmt.Errorf("insert message %q: missing or non-string field %q", id, "content")
	}
	ts, ok := fields["ts"].(time.Time)
	if !ok {
		return fmt.Errorf("insert message %q: missing or non-timestamp field %q", id, "ts")
	}

	attachments := fields["attachments"]
	if attachments == nil {
		attachments = []map[string]any{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("insert message %q: encode attachments: %w", id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, channel_id, content, ts, attachments)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, sender, channel, content, ts.UTC().UnixMicro(), string(attachmentsJSON))
	if err != nil {
		return fmt.Errorf("insert message %q: %w", id, err)
	}
	return nil
}

// UpdateFields writes only the given mutable fields of an existing person
// or channel document. Attempting to rewrite an identity field is an error.
func (s *Store) UpdateFields(ctx context.Context, kind Kind, id string, fields map[string]any) error {
	mutable, ok := mutableFields[kind]
	if !ok {
		return fmt.Errorf("store: kind %q does not support field updates", kind)
	}
	if len(fields) == 0 {
		return nil
	}

	var sets []string
	var args []any
	for f, v := range fields {
		if !mutable[f] {
			return fmt.Errorf("update %s %q: field %q is not mutable", kind, id, f)
		}
		sv, ok := v.(string)
		if !ok {
			return fmt.Errorf("update %s %q: non-string value for field %q", kind, id, f)
		}
		sets = append(sets, f+" = ?")
		args = append(args, sv)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", kind, strings.Join(sets, ", ")),
		args...)
	if err != nil {
		return fmt.Errorf("update %s %q: %w", kind, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update %s %q: %w", kind, id, ErrNotFound)
	}
	return nil
}

const rawMessageSelect = `
	SELECT m.id, m.content, m.ts, m.attachments,
	       p.id, p.username, p.nickname, p.color, p.avatar,
	       c.id, c.server_id, c.server_name, c.channel_name, c.icon
	FROM messages m
	LEFT JOIN people p ON p.id = m.sender_id
	LEFT JOIN channels c ON c.id = m.channel_id
`

// MessagesOn returns every message whose timestamp falls inside
// [start, end], with sender and channel documents dereferenced. Records
// whose references dangle are still returned; the model layer decides they
// are malformed.
func (s *Store) MessagesOn(ctx context.Context, start, end time.Time) ([]model.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		rawMessageSelect+"WHERE m.ts >= ? AND m.ts <= ? ORDER BY m.ts, m.id",
		start.UTC().UnixMicro(), end.UTC().UnixMicro())
	if err != nil {
		return nil, fmt.Errorf("query messages %s..%s: %w", start.Format(time.RFC3339), end.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var raws []model.RawMessage
	for rows.Next() {
		raw, err := scanRawMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		raws = append(raws, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return raws, nil
}

// MessageByID loads a single message with its references dereferenced.
// Returns ErrNotFound when the id is unknown.
func (s *Store) MessageByID(ctx context.Context, id string) (model.RawMessage, error) {
	row := s.db.QueryRowContext(ctx, rawMessageSelect+"WHERE m.id = ?", id)
	raw, err := scanRawMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RawMessage{}, fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.RawMessage{}, fmt.Errorf("get message %q: %w", id, err)
	}
	return raw, nil
}

// scanRawMessage maps one joined row into a RawMessage. Missing sender or
// channel rows yield nil sub-documents rather than errors.
func scanRawMessage(scan func(...any) error) (model.RawMessage, error) {
	var (
		id, content     string
		tsMicro         int64
		attachmentsJSON string
		senderID        sql.NullString
		username        sql.NullString
		nickname        sql.NullString
		color           sql.NullString
		avatar          sql.NullString
		channelID       sql.NullString
		serverID        sql.NullString
		serverName      sql.NullString
		channelName     sql.NullString
		icon            sql.NullString
	)
	if err := scan(&id, &content, &tsMicro, &attachmentsJSON,
		&senderID, &username, &nickname, &color, &avatar,
		&channelID, &serverID, &serverName, &channelName, &icon); err != nil {
		return model.RawMessage{}, err
	}

	fields := map[string]any{
		"discord_id": id,
		"content":    content,
		"ts":         time.UnixMicro(tsMicro).UTC(),
	}

	// Attachments are stored as JSON. Leave undecodable payloads in the
	// document as-is so the parse layer classifies the record as malformed
	// instead of failing the whole scan.
	var attachments []map[string]any
	if err := json.Unmarshal([]byte(attachmentsJSON), &attachments); err != nil {
		fields["attachments"] = attachmentsJSON
	} else {
		fields["attachments"] = attachments
	}

	raw := model.RawMessage{Fields: fields}
	if senderID.Valid {
		raw.Sender = map[string]any{
			"discord_id": senderID.String,
			"username":   username.String,
			"nickname":   nickname.String,
			"color":      color.String,
			"avatar":     avatar.String,
		}
	}
	if channelID.Valid {
		raw.Channel = map[string]any{
			"channel_id":   channelID.String,
			"server_id":    serverID.String,
			"server_name":  serverName.String,
			"channel_name": channelName.String,
			"icon":         icon.String,
		}
	}
	return raw, nil
}
