package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knifekeroppi/memoria/common/retry"
	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/syncwriter"
)

// Recorder archives one normalized message event.
type Recorder interface {
	Record(ctx context.Context, evt syncwriter.Event) error
}

// Importer feeds export files through the same normalize-and-upsert path
// live messages take.
type Importer struct {
	recorder Recorder
	retry    retry.Config
}

// NewImporter creates an Importer. Store writes are retried with the
// default backoff; a multi-hour backfill should not die on one transient
// error.
func NewImporter(recorder Recorder) *Importer {
	return &Importer{recorder: recorder, retry: retry.DefaultConfig}
}

// ImportDir imports every .json file in dir, returning the total number of
// messages recorded.
func (im *Importer) ImportDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("archive: read export directory: %w", err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		slog.Info("importing export file", "file", path)
		n, err := im.ImportFile(ctx, path)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportFile imports a single export file, returning the number of
// messages recorded before any error.
func (im *Importer) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("archive: read export file: %w", err)
	}

	export, err := ParseExport(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	for i, msg := range export.Messages {
		evt, err := exportEvent(export, msg)
		if err != nil {
			return i, fmt.Errorf("%s: message %q: %w", path, msg.ID, err)
		}

		err = retry.Do(ctx, im.retry, func() error {
			return im.recorder.Record(ctx, evt)
		})
		if err != nil {
			return i, fmt.Errorf("%s: record message %q: %w", path, msg.ID, err)
		}

		if i > 0 && i%1000 == 0 {
			slog.Info("import progress", "file", path, "done", i, "total", len(export.Messages))
		}
	}

	return len(export.Messages), nil
}

func exportEvent(export *Export, msg ExportMessage) (syncwriter.Event, error) {
	ts, err := ParseTimestamp(msg.Timestamp)
	if err != nil {
		return syncwriter.Event{}, err
	}

	attachments := make([]model.Attachment, len(msg.Attachments))
	for i, a := range msg.Attachments {
		attachments[i] = model.Attachment{URL: a.URL, Name: a.FileName}
	}

	return syncwriter.Event{
		MessageID:      msg.ID,
		Content:        msg.Content,
		Timestamp:      ts,
		AuthorID:       msg.Author.ID,
		AuthorUsername: msg.Author.Name,
		AuthorNickname: msg.Author.Nickname,
		AuthorColor:    msg.Author.Color,
		AuthorAvatar:   msg.Author.AvatarURL,
		ChannelID:      export.Channel.ID,
		ChannelName:    export.Channel.Name,
		ServerID:       export.Guild.ID,
		ServerName:     export.Guild.Name,
		ServerIcon:     export.Guild.IconURL,
		Attachments:    attachments,
	}, nil
}
