// memoria-import backfills the archive database from a directory of
// Discord channel-export JSON files:
//
//	DATABASE_PATH=./memoria.db memoria-import ./exports
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/knifekeroppi/memoria/common/environment"
	"github.com/knifekeroppi/memoria/internal/memoria/archive"
	"github.com/knifekeroppi/memoria/internal/memoria/store"
	"github.com/knifekeroppi/memoria/internal/memoria/syncwriter"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <export-directory>\n", os.Args[0])
		os.Exit(2)
	}
	dir := os.Args[1]

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	st, err := store.Open(environment.StringOr("DATABASE_PATH", "./memoria.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Backfills reconcile every entity they see, not one in five.
	writer := syncwriter.New(st, syncwriter.WithThrottle(syncwriter.AlwaysThrottle))
	importer := archive.NewImporter(writer)

	n, err := importer.ImportDir(ctx, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed after %d messages: %v\n", n, err)
		os.Exit(1)
	}

	slog.Info("import complete", "messages", n)
}
