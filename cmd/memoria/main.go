package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knifekeroppi/memoria/common/environment"
	"github.com/knifekeroppi/memoria/common/version"
	"github.com/knifekeroppi/memoria/internal/memoria/app"
	"github.com/knifekeroppi/memoria/internal/memoria/matrix"
)

func main() {
	fmt.Printf("memoria — on this day\n")
	fmt.Printf("Version: %s\n\n", version.Info())

	setupLogging()

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize memoria: %v\n", err)
		os.Exit(1)
	}
	defer a.Stop()

	if err := a.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running memoria: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration from environment variables. Matrix
// credentials and the memory room are required; everything else defaults.
func loadConfig() (*app.Config, error) {
	homeserver, err := environment.RequiredString("MATRIX_HOMESERVER")
	if err != nil {
		return nil, err
	}
	userID, err := environment.RequiredString("MATRIX_USER_ID")
	if err != nil {
		return nil, err
	}
	accessToken, err := environment.RequiredString("MATRIX_ACCESS_TOKEN")
	if err != nil {
		return nil, err
	}
	memoryRoom, err := environment.RequiredString("MEMORIA_ROOM")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		DatabasePath:      environment.StringOr("DATABASE_PATH", "./memoria.db"),
		ScoringPolicyPath: environment.StringOr("MEMORIA_SCORING_POLICY", ""),
		PostHour:          environment.IntOr("MEMORIA_POST_HOUR", 9),
		PostMinute:        environment.IntOr("MEMORIA_POST_MINUTE", 0),
		StartYear:         environment.IntOr("MEMORIA_START_YEAR", 0),
		Matrix: matrix.Config{
			Homeserver:  homeserver,
			UserID:      userID,
			AccessToken: accessToken,
			MemoryRoom:  memoryRoom,
		},
	}, nil
}

// setupLogging installs the default slog handler according to LOG_LEVEL
// and LOG_FORMAT (text or json).
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(environment.StringOr("LOG_LEVEL", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(environment.StringOr("LOG_FORMAT", "text"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
