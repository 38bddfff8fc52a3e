// Package app assembles the memoria bot: store, cache, selector, sync
// writer, Matrix client and the daily posting schedule.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knifekeroppi/memoria/common/retry"
	"github.com/knifekeroppi/memoria/internal/memoria/bot"
	"github.com/knifekeroppi/memoria/internal/memoria/cache"
	"github.com/knifekeroppi/memoria/internal/memoria/matrix"
	"github.com/knifekeroppi/memoria/internal/memoria/model"
	"github.com/knifekeroppi/memoria/internal/memoria/scoring"
	"github.com/knifekeroppi/memoria/internal/memoria/selector"
	"github.com/knifekeroppi/memoria/internal/memoria/store"
	"github.com/knifekeroppi/memoria/internal/memoria/syncwriter"
)

// Config holds application configuration.
type Config struct {
	DatabasePath string
	Matrix       matrix.Config
	// ScoringPolicyPath optionally points at a YAML scoring policy.
	// Empty means the built-in defaults.
	ScoringPolicyPath string
	// PostHour and PostMinute schedule the daily memory post, in the
	// reference timezone.
	PostHour   int
	PostMinute int
	// StartYear overrides the first year of the historical scan when
	// non-zero.
	StartYear int
}

// App is the running application.
type App struct {
	config *Config
	store  *store.Store
	matrix *matrix.Client
	bot    *bot.Bot
}

// New wires the application together from config.
func New(config *Config) (*App, error) {
	st, err := store.Open(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	policy, err := scoring.LoadPolicy(config.ScoringPolicyPath)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("load scoring policy: %w", err)
	}

	cacheOpts := []cache.Option{cache.WithRetry(retry.DefaultConfig)}
	if config.StartYear != 0 {
		cacheOpts = append(cacheOpts, cache.WithStartYear(config.StartYear))
	}
	todayCache := cache.New(st, cacheOpts...)

	sel := selector.New(todayCache, st, scoring.NewScorer(policy))
	writer := syncwriter.New(st)

	mxConfig := config.Matrix
	mxConfig.DB = st.DB()
	mx, err := matrix.New(&mxConfig)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create Matrix client: %w", err)
	}

	return &App{
		config: config,
		store:  st,
		matrix: mx,
		bot:    bot.New(mx, sel, writer),
	}, nil
}

// Run starts the Matrix sync and the daily post schedule, then blocks
// until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("starting Matrix sync")
	if err := a.matrix.Start(ctx, a.bot.HandleEvent); err != nil {
		return fmt.Errorf("start Matrix client: %w", err)
	}

	go a.runSchedule(ctx)

	if err := a.matrix.SendNotice("Memory bot is up. Type $memory for a memory."); err != nil {
		slog.Warn("startup notice failed", "err", err)
	}

	slog.Info("memoria is running; press Ctrl+C to stop",
		"post_time", fmt.Sprintf("%02d:%02d", a.config.PostHour, a.config.PostMinute))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return nil
}

// Stop releases the Matrix connection and the store.
func (a *App) Stop() {
	a.matrix.Stop()
	if err := a.store.Close(); err != nil {
		slog.Warn("closing store", "err", err)
	}
}

// runSchedule checks once a minute whether the reference-timezone clock
// has reached the daily post time. The lastPosted guard keeps a slow tick
// or a clock adjustment from double-posting within the same day.
func (a *App) runSchedule(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	var lastPosted model.Date
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().In(model.Location())
			if now.Hour() != a.config.PostHour || now.Minute() != a.config.PostMinute {
				continue
			}
			today := model.DateOf(now)
			if today == lastPosted {
				continue
			}
			lastPosted = today
			slog.Info("posting scheduled memory", "date", today.String())
			a.bot.PostDaily(ctx)
		}
	}
}
