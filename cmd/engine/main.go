package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"hospital-dispatch/internal/config"
	"hospital-dispatch/internal/db"
	"hospital-dispatch/internal/dispatch"
	"hospital-dispatch/internal/notify"
	"hospital-dispatch/internal/queue"
	"hospital-dispatch/internal/store"
)

// Standalone allocation engine. Runs the same loop the API embeds, for
// deployments that keep allocation out of the web process. Only one
// engine should run against a database at a time; the conditional
// assignment commit keeps concurrent engines safe but wasteful.
func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}
	defer conn.Close()

	st := store.New(conn, cfg.Database.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q := queue.New()
	if n, err := dispatch.Sweep(ctx, st, q); err != nil {
		log.Fatalf("queue rebuild failed: %v", err)
	} else if n > 0 {
		log.Printf("recovered %d pending tickets into the queue", n)
	}

	// Websocket delivery lives in the API process; the standalone
	// engine only sends push notifications.
	sink := notify.NewService(buildPusher(cfg.Notifications), notify.NewHub())

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Engine.SweepSchedule, func() {
		if _, err := dispatch.Sweep(context.Background(), st, q); err != nil {
			log.Printf("sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("invalid sweep schedule %q: %v", cfg.Engine.SweepSchedule, err)
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	engine := dispatch.NewEngine(st, q, sink, dispatch.Config{
		IdlePoll:       cfg.Engine.IdlePoll.Duration,
		Cooldown:       cfg.Engine.Cooldown.Duration,
		Yield:          cfg.Engine.Yield.Duration,
		RequeuePenalty: cfg.Engine.RequeuePenalty,
	})

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("allocation engine: %v", err)
	}
	log.Println("allocation engine stopped")
}

func buildPusher(cfg config.NotificationConfig) notify.Pusher {
	switch cfg.Provider {
	case "pushover":
		return notify.NewPushoverClient(cfg.Pushover.Token)
	case "slack":
		return notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel)
	default:
		return notify.NopPusher{}
	}
}
