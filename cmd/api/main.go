package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"hospital-dispatch/internal/config"
	"hospital-dispatch/internal/db"
	"hospital-dispatch/internal/dispatch"
	"hospital-dispatch/internal/intake"
	"hospital-dispatch/internal/middleware"
	"hospital-dispatch/internal/models"
	"hospital-dispatch/internal/notify"
	"hospital-dispatch/internal/queue"
	"hospital-dispatch/internal/store"
	"hospital-dispatch/internal/triage"
)

var (
	// Wired in main; interfaces so handler tests can substitute mocks.
	ticketStore APIStore
	admissions  Submitter
	hub         *notify.Hub
)

// APIStore is the read surface the HTTP handlers need.
type APIStore interface {
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	GetPatient(ctx context.Context, id int64) (*models.Patient, error)
	GetDoctor(ctx context.Context, id int64) (*models.Doctor, error)
	ListDoctorTickets(ctx context.Context, doctorID int64) ([]store.TicketSummary, error)
}

// Submitter starts the admission workflow.
type Submitter interface {
	Submit(ctx context.Context, name string, age int, symptoms string) (int64, error)
}

// defaultDoctors is the seed set applied to an empty doctors table.
var defaultDoctors = []*models.Doctor{
	{Name: "Dr. Alice", Specialty: "General Medicine", MaxPatients: 5},
	{Name: "Dr. Bob", Specialty: "Cardiology", MaxPatients: 5},
	{Name: "Dr. Clara", Specialty: "Neurology", MaxPatients: 5},
	{Name: "Dr. Daniel", Specialty: "Orthopedics", MaxPatients: 5},
	{Name: "Dr. Emma", Specialty: "Dermatology", MaxPatients: 5},
	{Name: "Dr. Frank", Specialty: "Pediatrics", MaxPatients: 5},
	{Name: "Dr. Grace", Specialty: "Ophthalmology", MaxPatients: 5},
	{Name: "Dr. Henry", Specialty: "Psychiatry", MaxPatients: 5},
	{Name: "Dr. Ivy", Specialty: "Gynecology", MaxPatients: 5},
	{Name: "Dr. Jack", Specialty: "Radiology", MaxPatients: 5},
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

	seeded, err := st.SeedDoctors(ctx, defaultDoctors)
	if err != nil {
		log.Fatalf("doctor seeding failed: %v", err)
	}
	if seeded {
		log.Printf("seeded %d default doctors", len(defaultDoctors))
	}

	reception, err := triage.NewAgent(cfg.Agents, "reception")
	if err != nil {
		log.Fatalf("reception agent: %v", err)
	}
	triageAgent, err := triage.NewAgent(cfg.Agents, "triage")
	if err != nil {
		log.Fatalf("triage agent: %v", err)
	}

	q := queue.New()
	hub = notify.NewHub()
	ticketStore = st
	admissions = intake.NewService(st, q, reception, triageAgent)
	sink := notify.NewService(buildPusher(cfg.Notifications), hub)

	// Rebuild the queue from tickets that were triaged but never
	// assigned before the last shutdown.
	if _, err := dispatch.Sweep(ctx, st, q); err != nil {
		log.Fatalf("queue rebuild failed: %v", err)
	}

	if cfg.Engine.Disabled {
		log.Println("embedded allocation engine disabled")
	} else {
		engine := dispatch.NewEngine(st, q, sink, dispatch.Config{
			IdlePoll:       cfg.Engine.IdlePoll.Duration,
			Cooldown:       cfg.Engine.Cooldown.Duration,
			Yield:          cfg.Engine.Yield.Duration,
			RequeuePenalty: cfg.Engine.RequeuePenalty,
		})
		go func() {
			if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Fatalf("allocation engine: %v", err)
			}
		}()
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Engine.SweepSchedule, func() {
		if _, err := dispatch.Sweep(context.Background(), st, q); err != nil {
			log.Printf("sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("invalid sweep schedule %q: %v", cfg.Engine.SweepSchedule, err)
	}
	sweeper.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/patients/start", handleStartPatient)
	mux.HandleFunc("/api/tickets/", handleGetTicket)
	mux.HandleFunc("/api/doctor/", handleDoctorTickets)
	mux.HandleFunc("/ws/doctor/", handleDoctorWS)
	mux.HandleFunc("/", handleRoot)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: middleware.CORS(cfg.Server.AllowedOrigin, mux),
	}

	go func() {
		log.Printf("hospital dispatch API listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	<-sweeper.Stop().Done()
}
