package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"autocheckin/browser"
	"autocheckin/config"
	"autocheckin/database"
	"autocheckin/events"
	"autocheckin/models"
	"autocheckin/notification"
	"autocheckin/repository"
	"autocheckin/scheduler"
	"autocheckin/service"
	"autocheckin/web"
)

// application groups the wired collaborators shared by the daemon and the
// one-shot mode
type application struct {
	db       *database.DB
	eventBus *events.Bus
	browser  *browser.Manager
	runs     service.RunService
	stats    service.StatsService
	cfg      *config.Config
}

func buildApplication(ctx context.Context) (*application, error) {
	cfg := config.Get()

	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	log.Println("Starting browser driver...")
	browserManager, err := browser.NewManager(cfg.Headless)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to start browser driver: %w", err)
	}

	syncEngine := service.NewSyncService(uowFactory)
	checkinService := service.NewCheckinService(browserManager, browser.NewSolver(), syncEngine, cfg.DefaultReward)
	runService := service.NewRunService(
		uowFactory,
		checkinService,
		db,
		cfg.Domains.Endpoints(),
		cfg.EnabledAccounts(),
		time.Duration(cfg.InterAccountDelay)*time.Second,
	)
	statsService := service.NewStatsService(uowFactory)

	if cfg.SMTP.Enabled {
		notification.NewMailer(cfg.SMTP, uowFactory).Register(eventBus)
	}

	return &application{
		db:       db,
		eventBus: eventBus,
		browser:  browserManager,
		runs:     runService,
		stats:    statsService,
		cfg:      cfg,
	}, nil
}

func (a *application) close() {
	if err := a.browser.Close(); err != nil {
		log.Printf("Error closing browser driver: %v", err)
	}
	log.Println("Closing database connection...")
	a.db.Close()
}

// Run starts the daemon: scheduler plus HTTP API, until the context ends
func Run(ctx context.Context) error {
	log.Println("Starting checkin engine...")

	app, err := buildApplication(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	var sched *scheduler.Scheduler
	if app.cfg.ScheduleEnabled {
		sched = scheduler.New(ctx, app.runs)
		if err := sched.AddTimes(app.cfg.ScheduleTimes); err != nil {
			return err
		}
		sched.Start()
	}

	server := web.NewServer(app.cfg.ListenAddr, app.runs, app.stats, app.cfg.APIToken)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	log.Printf("Engine is running in %s mode...", app.cfg.Environment)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
	}

	log.Println("Shutting down...")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down API server: %v", err)
	}
	if err := app.eventBus.Drain(shutdownCtx); err != nil {
		log.Printf("Exiting with undelivered event handlers: %v", err)
	}

	return nil
}

// RunOnce executes a single batch run and exits
func RunOnce(ctx context.Context) error {
	app, err := buildApplication(ctx)
	if err != nil {
		return err
	}
	defer app.close()

	summary, err := app.runs.TriggerRun(ctx, models.TriggerManual, "cli")
	if err != nil {
		return err
	}

	log.Printf("Run %d finished: %d ok, %d already done, %d failed",
		summary.RunID, summary.Success, summary.AlreadyDone, summary.Failed)

	// The digest mail rides on an async handler; exiting before the bus
	// drains would kill it mid-delivery
	drainCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.eventBus.Drain(drainCtx); err != nil {
		log.Printf("Exiting with undelivered event handlers: %v", err)
	}
	return nil
}
