package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/diewo77/go-submittals/internal/config"
	"github.com/diewo77/go-submittals/internal/db"
	"github.com/diewo77/go-submittals/internal/notify"
	"github.com/diewo77/go-submittals/internal/postgres"
	"github.com/diewo77/go-submittals/internal/proposal"
	"github.com/diewo77/go-submittals/internal/storage"
	"github.com/diewo77/go-submittals/internal/store"
	"github.com/diewo77/go-submittals/internal/workflow"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()

	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if *migrateOnlyFlag {
		if err := migrate(cfg, dbConn); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
		return
	}

	if *seedOnlyFlag {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeding completed successfully")
		return
	}

	if err := migrate(cfg, dbConn); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if cfg.App.Seed {
		if err := db.Seed(dbConn); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pg *postgres.DB
	if cfg.Database.IsPostgres() {
		pg, err = postgres.New(ctx, db.ToURLDSN(db.NormalizeDSN(cfg.Database.DSN())))
		if err != nil {
			log.Fatalf("Failed to open pgx pool: %v", err)
		}
		defer pg.Close()
	}

	seq, err := newSequencer(cfg, dbConn, pg)
	if err != nil {
		log.Fatalf("Sequence setup failed: %v", err)
	}

	hub := notify.NewHub(32)
	events := notify.NewEventLog(dbConn)
	publisher := newPublisher(ctx, cfg, pg, events, hub)

	var files storage.FileStore
	if s3store, err := storage.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.PublicBaseURL); err != nil {
		log.Printf("[storage] S3 disabled: %v", err)
	} else {
		files = s3store
	}

	engine := workflow.New(store.NewGormStore(dbConn), seq, publisher)

	deps := Deps{
		DB:       dbConn,
		Engine:   engine,
		Files:    files,
		Renderer: proposal.New(cfg.App.CompanyName),
		Hub:      hub,
		Quote:    cfg.Quote,
		MaxBody:  cfg.Server.MaxBodyBytes,
	}
	if cfg.Notify.Has("eventlog") {
		deps.Events = events
	}
	app := NewApp(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      withLogging(app),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s (dev=%v, db=%s)", cfg.Server.Port, cfg.App.Dev, cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Server stopped gracefully")
}

// migrate applies the schema. On postgres with MIGRATIONS=1 the embedded SQL
// files run through golang-migrate; otherwise gorm AutoMigrate is used.
func migrate(cfg *config.Config, dbConn *gorm.DB) error {
	if cfg.App.Migrations && cfg.Database.IsPostgres() {
		if err := db.RunSQLMigrations(cfg.Database.DSN()); err != nil {
			return err
		}
		if err := db.EnsureSequence(dbConn, cfg.Quote.SequenceName, cfg.Quote.SequenceStart); err != nil {
			return err
		}
	} else if err := db.Migrate(dbConn, cfg.Quote.SequenceName, cfg.Quote.SequenceStart); err != nil {
		return err
	}
	return db.HasCoreTables(dbConn)
}

func newSequencer(cfg *config.Config, dbConn *gorm.DB, pg *postgres.DB) (workflow.Sequencer, error) {
	if pg != nil {
		return postgres.NewSequence(pg.Pool, cfg.Quote.SequenceName)
	}
	return store.NewTableSequence(dbConn, cfg.Quote.SequenceName, cfg.Quote.SequenceStart), nil
}

// newPublisher assembles the configured notifiers. With the pg driver the
// hub is fed from LISTEN so every instance sees every event; otherwise it
// receives events in-process.
func newPublisher(ctx context.Context, cfg *config.Config, pg *postgres.DB, events *notify.EventLog, hub *notify.Hub) notify.Publisher {
	var multi notify.Multi
	if cfg.Notify.Has("log") {
		multi = append(multi, notify.Log{})
	}
	if cfg.Notify.Has("eventlog") {
		multi = append(multi, events)
	}

	if cfg.Notify.Has("pg") && pg != nil {
		multi = append(multi, postgres.NewNotifier(pg.Pool, cfg.Notify.PGChannel))
		listener := postgres.NewNotifier(pg.Pool, cfg.Notify.PGChannel)
		go func() {
			if err := listener.Listen(ctx, hub.Deliver); err != nil && ctx.Err() == nil {
				log.Printf("[notify] listen on %s stopped: %v", cfg.Notify.PGChannel, err)
			}
		}()
	} else {
		multi = append(multi, hub)
	}

	if cfg.Notify.Has("sns") {
		if cfg.Notify.SNSTopicARN == "" {
			log.Println("[notify] sns driver enabled without SNS_TOPIC_ARN; skipping")
		} else if awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notify.Region)); err != nil {
			log.Printf("[notify] sns disabled: %v", err)
		} else {
			multi = append(multi, notify.NewSNS(awsCfg, cfg.Notify.SNSTopicARN))
		}
	}
	return multi
}
