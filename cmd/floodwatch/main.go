package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/rtorralba/floodwatch/internal/alert"
	"github.com/rtorralba/floodwatch/internal/api"
	"github.com/rtorralba/floodwatch/internal/jobs"
	"github.com/rtorralba/floodwatch/internal/models"
	"github.com/rtorralba/floodwatch/internal/store"
)

var defaultNodes = []models.Node{
	{NodeID: "esp32-001", Name: "Riverside Bridge", Location: "Brgy. San Isidro", Latitude: 14.676, Longitude: 121.043, IsPrimary: true, Active: true},
	{NodeID: "esp32-002", Name: "Creek Crossing", Location: "Brgy. Santo Niño", Latitude: 14.681, Longitude: 121.051, Active: true},
	{NodeID: "esp32-003", Name: "Market Underpass", Location: "Poblacion", Latitude: 14.669, Longitude: 121.038, Active: true},
}

var cli struct {
	EnvFile kongdotenv.ENVFileConfig `optional:"" name:"env-file" help:"Path to .env file to load."`

	DB            string   `default:"data/floodwatch.db" env:"FLOODWATCH_DB" help:"Path to SQLite database."`
	Port          string   `default:"8080" env:"FLOODWATCH_PORT" help:"HTTP server port."`
	Timezone      string   `default:"Asia/Manila" env:"FLOODWATCH_TZ" help:"Local timezone for daily rollups."`
	RetentionDays int      `default:"90" env:"FLOODWATCH_RETENTION_DAYS" help:"Days of raw readings to keep, 0 keeps everything."`
	KafkaBrokers  []string `env:"FLOODWATCH_KAFKA_BROKERS" help:"Kafka brokers for alert fan-out, empty disables publishing."`
	KafkaTopic    string   `default:"floodwatch.alerts" env:"FLOODWATCH_KAFKA_TOPIC" help:"Kafka topic for alert events."`
	NoJobs        bool     `help:"Disable background jobs (server only, for local dev)."`
	Backfill      int      `help:"Recompute daily summaries for the trailing N days and exit."`
}

func main() {
	kong.Parse(&cli,
		kong.Name("floodwatch"),
		kong.Description("Flood monitoring backend: sensor ingestion, risk aggregation and alerting."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(cli.Timezone)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", cli.Timezone, err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	for _, node := range defaultNodes {
		if err := st.UpsertNode(node); err != nil {
			log.Fatalf("upsert node %s: %v", node.NodeID, err)
		}
	}
	log.Println("nodes seeded")

	scheduler := jobs.NewScheduler(st, loc, time.Duration(cli.RetentionDays)*24*time.Hour)

	if cli.Backfill > 0 {
		log.Printf("backfilling %d days of summaries", cli.Backfill)
		if err := scheduler.Backfill(cli.Backfill); err != nil {
			log.Fatalf("backfill: %v", err)
		}
		log.Println("done")
		return
	}

	var publisher *alert.Publisher
	if len(cli.KafkaBrokers) > 0 {
		publisher = alert.NewPublisher(cli.KafkaBrokers, cli.KafkaTopic)
		defer publisher.Close()
		log.Printf("alert publishing enabled: topic=%s", cli.KafkaTopic)
	}

	server := api.NewServer(st, publisher, cli.Port, loc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cli.NoJobs {
		go scheduler.Run(ctx)
	} else {
		log.Println("background jobs disabled (--no-jobs)")
	}

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
