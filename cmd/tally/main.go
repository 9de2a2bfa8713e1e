package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/wikistats/tally/internal/config"
	"github.com/wikistats/tally/internal/db"
	"github.com/wikistats/tally/internal/fixture"
	"github.com/wikistats/tally/internal/ladder"
	"github.com/wikistats/tally/internal/report"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Open database
	database, err := db.Open(cfg.DBPath, cfg.Wiki)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the running query on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	names := db.DefaultNamer(cfg.Wiki)

	switch os.Args[1] {
	case "seed":
		if len(os.Args) != 3 {
			usage()
			os.Exit(2)
		}
		if err := runSeed(database, names, os.Args[2]); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
	default:
		if err := runReport(ctx, database, names, cfg, logger, os.Args[1]); err != nil {
			log.Fatalf("Report failed: %v", err)
		}
	}
}

func runReport(ctx context.Context, database *sqlx.DB, names db.TableNamer, cfg *config.Config, logger *zap.Logger, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read report definition: %w", err)
	}
	var def report.Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse report definition: %w", err)
	}

	lad, err := loadLadder(cfg.LadderFile)
	if err != nil {
		return err
	}

	builder := report.New(database, names, lad, logger)
	builder.MaxItems = cfg.MaxItems

	results, err := builder.Run(ctx, &def)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func runSeed(database *sqlx.DB, names db.TableNamer, path string) error {
	set, err := fixture.Load(path)
	if err != nil {
		return err
	}
	return set.Insert(database, names)
}

// loadLadder reads the service award ladder override, falling back to
// the built-in ladder when no file is configured.
func loadLadder(path string) (ladder.Ladder, error) {
	if path == "" {
		return ladder.Default, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ladder file: %w", err)
	}
	var lad ladder.Ladder
	if err := json.Unmarshal(data, &lad); err != nil {
		return nil, fmt.Errorf("failed to parse ladder file: %w", err)
	}
	return lad, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tally <report.json> | tally seed <fixture.json>")
}
