// Command migrate applies the embedded schema migrations to the configured database.
package main

import (
	"flag"
	"log"

	"github.com/noah-isme/arena-session-api/internal/db/migrate"
	"github.com/noah-isme/arena-session-api/pkg/config"
	"github.com/noah-isme/arena-session-api/pkg/logger"
)

func main() {
	direction := flag.String("direction", migrate.DirectionUp, "migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := migrate.Run(cfg.Database.URL(), *direction); err != nil {
		logr.Sugar().Fatalw("migration failed", "direction", *direction, "error", err)
	}
	logr.Sugar().Infow("migration complete", "direction", *direction, "database", cfg.Database.Name)
}
