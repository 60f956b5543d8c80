// Package migrate applies the embedded schema migrations with golang-migrate.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/noah-isme/arena-session-api/internal/db"
)

// Directions accepted by Run.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// ErrNoChange is returned by migrate when the schema is already at the target version.
var ErrNoChange = migrate.ErrNoChange

// Run migrates the database at url in the given direction. Being already at
// the target version is not an error.
func Run(url, direction string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("database url is empty")
	}
	if direction != DirectionUp && direction != DirectionDown {
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}

	source, err := iofs.New(db.MigrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if direction == DirectionUp {
		err = m.Up()
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
