package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

//go:embed sql/*.sql
var sqlFiles embed.FS

// RunMigrations applies every pending migration embedded in sql/.
func RunMigrations(dbURL string) error {
	source, err := iofs.New(sqlFiles, "sql")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("failed to init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, _ := m.Version()
	log.Info("Database schema ready", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
