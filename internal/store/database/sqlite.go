package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/openvdm/openvdm-web/internal/store/constants"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	readParams  = "?_pragma=busy_timeout(5000)&_pragma=query_only(1)"
	writeParams = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
)

type Database struct {
	ctx     context.Context
	readDb  *sql.DB
	writeDb *sql.DB
	dbPath  string
}

func Initialize(ctx context.Context, dbPath string) (*Database, error) {
	if dbPath == "" {
		dbPath = constants.DefaultDbPath
	}

	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	writeDb, err := sql.Open("sqlite", dbPath+writeParams)
	if err != nil {
		return nil, fmt.Errorf("Initialize: error opening DB: %w", err)
	}
	writeDb.SetMaxOpenConns(1)

	if err := writeDb.PingContext(ctx); err != nil {
		_ = writeDb.Close()
		return nil, fmt.Errorf("Initialize: error DB: %w", err)
	}

	readDb, err := sql.Open("sqlite", dbPath+readParams)
	if err != nil {
		_ = writeDb.Close()
		return nil, fmt.Errorf("Initialize: error opening DB: %w", err)
	}

	database := &Database{
		ctx:     ctx,
		dbPath:  dbPath,
		readDb:  readDb,
		writeDb: writeDb,
	}

	if err := database.Migrate(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		_ = database.Close()
		return nil, fmt.Errorf("Initialize: error migrating tables: %w", err)
	}

	return database, nil
}

// Migrate applies the embedded schema migrations on a dedicated handle,
// since the migrate driver closes its connection when done.
func (database *Database) Migrate() error {
	migrationDb, err := sql.Open("sqlite", database.dbPath+writeParams)
	if err != nil {
		return fmt.Errorf("Migrate: error opening DB: %w", err)
	}

	driver, err := migratesqlite.WithInstance(migrationDb, &migratesqlite.Config{})
	if err != nil {
		_ = migrationDb.Close()
		return fmt.Errorf("Migrate: failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("Migrate: failed to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("Migrate: failed to create migrator: %w", err)
	}
	defer m.Close()

	return m.Up()
}

func (database *Database) Close() error {
	rErr := database.readDb.Close()
	wErr := database.writeDb.Close()
	return errors.Join(rErr, wErr)
}
