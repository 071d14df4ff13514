package sqldb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending migration for the dialect. It runs on its own
// connection because closing the migrator closes the underlying pool.
func (sdb *SQLDB) Migrate(log *zap.Logger) error {
	driverName := "mysql"
	if sdb.dialect == DialectSQLite {
		driverName = "sqlite3"
	}
	migrationDB, err := sql.Open(driverName, sdb.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	var dbInstance database.Driver
	switch sdb.dialect {
	case DialectMySQL:
		dbInstance, err = migratemysql.WithInstance(migrationDB, &migratemysql.Config{})
	case DialectSQLite:
		dbInstance, err = migratesqlite.WithInstance(migrationDB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported dialect %q", sdb.dialect)
	}
	if err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}

	srcInstance, err := iofs.New(migrationsFS, "migrations/"+string(sdb.dialect))
	if err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcInstance, driverName, dbInstance)
	if err != nil {
		_ = migrationDB.Close()
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn("failed to close migrator", zap.NamedError("sourceErr", srcErr), zap.NamedError("dbErr", dbErr))
		}
	}()

	migrateErr := m.Up()
	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", migrateErr)
	}

	version, dirty, versionErr := m.Version()
	if versionErr != nil && !errors.Is(versionErr, migrate.ErrNilVersion) {
		log.Warn("failed to read migration version", zap.Error(versionErr))
	}
	if errors.Is(migrateErr, migrate.ErrNoChange) {
		log.Info("no migrations to apply", zap.String("dialect", string(sdb.dialect)), zap.Uint("version", version))
	} else {
		log.Info("database migrated", zap.String("dialect", string(sdb.dialect)), zap.Uint("version", version), zap.Bool("dirty", dirty))
	}
	return nil
}
