package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationLogger adapts an ectologger to migrate.Logger.
type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Debugf(strings.TrimSpace(format), v...)
}

type MigrationConfig struct {
	MigrationFolderPath string
	Version             uint
	Force               int
	// AutoRollback forces a dirty database back to the version it had
	// before the failed run.
	AutoRollback bool
}

type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

// MigrationDriver wraps db in the migrate driver for its flavor.
func MigrationDriver(db DB) (string, migratedb.Driver, error) {
	instance, ok := db.(*DatabaseInstance)
	if !ok {
		return "", nil, fmt.Errorf("unsupported database type %T", db)
	}

	switch db.DriverName() {
	case "sqlite", "sqlite3":
		driver, err := sqlite.WithInstance(instance.SQLDB(), &sqlite.Config{})
		return "sqlite", driver, err
	case "postgres":
		driver, err := postgres.WithInstance(instance.SQLDB(), &postgres.Config{})
		return "postgres", driver, err
	}
	return "", nil, fmt.Errorf("no migration driver for %s", db.DriverName())
}

func (ms *MigrationService) resolveMigrationFolder() string {
	folder := ms.config.MigrationFolderPath
	if _, err := os.Stat(folder); err == nil || filepath.IsAbs(folder) {
		return folder
	}
	wd, err := os.Getwd()
	if err != nil {
		return folder
	}
	return filepath.Join(wd, folder)
}

func (ms *MigrationService) Migrate(ctx context.Context, databaseName string, driver migratedb.Driver) error {
	folder := ms.resolveMigrationFolder()
	if _, err := os.Stat(folder); err != nil {
		return fmt.Errorf("migration folder %s does not exist: %w", folder, err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	if err != nil {
		ms.logger.WithContext(ctx).WithError(err).Error("failed to create migrate instance")
		return err
	}
	m.Log = MigrationLogger{Logger: ms.logger}

	return ms.run(ctx, m, folder)
}

func (ms *MigrationService) run(ctx context.Context, m *migrate.Migrate, folder string) error {
	log := ms.logger.WithContext(ctx)

	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			log.WithError(err).Errorf("failed to force database to version %d", ms.config.Force)
			return err
		}
	}

	previous, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.WithError(err).Warn("failed to read current migration version")
	}

	start := time.Now()
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}
	log.WithFields(map[string]any{"elapsed": time.Since(start).String()}).Info("database migrations finished")

	switch {
	case err == nil:
		log.Info("successfully applied migrations")
		return nil
	case errors.Is(err, migrate.ErrNoChange):
		log.Info("no new migrations to apply")
		return nil
	case strings.Contains(err.Error(), "no migration found for version"):
		latest, latestErr := latestVersion(folder)
		if latestErr != nil {
			return errors.Join(err, latestErr)
		}
		log.Warnf("no migration found for version %d, forcing database to version %d", previous, latest)
		return m.Force(latest)
	}

	log.WithError(err).Error("migration failed")

	version, dirty, versionErr := m.Version()
	if versionErr == nil && dirty && ms.config.AutoRollback {
		target := int(previous)
		if target == 0 {
			target = int(version) - 1
		}
		log.Warnf("database is dirty at version %d, forcing version %d", version, target)
		if forceErr := m.Force(target); forceErr != nil {
			return errors.Join(err, forceErr)
		}
	}
	return err
}

var migrationFile = regexp.MustCompile(`^(\d+)_.*\.up\.sql$`)

func latestVersion(folder string) (int, error) {
	files, err := os.ReadDir(folder)
	if err != nil {
		return 0, err
	}

	var versions []int
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(file.Name())
		if len(matches) < 2 {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		versions = append(versions, version)
	}

	if len(versions) == 0 {
		return 0, fmt.Errorf("no migration files found in %s", folder)
	}
	sort.Ints(versions)
	return versions[len(versions)-1], nil
}
