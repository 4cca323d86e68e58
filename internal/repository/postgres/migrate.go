package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// prefixPlaceholder marks table names in the embedded SQL.
const prefixPlaceholder = "{{prefix}}"

// Migrate applies pending schema migrations for the tables named by
// tables. Migrations are versioned per prefix, so dev_ and test_ tables in
// one database upgrade independently.
func Migrate(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string, logger *slog.Logger) error {
	migrations, err := loadMigrations(prefix)
	if err != nil {
		return err
	}

	store, err := database.NewStore(database.DialectPostgres, tables.Migrations)
	if err != nil {
		return fmt.Errorf("migration store: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectCustom, db, nil,
		goose.WithStore(store),
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations...),
	)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("schema up to date", "version", version, "prefix", prefix)
	return nil
}

// loadMigrations turns every embedded NNNNN_name.up.sql (and its optional
// .down.sql) into a goose migration with table names prefixed.
func loadMigrations(prefix string) ([]*goose.Migration, error) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	if err != nil {
		return nil, err
	}

	replacer := strings.NewReplacer(prefixPlaceholder, prefix)
	migrations := make([]*goose.Migration, 0, len(ups))
	for _, name := range ups {
		base := path.Base(name)
		version, err := strconv.ParseInt(strings.SplitN(base, "_", 2)[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", base, err)
		}

		up, err := migrationFiles.ReadFile(name)
		if err != nil {
			return nil, err
		}
		down, err := migrationFiles.ReadFile(strings.TrimSuffix(name, ".up.sql") + ".down.sql")
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		var downFn *goose.GoFunc
		if down != nil {
			downFn = execSQL(replacer.Replace(string(down)))
		}
		migrations = append(migrations, goose.NewGoMigration(version, execSQL(replacer.Replace(string(up))), downFn))
	}
	return migrations, nil
}

func execSQL(statements string) *goose.GoFunc {
	return &goose.GoFunc{
		RunTx: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, statements)
			return err
		},
	}
}
