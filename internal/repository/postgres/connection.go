package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Projects       string
	ProjectMembers string
	Spaces         string
	Documents      string
	Sites          string
	Builds         string
	ContentBlobs   string
	// Migrations is goose's version table; each prefix migrates independently
	Migrations string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Projects:       fmt.Sprintf("%sprojects", prefix),
		ProjectMembers: fmt.Sprintf("%sproject_members", prefix),
		Spaces:         fmt.Sprintf("%sspaces", prefix),
		Documents:      fmt.Sprintf("%sdocuments", prefix),
		Sites:          fmt.Sprintf("%ssites", prefix),
		Builds:         fmt.Sprintf("%sbuilds", prefix),
		ContentBlobs:   fmt.Sprintf("%scontent_blobs", prefix),
		Migrations:     fmt.Sprintf("%sgoose_db_version", prefix),
	}
}

// CreateConnectionPool creates a pgx pool and verifies it with a ping.
//
// Connections through PgBouncer in transaction mode (port 6543) cannot use
// prepared statements, so the pool switches to QueryExecModeCacheDescribe
// there. It keeps the extended protocol, which jsonb and text[] parameters
// need. An explicit default_query_exec_mode in the URL wins.
//
// Table prefixes are interpolated before statements reach the server, so
// each environment gets its own statement cache entries.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or pool when there is
// none, so repositories join an enclosing ExecTx automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}

// InTx reports whether ctx carries a transaction. After a failed statement a
// transaction rejects further queries until rollback.
func InTx(ctx context.Context) bool {
	return repositories.GetTx(ctx) != nil
}
