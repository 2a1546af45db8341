package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seams for tests.
var (
	parsePGConfig = pgxpool.ParseConfig
	newPGPool     = pgxpool.NewWithConfig
	pingPGPool    = func(ctx context.Context, pool *pgxpool.Pool) error { return pool.Ping(ctx) }
	closePGPool   = func(pool *pgxpool.Pool) { pool.Close() }
)

// Pool sizing for the account and artifact store. Redeem and place each hold
// an account row lock for one short transaction; the sweeper needs one more.
const (
	maxPoolConns = 25
	minPoolConns = 5

	// rowLockTimeout bounds how long a redeem or place waits on a locked
	// account row before the statement fails.
	rowLockTimeout = 5 * time.Second
)

// PostgresDB holds the connection pool backing the account and artifact store.
type PostgresDB struct {
	Pool *pgxpool.Pool
}

func NewPostgresDB(dsn string) (*PostgresDB, error) {
	config, err := parsePGConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	config.MaxConns = maxPoolConns
	config.MinConns = minPoolConns
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = time.Minute
	if config.ConnConfig != nil {
		config.ConnConfig.RuntimeParams["application_name"] = "fridgemate"
		config.ConnConfig.RuntimeParams["lock_timeout"] = fmt.Sprintf("%d", rowLockTimeout.Milliseconds())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := newPGPool(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pingPGPool(ctx, pool); err != nil {
		closePGPool(pool)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresDB{Pool: pool}, nil
}

func (db *PostgresDB) Close() {
	if db.Pool != nil {
		closePGPool(db.Pool)
	}
}

func (db *PostgresDB) Health(ctx context.Context) error {
	return pingPGPool(ctx, db.Pool)
}
