// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"afh-workers/internal/common/config"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PostgresClient holds the read-only pool shared by the lookup workers.
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres opens the pool. Every session starts in a read-only
// transaction mode; workers never write. sql.Open does not dial, call Ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", readOnlyDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	maxOpen := cfg.MaxConnections
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func readOnlyDSN(cfg config.PostgresConfig) string {
	return cfg.GetDSN() + " default_transaction_read_only=on application_name=afh-workers"
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// RegisterPoolMetrics exports the pool counters as go_sql_* series.
func (c *PostgresClient) RegisterPoolMetrics(reg prometheus.Registerer) error {
	return reg.Register(collectors.NewDBStatsCollector(c.DB, "afh"))
}
